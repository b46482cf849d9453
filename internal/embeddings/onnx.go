package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// DefaultONNXRuntimeVersion matches the onnxruntime_go version pulled in by
// fastembed-go.
const DefaultONNXRuntimeVersion = "1.23.0"

// ErrUnsupportedPlatform indicates the current OS/arch is not supported.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

var platformArchMap = map[string]map[string]string{
	"linux": {
		"amd64": "linux-x64",
		"arm64": "linux-aarch64",
	},
	"darwin": {
		"amd64": "osx-x86_64",
		"arm64": "osx-arm64",
	},
}

var libraryNames = map[string]string{
	"linux":  "libonnxruntime.so",
	"darwin": "libonnxruntime.dylib",
}

const onnxReleaseURLTemplate = "https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz"

func platformArchive(goos, goarch string) (string, error) {
	if arch, ok := platformArchMap[goos][goarch]; ok {
		return arch, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}

func libraryName(goos string) string {
	if name, ok := libraryNames[goos]; ok {
		return name
	}
	return "libonnxruntime.so"
}

// managedDir is ~/.config/repolens.
func managedDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "repolens")
}

// ONNXInstallDir is where `repolens init` places the runtime.
func ONNXInstallDir() string {
	return filepath.Join(managedDir(), "lib")
}

// ONNXLibraryPath returns ONNX_PATH when set, else the managed install if it
// exists, else "".
func ONNXLibraryPath() string {
	if envPath := os.Getenv("ONNX_PATH"); envPath != "" {
		return envPath
	}
	managed := filepath.Join(ONNXInstallDir(), libraryName(runtime.GOOS))
	if _, err := os.Stat(managed); err == nil {
		return managed
	}
	return ""
}

func buildDownloadURL(version, platform string) string {
	return fmt.Sprintf(onnxReleaseURLTemplate, version, platform, version)
}

// DownloadONNXRuntime installs the runtime for the current platform into
// ONNXInstallDir. An empty version selects DefaultONNXRuntimeVersion.
func DownloadONNXRuntime(ctx context.Context, version string) error {
	if version == "" {
		version = DefaultONNXRuntimeVersion
	}
	platform, err := platformArchive(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	return downloadONNXRuntime(ctx, http.DefaultClient, buildDownloadURL(version, platform), ONNXInstallDir(), version, platform)
}

func downloadONNXRuntime(ctx context.Context, client *http.Client, url, destDir, version, platform string) error {
	if err := os.MkdirAll(destDir, 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading ONNX runtime: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := extractTarGz(resp.Body, destDir, version, platform, libraryName(runtime.GOOS)); err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}
	return nil
}

// extractTarGz copies everything under onnxruntime-<platform>-<version>/lib/
// into destDir, flattening paths and keeping symlinks.
func extractTarGz(r io.Reader, destDir, version, platform, libName string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	prefix := fmt.Sprintf("onnxruntime-%s-%s/lib/", platform, version)
	var foundMainLib bool

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		name := strings.TrimPrefix(header.Name, "./")
		if !strings.HasPrefix(name, prefix) || header.Typeflag == tar.TypeDir {
			continue
		}

		filename := filepath.Base(name)
		destPath := filepath.Join(destDir, filename)

		if header.Typeflag == tar.TypeSymlink {
			_ = os.Remove(destPath)
			if err := os.Symlink(header.Linkname, destPath); err != nil {
				continue
			}
			if filename == libName {
				foundMainLib = true
			}
			continue
		}

		if err := writeFile(destPath, tr); err != nil {
			return fmt.Errorf("writing file %s: %w", filename, err)
		}
		if filename == libName || strings.HasPrefix(filename, libName+".") {
			foundMainLib = true
		}
	}

	if !foundMainLib {
		return fmt.Errorf("library %s not found in archive", libName)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EnsureONNXRuntime returns the runtime path, downloading it first when
// missing, and exports ONNX_PATH for fastembed-go.
func EnsureONNXRuntime(ctx context.Context, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path := ONNXLibraryPath(); path != "" {
		return path, os.Setenv("ONNX_PATH", path)
	}

	logger.Info("ONNX runtime not found, downloading",
		zap.String("version", DefaultONNXRuntimeVersion),
		zap.String("platform", runtime.GOOS+"/"+runtime.GOARCH))

	if err := DownloadONNXRuntime(ctx, ""); err != nil {
		return "", fmt.Errorf("failed to download ONNX runtime (run 'repolens init' or set ONNX_PATH): %w", err)
	}

	path := ONNXLibraryPath()
	if path == "" {
		return "", errors.New("ONNX runtime download completed but library not found")
	}
	logger.Info("ONNX runtime installed", zap.String("path", path))
	return path, os.Setenv("ONNX_PATH", path)
}
