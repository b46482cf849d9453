package main

import (
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/embeddings"
	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/spf13/cobra"
)

var forceDownload bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "Force re-download even if ONNX runtime exists")
}

// initCmd prepares local state
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize repolens dependencies",
	Long: `Create ~/.config/repolens and download the ONNX runtime library used
for local embeddings with FastEmbed. The library is installed to:
  ~/.config/repolens/lib/

If ONNX_PATH environment variable is set, that path takes precedence.

Examples:
  repolens init
  repolens init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	if !forceDownload {
		if path := embeddings.ONNXLibraryPath(); path != "" {
			fmt.Fprintln(out, render.Info("ONNX runtime already installed at: %s", path))
			fmt.Fprintln(out, render.Info("Use --force to re-download."))
			return nil
		}
	}

	fmt.Fprintln(out, render.Info("Downloading ONNX runtime v%s...", embeddings.DefaultONNXRuntimeVersion))
	if err := embeddings.DownloadONNXRuntime(cmd.Context(), ""); err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	path := embeddings.ONNXLibraryPath()
	if path == "" {
		return fmt.Errorf("download completed but library not found")
	}
	fmt.Fprintln(out, render.Success("Installed ONNX runtime to: %s", path))
	return nil
}
