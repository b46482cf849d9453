package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/fyrsmithlabs/repolens/internal/walker"
)

// RepoAllowlistFile is read from the root of every indexed repository.
const RepoAllowlistFile = ".gitleaks.toml"

// Allowlist holds path and content patterns excluded from redaction.
type Allowlist struct {
	// Paths are regexes matched against repository-relative file paths.
	Paths []string
	// Regexes are matched against detected secrets and their lines.
	Regexes []string
}

type allowlistFile struct {
	Allowlist struct {
		Paths   []string `toml:"paths"`
		Regexes []string `toml:"regexes"`
	} `toml:"allowlist"`
}

// Merge returns the union of a and others.
func (a *Allowlist) Merge(others ...*Allowlist) *Allowlist {
	out := &Allowlist{}
	for _, l := range append([]*Allowlist{a}, others...) {
		if l == nil {
			continue
		}
		out.Paths = append(out.Paths, l.Paths...)
		out.Regexes = append(out.Regexes, l.Regexes...)
	}
	return out
}

// LoadAllowlist reads a TOML allowlist file. A missing file or empty path
// yields an empty allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return &Allowlist{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Allowlist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading allowlist %s: %w", path, err)
	}
	return ParseAllowlist(path, data)
}

// LoadRepoAllowlist reads RepoAllowlistFile from the repository root. A
// file that cannot be read yields an empty allowlist.
func LoadRepoAllowlist(ctx context.Context, src walker.Source) (*Allowlist, error) {
	data, err := src.ReadFile(ctx, RepoAllowlistFile)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Allowlist{}, nil
	}
	return ParseAllowlist(RepoAllowlistFile, data)
}

// ParseAllowlist decodes and validates allowlist TOML. name is used in
// error messages only.
func ParseAllowlist(name string, data []byte) (*Allowlist, error) {
	var f allowlistFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, name, err)
	}

	for _, p := range f.Allowlist.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("%w: path pattern %q in %s: %v", ErrInvalidRegex, p, name, err)
		}
	}
	for _, p := range f.Allowlist.Regexes {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("%w: content pattern %q in %s: %v", ErrInvalidRegex, p, name, err)
		}
	}

	return &Allowlist{Paths: f.Allowlist.Paths, Regexes: f.Allowlist.Regexes}, nil
}
