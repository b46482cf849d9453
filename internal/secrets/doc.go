// Package secrets redacts credentials from file content before it is
// embedded and persisted.
//
// Detection uses the gitleaks default rule set. Each finding is replaced with
// a [REDACTED:<rule-id>] marker so the surrounding text keeps its meaning for
// semantic search. Allowlists are gitleaks-style TOML files: a user file from
// the configuration and an optional .gitleaks.toml at the repository root.
package secrets

import "errors"

var (
	// ErrInvalidRegex indicates a regex pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates a TOML file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)
