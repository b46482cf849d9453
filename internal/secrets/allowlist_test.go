package secrets_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyrsmithlabs/repolens/internal/secrets"
	"github.com/fyrsmithlabs/repolens/internal/walker/walkertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowlist.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAllowlist(t *testing.T) {
	path := writeFile(t, `
[allowlist]
paths = ['''testdata/.*''', '''\.example$''']
regexes = ['''DEMO_[A-Z_]+''']
`)

	allow, err := secrets.LoadAllowlist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`testdata/.*`, `\.example$`}, allow.Paths)
	assert.Equal(t, []string{`DEMO_[A-Z_]+`}, allow.Regexes)
}

func TestLoadAllowlist_Missing(t *testing.T) {
	allow, err := secrets.LoadAllowlist(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Empty(t, allow.Paths)
	assert.Empty(t, allow.Regexes)

	allow, err = secrets.LoadAllowlist("")
	require.NoError(t, err)
	assert.Empty(t, allow.Paths)
}

func TestLoadAllowlist_InvalidRegex(t *testing.T) {
	path := writeFile(t, "[allowlist]\nregexes = ['''[unclosed''']\n")

	_, err := secrets.LoadAllowlist(path)
	assert.ErrorIs(t, err, secrets.ErrInvalidRegex)
}

func TestLoadAllowlist_InvalidPathRegex(t *testing.T) {
	path := writeFile(t, "[allowlist]\npaths = ['''(oops''']\n")

	_, err := secrets.LoadAllowlist(path)
	assert.ErrorIs(t, err, secrets.ErrInvalidRegex)
}

func TestLoadAllowlist_InvalidTOML(t *testing.T) {
	path := writeFile(t, "[allowlist\npaths = \n")

	_, err := secrets.LoadAllowlist(path)
	assert.ErrorIs(t, err, secrets.ErrInvalidTOML)
}

func TestLoadRepoAllowlist(t *testing.T) {
	src := walkertest.New(
		walkertest.Text(".gitleaks.toml", "[allowlist]\npaths = ['''fixtures/''']\n"),
		walkertest.Text("main.go", "package main"),
	)

	allow, err := secrets.LoadRepoAllowlist(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixtures/"}, allow.Paths)

	allow, err = secrets.LoadRepoAllowlist(context.Background(), walkertest.New(walkertest.Text("a.go", "a")))
	require.NoError(t, err)
	assert.Empty(t, allow.Paths)
}

func TestAllowlist_Merge(t *testing.T) {
	user := &secrets.Allowlist{Paths: []string{"a"}, Regexes: []string{"x"}}
	repo := &secrets.Allowlist{Paths: []string{"b"}}

	merged := user.Merge(repo, nil)
	assert.Equal(t, []string{"a", "b"}, merged.Paths)
	assert.Equal(t, []string{"x"}, merged.Regexes)

	var none *secrets.Allowlist
	assert.Empty(t, none.Merge().Paths)
}
