package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFiles(t *testing.T, files map[string]string) *git.Repository {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	return repo
}

func TestSource_ListDirInTreeOrder(t *testing.T) {
	repo := commitFiles(t, map[string]string{
		"src/main.go":   "package main",
		"README.md":     "# demo",
		"logo.png":      "\x89PNG",
		"docs/guide.md": "guide",
	})
	src, err := FromRepository(repo)
	require.NoError(t, err)
	assert.Len(t, src.Commit, 40)

	root, err := src.ListDir(context.Background(), "")
	require.NoError(t, err)

	var paths []string
	for _, e := range root {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"README.md", "docs", "logo.png", "src"}, paths)
	assert.Equal(t, walker.EntryDir, root[1].Type)
	assert.Equal(t, walker.EntryFile, root[0].Type)

	sub, err := src.ListDir(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, walker.Entry{Path: "src/main.go", Name: "main.go", Type: walker.EntryFile}, sub[0])
}

func TestSource_Collect(t *testing.T) {
	repo := commitFiles(t, map[string]string{
		"a.py":  "hello world",
		"b.png": "hello",
		"c.md":  "hello moon",
	})
	src, err := FromRepository(repo)
	require.NoError(t, err)

	batch, stats, err := walker.Collect(context.Background(), "demo", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo_a.py", "demo_c.md"}, batch.IDs)
	assert.Equal(t, []string{"hello world", "hello moon"}, batch.Documents)
	assert.Equal(t, 0, stats.Errors)
}

func TestSource_AccessErrors(t *testing.T) {
	src, err := FromRepository(commitFiles(t, map[string]string{"a.go": "package a"}))
	require.NoError(t, err)

	_, err = src.ListDir(context.Background(), "missing")
	assert.True(t, walker.IsAccessError(err))

	_, err = src.ReadFile(context.Background(), "missing.go")
	assert.True(t, walker.IsAccessError(err))

	data, err := src.ReadFile(context.Background(), "a.go")
	require.NoError(t, err)
	assert.Equal(t, "package a", string(data))
}

func TestSource_CanceledContext(t *testing.T) {
	src, err := FromRepository(commitFiles(t, map[string]string{"a.go": "package a"}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.ListDir(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromRepository_Empty(t *testing.T) {
	repo, err := git.PlainInit(t.TempDir(), false)
	require.NoError(t, err)

	_, err = FromRepository(repo)
	assert.ErrorIs(t, err, ErrEmptyRepository)
}

func TestCloneOptions(t *testing.T) {
	opts := CloneOptions{URL: "https://github.com/octo/demo.git", Branch: "main", Token: config.Secret("ghp_x")}.gitOptions()

	assert.Equal(t, 1, opts.Depth)
	assert.True(t, opts.SingleBranch)
	assert.Equal(t, "refs/heads/main", opts.ReferenceName.String())
	auth, ok := opts.Auth.(*http.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "ghp_x", auth.Password)

	anon := CloneOptions{URL: "https://github.com/octo/demo.git"}.gitOptions()
	assert.Nil(t, anon.Auth)
	assert.Empty(t, anon.ReferenceName)
}
