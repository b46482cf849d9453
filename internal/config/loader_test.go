package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the repolens config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GITHUB_TOKEN", "")
	dir := filepath.Join(home, ".config", "repolens")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), perm))
	require.NoError(t, os.Chmod(p, perm))
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, filepath.Join(dir, "vectorstore"), cfg.VectorStore.Chromem.Path)
	assert.True(t, cfg.VectorStore.Chromem.Compress)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", cfg.Embeddings.Model)
	assert.Equal(t, 5, cfg.Search.Results)
	assert.Equal(t, 500, cfg.Search.PreviewLength)
	assert.Equal(t, 200, cfg.Search.BasicPreview)
	assert.False(t, cfg.Search.GlobalRank)
	assert.False(t, cfg.GitHub.Token.IsSet())
	assert.Equal(t, 30*time.Second, cfg.GitHub.Timeout.Duration())
}

func TestLoadWithFile_YAML(t *testing.T) {
	dir := setupTestHome(t)
	p := writeConfig(t, dir, `
github:
  token: ghp_fromfile
  timeout: 10s
vectorstore:
  provider: qdrant
  qdrant:
    host: qdrant.internal
    port: 6334
search:
  results: 8
  global_rank: true
`, 0600)

	cfg, err := LoadWithFile(p)
	require.NoError(t, err)

	assert.Equal(t, "ghp_fromfile", cfg.GitHub.Token.Value())
	assert.Equal(t, 10*time.Second, cfg.GitHub.Timeout.Duration())
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, uint64(384), cfg.VectorStore.Qdrant.VectorSize)
	assert.Equal(t, 8, cfg.Search.Results)
	assert.True(t, cfg.Search.GlobalRank)
	// untouched sections keep defaults
	assert.Equal(t, 500, cfg.Search.PreviewLength)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	p := writeConfig(t, dir, "search:\n  results: 8\n", 0600)

	t.Setenv("REPOLENS_SEARCH_RESULTS", "3")
	t.Setenv("REPOLENS_GITHUB_TOKEN", "ghp_fromenv")
	t.Setenv("REPOLENS_VECTORSTORE_CHROMEM_PATH", "/var/lib/repolens")
	t.Setenv("REPOLENS_VECTORSTORE_QDRANT_USE_TLS", "true")

	cfg, err := LoadWithFile(p)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Search.Results)
	assert.Equal(t, "ghp_fromenv", cfg.GitHub.Token.Value())
	assert.Equal(t, "/var/lib/repolens", cfg.VectorStore.Chromem.Path)
	assert.True(t, cfg.VectorStore.Qdrant.UseTLS)
}

func TestLoad_GitHubTokenFallback(t *testing.T) {
	setupTestHome(t)
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ghp_fallback", cfg.GitHub.Token.Value())

	t.Setenv("REPOLENS_GITHUB_TOKEN", "ghp_preferred")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "ghp_preferred", cfg.GitHub.Token.Value())
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	dir := setupTestHome(t)
	p := writeConfig(t, dir, "search:\n  results: 2\n", 0644)

	_, err := LoadWithFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_TooLarge(t *testing.T) {
	dir := setupTestHome(t)
	p := writeConfig(t, dir, "# "+strings.Repeat("x", maxConfigFileSize)+"\n", 0600)

	_, err := LoadWithFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadWithFile_PathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)
	other := filepath.Join(t.TempDir(), "config.yaml")

	_, err := LoadWithFile(other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")

	_, err = LoadWithFile("/etc/repolens-evil/config.yaml")
	assert.Error(t, err)
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	p := writeConfig(t, dir, "vectorstore:\n  provider: pinecone\n", 0600)

	_, err := LoadWithFile(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownVectorStore)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"REPOLENS_GITHUB_TOKEN":               "github.token",
		"REPOLENS_GITHUB_REQUESTS_PER_SECOND": "github.requests_per_second",
		"REPOLENS_VECTORSTORE_PROVIDER":       "vectorstore.provider",
		"REPOLENS_VECTORSTORE_QDRANT_API_KEY": "vectorstore.qdrant.api_key",
		"REPOLENS_SEARCH_GLOBAL_RANK":         "search.global_rank",
		"REPOLENS_DEBUG":                      "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown embedder", func(c *Config) { c.Embeddings.Provider = "bogus" }},
		{"openai without url", func(c *Config) { c.Embeddings.Provider = "openai"; c.Embeddings.BaseURL = "" }},
		{"qdrant bad port", func(c *Config) { c.VectorStore.Provider = "qdrant"; c.VectorStore.Qdrant.Port = 0 }},
		{"tei without url", func(c *Config) { c.Embeddings.Provider = "tei"; c.Embeddings.BaseURL = "" }},
		{"zero results", func(c *Config) { c.Search.Results = 0 }},
		{"zero preview", func(c *Config) { c.Search.PreviewLength = 0 }},
		{"negative burst", func(c *Config) { c.GitHub.Burst = -1 }},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "" }},
		{"telemetry bad protocol", func(c *Config) { c.Telemetry.Protocol = "udp" }},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }},
		{"nats without prefix", func(c *Config) { c.Events.NATSURL = "nats://x"; c.Events.SubjectPrefix = "" }},
	}

	require.NoError(t, Default().Validate())

	openai := Default()
	openai.Embeddings.Provider = "openai"
	require.NoError(t, openai.Validate())

	bogus := Default()
	bogus.Embeddings.Provider = "bogus"
	assert.ErrorIs(t, bogus.Validate(), ErrUnknownEmbedder)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("ghp_abcdef")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "abcdef")

	out, err := json.Marshal(struct{ Token Secret }{s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "abcdef")

	assert.Equal(t, "", Secret("").String())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())
	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
