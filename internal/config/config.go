// Package config loads repolens configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete repolens configuration.
type Config struct {
	GitHub      GitHubConfig      `koanf:"github"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Search      SearchConfig      `koanf:"search"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Redaction   RedactionConfig   `koanf:"redaction"`
	Server      ServerConfig      `koanf:"server"`
	Events      EventsConfig      `koanf:"events"`
}

// GitHubConfig configures the GitHub API client.
type GitHubConfig struct {
	Token             Secret   `koanf:"token"`
	BaseURL           string   `koanf:"base_url"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Burst             int      `koanf:"burst"`
	MaxRetries        int      `koanf:"max_retries"`
	Timeout           Duration `koanf:"timeout"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Provider string        `koanf:"provider"` // "chromem" or "qdrant"
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig configures the Qdrant gRPC client.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	UseTLS     bool   `koanf:"use_tls"`
	APIKey     Secret `koanf:"api_key"`
	VectorSize uint64 `koanf:"vector_size"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider string `koanf:"provider"` // "fastembed", "tei" or "openai"
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   Secret `koanf:"api_key"`
	CacheDir string `koanf:"cache_dir"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Results       int  `koanf:"results"`
	PreviewLength int  `koanf:"preview_length"`
	BasicPreview  int  `koanf:"basic_preview"`
	GlobalRank    bool `koanf:"global_rank"`
}

// LoggingConfig is the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"` // "grpc" or "http/protobuf"
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
	Logs        bool   `koanf:"logs"`
}

// RedactionConfig controls secret scrubbing of file content before it is
// embedded.
type RedactionConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Allowlist string `koanf:"allowlist"` // TOML file
}

// ServerConfig configures `repolens serve`.
type ServerConfig struct {
	Addr            string   `koanf:"addr"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// EventsConfig configures index event publishing. Empty NATSURL disables it.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// Validation errors.
var (
	ErrUnknownVectorStore = errors.New("unknown vectorstore provider")
	ErrUnknownEmbedder    = errors.New("unknown embeddings provider")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			RequestsPerSecond: 10,
			Burst:             5,
			MaxRetries:        3,
			Timeout:           Duration(30 * time.Second),
		},
		VectorStore: VectorStoreConfig{
			Provider: "chromem",
			Chromem: ChromemConfig{
				Path:     "~/.config/repolens/vectorstore",
				Compress: true,
			},
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				VectorSize: 384,
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    "sentence-transformers/all-MiniLM-L6-v2",
			BaseURL:  "http://localhost:8080",
		},
		Search: SearchConfig{
			Results:       5,
			PreviewLength: 500,
			BasicPreview:  200,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			ServiceName: "repolens",
			Insecure:    true,
		},
		Redaction: RedactionConfig{Enabled: true},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8086",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Events: EventsConfig{SubjectPrefix: "repolens"},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownVectorStore, c.VectorStore.Provider))
	}
	switch c.Embeddings.Provider {
	case "fastembed", "tei", "openai":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownEmbedder, c.Embeddings.Provider))
	}

	if c.VectorStore.Provider == "qdrant" {
		if c.VectorStore.Qdrant.Port <= 0 || c.VectorStore.Qdrant.Port > 65535 {
			errs = append(errs, fmt.Errorf("qdrant port out of range: %d", c.VectorStore.Qdrant.Port))
		}
		if c.VectorStore.Qdrant.VectorSize == 0 {
			errs = append(errs, errors.New("qdrant vector_size must be > 0"))
		}
	}
	if (c.Embeddings.Provider == "tei" || c.Embeddings.Provider == "openai") && c.Embeddings.BaseURL == "" {
		errs = append(errs, fmt.Errorf("embeddings base_url is required for %s", c.Embeddings.Provider))
	}
	if c.Search.Results <= 0 {
		errs = append(errs, fmt.Errorf("search results must be > 0, got %d", c.Search.Results))
	}
	if c.Search.PreviewLength <= 0 || c.Search.BasicPreview <= 0 {
		errs = append(errs, errors.New("preview lengths must be > 0"))
	}
	if c.GitHub.RequestsPerSecond < 0 || c.GitHub.Burst < 0 || c.GitHub.MaxRetries < 0 {
		errs = append(errs, errors.New("github rate limit settings cannot be negative"))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry endpoint is required when enabled"))
	}
	if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
		errs = append(errs, fmt.Errorf("telemetry protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server addr cannot be empty"))
	}
	if c.Events.NATSURL != "" && c.Events.SubjectPrefix == "" {
		errs = append(errs, errors.New("events subject_prefix is required with nats_url"))
	}

	return errors.Join(errs...)
}
