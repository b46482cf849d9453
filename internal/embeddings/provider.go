package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/repolens/internal/vectorstore"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is "fastembed", "tei" or "openai".
	Provider string
	Model    string
	// BaseURL is the TEI or OpenAI-compatible endpoint.
	BaseURL string
	// APIKey is sent to OpenAI-compatible endpoints.
	APIKey string
	// CacheDir is the model cache directory (fastembed only).
	CacheDir string
}

// knownDimensions maps model names to their output size.
var knownDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"text-embedding-3-small":                 1536,
	"text-embedding-3-large":                 3072,
	"text-embedding-ada-002":                 1536,
}

// DimensionForModel returns the embedding dimension for a model name,
// guessing from size hints for unknown models.
func DimensionForModel(model string) int {
	if dim, ok := knownDimensions[model]; ok {
		return dim
	}
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "large"):
		return 1024
	case strings.Contains(lower, "base"):
		return 768
	default:
		return 384
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	switch cfg.Provider {
	case "fastembed", "":
		p, err := NewFastEmbedProvider(ctx, FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "tei":
		s, err := NewService(Config{BaseURL: cfg.BaseURL, Model: cfg.Model}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "openai":
		o, err := NewOpenAIProvider(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
