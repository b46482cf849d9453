package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"go.uber.org/zap"
)

// NewStore creates the Store selected by cfg.Provider:
//   - "chromem" (default): embedded store under cfg.Chromem.Path
//   - "qdrant": external Qdrant server
//
// Example usage:
//
//	cfg, err := config.Load()
//	store, err := vectorstore.NewStore(ctx, cfg.VectorStore, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func NewStore(ctx context.Context, cfg config.VectorStoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "chromem", "":
		store, err := NewChromemStore(ChromemConfig{
			Path:     cfg.Chromem.Path,
			Compress: cfg.Chromem.Compress,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating chromem store: %w", err)
		}
		return store, nil

	case "qdrant":
		store, err := NewQdrantStore(ctx, QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey.Value(),
			UseTLS:     cfg.Qdrant.UseTLS,
			VectorSize: cfg.Qdrant.VectorSize,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating qdrant store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown vectorstore provider %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Provider)
	}
}
