package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/collections"
	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/embeddings"
	"github.com/fyrsmithlabs/repolens/internal/events"
	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/secrets"
	"github.com/fyrsmithlabs/repolens/internal/telemetry"
	"github.com/fyrsmithlabs/repolens/internal/vectorstore"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/repolens"

// needs declares what a command touches.
type needs struct {
	github  bool
	vectors bool
	clone   bool
}

// app holds the process-wide dependencies of one command run.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	github    *ghclient.Client
	store     vectorstore.Store
	embedder  embeddings.Provider
	publisher *events.Publisher
	service   *repository.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	lc.Level = level
	lc.Format = cfg.Logging.Format

	logger, err := logging.NewLogger(lc)
	if err != nil {
		return nil, err
	}
	if cfg.Telemetry.Logs {
		logger = logger.WithOTel(instrumentationName, global.GetLoggerProvider())
	}
	return logger, nil
}

// newApp wires the dependencies described by n. The caller must close it.
func newApp(ctx context.Context, n needs) (_ *app, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.telemetry, err = telemetry.New(ctx, telemetry.ConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, err
	}

	opts := []repository.Option{
		repository.WithLogger(logger),
		repository.WithTracer(a.telemetry.Tracer(instrumentationName)),
	}

	var resolver repository.Resolver
	if n.github {
		a.github, err = ghclient.NewClient(ctx, ghclient.ConfigFrom(cfg.GitHub), logger)
		if err != nil {
			return nil, err
		}
		gr := &repository.GitHubResolver{Client: a.github, Clone: n.clone}
		resolver = gr
		opts = append(opts, repository.WithLister(gr))
	}

	var store *collections.Store
	if n.vectors {
		a.store, err = vectorstore.NewStore(ctx, cfg.VectorStore, logger.Underlying())
		if err != nil {
			return nil, err
		}
		a.embedder, err = embeddings.NewProvider(ctx, embeddings.ProviderConfig{
			Provider: cfg.Embeddings.Provider,
			Model:    cfg.Embeddings.Model,
			BaseURL:  cfg.Embeddings.BaseURL,
			APIKey:   cfg.Embeddings.APIKey.Value(),
			CacheDir: cfg.Embeddings.CacheDir,
		}, logger.Underlying())
		if err != nil {
			return nil, err
		}
		store = collections.New(a.store, a.embedder, logger)
	}

	if n.github && n.vectors {
		if cfg.Redaction.Enabled {
			allow, err := secrets.LoadAllowlist(cfg.Redaction.Allowlist)
			if err != nil {
				return nil, err
			}
			opts = append(opts, repository.WithRedaction(allow))
		}
		if cfg.Events.NATSURL != "" {
			pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
			if err != nil {
				// events are optional
				logger.Warn(ctx, "index events disabled", zap.Error(err))
			} else {
				a.publisher = pub
				opts = append(opts, repository.WithObserver(pub))
			}
		}
	}

	a.service = repository.NewService(resolver, store, opts...)
	return a, nil
}

func (a *app) close() {
	ctx := context.Background()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn(ctx, "closing event publisher", zap.Error(err))
		}
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			a.logger.Warn(ctx, "closing embedder", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn(ctx, "closing vector store", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn(ctx, "telemetry shutdown", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
