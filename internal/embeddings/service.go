package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBatchSize bounds the number of inputs per TEI request.
const DefaultBatchSize = 32

// Config holds configuration for the TEI embedding service.
type Config struct {
	// BaseURL of the text-embeddings-inference server.
	BaseURL string
	Model   string
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	Timeout   time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Service generates embeddings through a TEI /embed endpoint.
type Service struct {
	config    Config
	client    *http.Client
	metrics   *Metrics
	logger    *zap.Logger
	dimension int
}

// NewService creates a TEI client.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Service{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		metrics:   NewMetrics(logger),
		logger:    logger,
		dimension: DimensionForModel(config.Model),
	}, nil
}

type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// EmbedDocuments embeds texts in batches of at most BatchSize.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) (_ [][]float32, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_documents", time.Since(start), len(texts), err)
	}()

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += s.config.BatchSize {
		end := min(i+s.config.BatchSize, len(texts))
		vectors, err := s.embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-i {
			return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrEmbeddingFailed, len(vectors), end-i)
		}
		out = append(out, vectors...)
		s.logger.Debug("embedded batch", zap.Int("from", i), zap.Int("to", end))
	}
	return out, nil
}

// EmbedQuery embeds a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) (_ []float32, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_query", time.Since(start), 1, err)
	}()

	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
	}
	return vectors[0], nil
}

func (s *Service) embed(ctx context.Context, inputs interface{}) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return vectors, nil
}

// Dimension returns the dimension reported for the configured model.
func (s *Service) Dimension() int {
	return s.dimension
}

// Close is a no-op; TEI connections are pooled by net/http.
func (s *Service) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
