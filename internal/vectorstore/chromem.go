package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("repolens.vectorstore.chromem")

// errPrecomputed is returned by the embedding func handed to chromem. Every
// record and query arrives with its vector, so chromem must never embed.
var errPrecomputed = errors.New("chromem: embeddings must be precomputed")

// ChromemConfig holds configuration for the embedded chromem-go database.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression of stored documents.
	Compress bool
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: chromem path required", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store with chromem-go. Every document is written
// to disk as it is added, so an interrupted index leaves a readable,
// partially filled collection.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger
}

// NewChromemStore opens (or creates) the database under config.Path.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if err := os.MkdirAll(config.Path, 0700); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", config.Path, err)
	}

	db, err := chromem.NewPersistentDB(config.Path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	logger.Debug("ChromemStore initialized",
		zap.String("path", config.Path),
		zap.Bool("compress", config.Compress),
	)

	return &ChromemStore{db: db, config: config, logger: logger}, nil
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errPrecomputed
}

// GetOrCreateCollection implements Store.
func (s *ChromemStore) GetOrCreateCollection(ctx context.Context, name string) (state CollectionState, err error) {
	defer observe("chromem", "get_or_create", time.Now(), &err)
	_, span := chromemTracer.Start(ctx, "ChromemStore.GetOrCreateCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	if err := ValidateCollectionName(name); err != nil {
		return CollectionExisting, err
	}

	if s.db.GetCollection(name, noEmbedding) != nil {
		span.SetAttributes(attribute.String("state", CollectionExisting.String()))
		return CollectionExisting, nil
	}

	if _, err := s.db.CreateCollection(name, map[string]string{"repo": name}, noEmbedding); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CollectionExisting, fmt.Errorf("creating collection %s: %w", name, err)
	}

	s.logger.Debug("created chromem collection", zap.String("collection", name))
	span.SetAttributes(attribute.String("state", CollectionCreated.String()))
	return CollectionCreated, nil
}

// Upsert implements Store.
func (s *ChromemStore) Upsert(ctx context.Context, name string, records []Record) (err error) {
	defer observe("chromem", "upsert", time.Now(), &err)
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("record_count", len(records)),
	)

	if err := validateRecords(records); err != nil {
		return err
	}

	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		return fmt.Errorf("upserting into %s: %w", name, ErrCollectionNotFound)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
		}
	}

	// chromem replaces documents with an existing ID
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents to %s: %w", name, err)
	}

	RecordsUpserted.WithLabelValues("chromem").Add(float64(len(records)))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query implements Store.
func (s *ChromemStore) Query(ctx context.Context, name string, vector []float32, n int) (hits []Hit, err error) {
	defer observe("chromem", "query", time.Now(), &err)
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("n", n),
	)

	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		span.SetStatus(codes.Error, "collection not found")
		return nil, fmt.Errorf("querying %s: %w", name, ErrCollectionNotFound)
	}

	// chromem requires nResults <= document count
	count := collection.Count()
	if count == 0 {
		return []Hit{}, nil
	}
	if n > count {
		n = count
	}

	results, err := collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", name, err)
	}

	hits = make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Distance: 1 - r.Similarity,
		}
	}
	// ties broken by id so equal scores come back in a stable order
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// ListCollections implements Store. Names are sorted.
func (s *ChromemStore) ListCollections(ctx context.Context) (names []string, err error) {
	defer observe("chromem", "list", time.Now(), &err)
	_, span := chromemTracer.Start(ctx, "ChromemStore.ListCollections")
	defer span.End()

	collections := s.db.ListCollections()
	names = make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	span.SetAttributes(attribute.Int("collection_count", len(names)))
	return names, nil
}

// Count implements Store.
func (s *ChromemStore) Count(ctx context.Context, name string) (n int, err error) {
	defer observe("chromem", "count", time.Now(), &err)
	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		return 0, fmt.Errorf("counting %s: %w", name, ErrCollectionNotFound)
	}
	return collection.Count(), nil
}

// Close implements Store. chromem persists on every write, so there is
// nothing to flush.
func (s *ChromemStore) Close() error {
	return nil
}

var _ Store = (*ChromemStore)(nil)
