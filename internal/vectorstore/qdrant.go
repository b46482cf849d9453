package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("repolens.vectorstore.qdrant")

// payload keys reserved for record fields
const (
	payloadID      = "id"
	payloadContent = "content"
)

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), not the REST port.
	Port int

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// VectorSize is the dimensionality of embeddings. Must match the
	// embedder (384 for all-MiniLM-L6-v2).
	VectorSize uint64

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int

	// RetryBackoff is the initial backoff; doubles on each retry.
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// PointID maps a document ID to a stable Qdrant point UUID. Qdrant only
// accepts integers and UUIDs, so IDs such as "repo_src/a.py" are hashed
// with UUIDv5; the original ID travels in the payload.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

// QdrantStore implements Store with Qdrant's native gRPC client.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantStore connects to Qdrant and performs a health check.
func NewQdrantStore(ctx context.Context, config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if !config.UseTLS {
		logger.Warn("Qdrant gRPC using plaintext (TLS disabled)", zap.String("host", config.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{client: client, config: config, logger: logger}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(hctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	return store, nil
}

// retryOperation retries operation on transient errors with exponential
// backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, name string, operation func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return err
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}
		s.logger.Debug("retrying qdrant operation", zap.String("op", name), zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// GetOrCreateCollection implements Store.
func (s *QdrantStore) GetOrCreateCollection(ctx context.Context, name string) (state CollectionState, err error) {
	defer observe("qdrant", "get_or_create", time.Now(), &err)
	ctx, span := tracer.Start(ctx, "QdrantStore.GetOrCreateCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	if err := ValidateCollectionName(name); err != nil {
		return CollectionExisting, err
	}

	var exists bool
	err = s.retryOperation(ctx, "collection_exists", func() error {
		var err error
		exists, err = s.client.CollectionExists(ctx, name)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CollectionExisting, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		return CollectionExisting, nil
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.config.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CollectionExisting, fmt.Errorf("creating collection %s: %w", name, err)
	}

	span.SetAttributes(attribute.String("state", CollectionCreated.String()))
	return CollectionCreated, nil
}

// Upsert implements Store.
func (s *QdrantStore) Upsert(ctx context.Context, name string, records []Record) (err error) {
	defer observe("qdrant", "upsert", time.Now(), &err)
	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("record_count", len(records)),
	)

	if err := validateRecords(records); err != nil {
		return err
	}
	if uint64(len(records[0].Embedding)) != s.config.VectorSize {
		return fmt.Errorf("%w: got %d, collection expects %d", ErrDimensionMismatch, len(records[0].Embedding), s.config.VectorSize)
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: toPayload(r),
		}
	}

	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isNotFound(err) {
			return fmt.Errorf("upserting into %s: %w", name, ErrCollectionNotFound)
		}
		return fmt.Errorf("upserting points to collection %s: %w", name, err)
	}

	RecordsUpserted.WithLabelValues("qdrant").Add(float64(len(records)))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query implements Store.
func (s *QdrantStore) Query(ctx context.Context, name string, vector []float32, n int) (hits []Hit, err error) {
	defer observe("qdrant", "query", time.Now(), &err)
	ctx, span := tracer.Start(ctx, "QdrantStore.Query")
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

	var points []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: name,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(n)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("querying %s: %w", name, ErrCollectionNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", name, err)
	}

	hits = make([]Hit, len(points))
	for i, p := range points {
		hits[i] = fromPayload(p.Payload)
		hits[i].Distance = 1 - p.Score
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// ListCollections implements Store. Names are sorted.
func (s *QdrantStore) ListCollections(ctx context.Context) (names []string, err error) {
	defer observe("qdrant", "list", time.Now(), &err)
	ctx, span := tracer.Start(ctx, "QdrantStore.ListCollections")
	defer span.End()

	err = s.retryOperation(ctx, "list_collections", func() error {
		var err error
		names, err = s.client.ListCollections(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	sort.Strings(names)

	span.SetAttributes(attribute.Int("collection_count", len(names)))
	return names, nil
}

// Count implements Store.
func (s *QdrantStore) Count(ctx context.Context, name string) (n int, err error) {
	defer observe("qdrant", "count", time.Now(), &err)
	var count uint64
	err = s.retryOperation(ctx, "count", func() error {
		var err error
		count, err = s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: name,
			Exact:          qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("counting %s: %w", name, ErrCollectionNotFound)
		}
		return 0, fmt.Errorf("counting %s: %w", name, err)
	}
	return int(count), nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func stringValue(v string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
}

func toPayload(r Record) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		payload[k] = stringValue(v)
	}
	payload[payloadID] = stringValue(r.ID)
	payload[payloadContent] = stringValue(r.Content)
	return payload
}

func fromPayload(payload map[string]*qdrant.Value) Hit {
	hit := Hit{Metadata: make(map[string]string, len(payload))}
	for k, v := range payload {
		s, ok := v.GetKind().(*qdrant.Value_StringValue)
		if !ok {
			continue
		}
		switch k {
		case payloadID:
			hit.ID = s.StringValue
		case payloadContent:
			hit.Content = s.StringValue
		default:
			hit.Metadata[k] = s.StringValue
		}
	}
	return hit
}

var _ Store = (*QdrantStore)(nil)
