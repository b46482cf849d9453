package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyRecords indicates an empty or nil record slice.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// collection's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments returns one embedding per input text, in order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is a persistent collection-per-name vector store.
//
// Collections are named after repositories and are never deleted.
// Implementations must treat Upsert as idempotent per record ID.
type Store interface {
	// GetOrCreateCollection opens name, creating it if needed, and reports
	// which of the two happened.
	GetOrCreateCollection(ctx context.Context, name string) (CollectionState, error)

	// Upsert inserts or replaces records by ID. The collection must exist.
	Upsert(ctx context.Context, name string, records []Record) error

	// Query returns up to n hits ordered by ascending distance. n larger
	// than the collection is capped. Returns ErrCollectionNotFound when the
	// collection does not exist; it is never created.
	Query(ctx context.Context, name string, vector []float32, n int) ([]Hit, error)

	// ListCollections returns every collection name in a stable order.
	ListCollections(ctx context.Context) ([]string, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, name string) (int, error)

	// Close releases the store.
	Close() error
}

// CollectionState is the tagged result of GetOrCreateCollection.
type CollectionState int

const (
	// CollectionExisting means the collection was already present.
	CollectionExisting CollectionState = iota
	// CollectionCreated means the call created the collection.
	CollectionCreated
)

func (s CollectionState) String() string {
	if s == CollectionCreated {
		return "created"
	}
	return "existing"
}

// Record is one document with its precomputed embedding.
type Record struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Hit is one query result.
type Hit struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance float32           `json:"distance"`
}

// collectionNamePattern matches GitHub repository names.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)

// ValidateCollectionName checks name is a usable repository name.
// Rejects empty names, path separators, "." and "..".
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if name == "." || name == ".." || !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match ^[A-Za-z0-9._-]{1,100}$", ErrInvalidCollectionName, name)
	}
	return nil
}

func validateRecords(records []Record) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}
	dim := len(records[0].Embedding)
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record %d: empty id", i)
		}
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s: missing embedding", r.ID)
		}
		if len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %s has %d, want %d", ErrDimensionMismatch, r.ID, len(r.Embedding), dim)
		}
	}
	return nil
}
