package collections

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/vectorstore"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	"go.uber.org/zap"
)

// DefaultResults is the number of hits returned per collection when n <= 0.
const DefaultResults = 5

// ErrStorage wraps every embedding or vector store failure.
var ErrStorage = errors.New("storage error")

// QueryResult holds the hits of one collection, nearest first.
type QueryResult struct {
	Collection string            `json:"collection"`
	Hits       []vectorstore.Hit `json:"hits"`
}

// Store indexes and searches per-repository collections.
type Store struct {
	vectors  vectorstore.Store
	embedder vectorstore.Embedder
	logger   *logging.Logger
}

// New returns a Store over an opened vector store.
func New(vectors vectorstore.Store, embedder vectorstore.Embedder, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		vectors:  vectors,
		embedder: embedder,
		logger:   logger.Named("collections"),
	}
}

// Store persists batch into the collection named repo, creating it on first
// use. Documents are upserted by ID, so storing the same batch twice leaves
// the collection unchanged.
func (s *Store) Store(ctx context.Context, repo string, batch *walker.Batch) (vectorstore.CollectionState, error) {
	ctx = logging.WithRepo(ctx, repo)

	if err := batch.Validate(); err != nil {
		return vectorstore.CollectionExisting, fmt.Errorf("storing %s: %w", repo, err)
	}

	state, err := s.vectors.GetOrCreateCollection(ctx, repo)
	if err != nil {
		return state, fmt.Errorf("%w: opening collection %s: %w", ErrStorage, repo, err)
	}
	s.logger.Debug(ctx, "collection ready", zap.Stringer("state", state))

	if batch.Len() == 0 {
		return state, nil
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, batch.Documents)
	if err != nil {
		return state, fmt.Errorf("%w: embedding %s: %w", ErrStorage, repo, err)
	}
	if len(vectors) != batch.Len() {
		return state, fmt.Errorf("%w: embedding %s: got %d vectors for %d documents", ErrStorage, repo, len(vectors), batch.Len())
	}

	records := make([]vectorstore.Record, batch.Len())
	for i := range records {
		records[i] = vectorstore.Record{
			ID:        batch.IDs[i],
			Content:   batch.Documents[i],
			Metadata:  batch.Metadatas[i],
			Embedding: vectors[i],
		}
	}

	if err := s.vectors.Upsert(ctx, repo, records); err != nil {
		return state, fmt.Errorf("%w: upserting into %s: %w", ErrStorage, repo, err)
	}

	s.logger.Info(ctx, "stored documents", zap.Int("documents", len(records)))
	return state, nil
}

// Search queries the collection named repo. A repository that was never
// indexed yields a warning and a nil result, not an error.
func (s *Store) Search(ctx context.Context, repo, query string, n int) (*QueryResult, error) {
	ctx = logging.WithRepo(ctx, repo)

	if _, err := s.vectors.Count(ctx, repo); err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			s.logger.Warn(ctx, "repository is not indexed")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: looking up %s: %w", ErrStorage, repo, err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrStorage, err)
	}

	hits, err := s.vectors.Query(ctx, repo, vector, resultCount(n))
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		s.logger.Warn(ctx, "repository is not indexed")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %w", ErrStorage, repo, err)
	}
	return &QueryResult{Collection: repo, Hits: hits}, nil
}

// SearchAll embeds query once and queries every collection in enumeration
// order. A collection that fails is logged and skipped; collections with no
// hits are dropped.
func (s *Store) SearchAll(ctx context.Context, query string, n int) ([]QueryResult, error) {
	names, err := s.vectors.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing collections: %w", ErrStorage, err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrStorage, err)
	}

	n = resultCount(n)
	results := make([]QueryResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		hits, err := s.vectors.Query(ctx, name, vector, n)
		if err != nil {
			s.logger.Warn(logging.WithRepo(ctx, name), "collection query failed", zap.Error(err))
			continue
		}
		if len(hits) == 0 {
			continue
		}
		results = append(results, QueryResult{Collection: name, Hits: hits})
	}
	return results, nil
}

// ListIndexedRepos returns the name of every collection.
func (s *Store) ListIndexedRepos(ctx context.Context) ([]string, error) {
	names, err := s.vectors.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing collections: %w", ErrStorage, err)
	}
	return names, nil
}

// Count returns the number of documents stored for repo.
func (s *Store) Count(ctx context.Context, repo string) (int, error) {
	n, err := s.vectors.Count(ctx, repo)
	if err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return 0, fmt.Errorf("%w: counting %s: %w", ErrStorage, repo, err)
	}
	return n, err
}

func resultCount(n int) int {
	if n <= 0 {
		return DefaultResults
	}
	return n
}
