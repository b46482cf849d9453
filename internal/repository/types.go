package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/fyrsmithlabs/repolens/internal/vectorstore"
	"github.com/fyrsmithlabs/repolens/internal/walker"
)

var (
	// ErrNothingToIndex is returned when a walk admits no documents.
	ErrNothingToIndex = errors.New("no indexable files found")

	// ErrUnknownRepository is returned by StaticResolver for unregistered names.
	ErrUnknownRepository = errors.New("unknown repository")
)

// Resolver turns a repository name into a content source. The returned
// name is the collection the repository is stored in.
type Resolver interface {
	Resolve(ctx context.Context, repo string) (name string, src walker.Source, err error)
}

// Lister enumerates the repositories SearchBasic covers when none are named.
type Lister interface {
	RepositoryNames(ctx context.Context) ([]string, error)
}

// Observer is told about every finished index attempt.
type Observer interface {
	IndexFinished(ctx context.Context, res *IndexResult, err error)
}

// IndexResult summarizes one IndexRepository call. It is returned alongside
// ErrNothingToIndex so callers can still report the walk stats.
type IndexResult struct {
	Repo      string                      `json:"repo"`
	Documents int                         `json:"documents"`
	Redacted  int                         `json:"redacted"`
	Stats     walker.Stats                `json:"stats"`
	State     vectorstore.CollectionState `json:"-"`
	Duration  time.Duration               `json:"duration"`
}

// SearchOptions controls semantic search. Zero values use defaults.
type SearchOptions struct {
	// N is the number of hits per collection.
	N             int
	PreviewLength int
	// GlobalRank sorts rows across collections by distance.
	GlobalRank bool
}

func (o SearchOptions) merge() search.MergeOptions {
	return search.MergeOptions{
		PreviewLength: o.PreviewLength,
		PerCollection: o.N,
		GlobalRank:    o.GlobalRank,
	}
}

// BasicRepoResult is the live-search outcome for one repository.
type BasicRepoResult struct {
	Repo    string              `json:"repo"`
	Matches []search.BasicMatch `json:"matches"`
	Stats   walker.Stats        `json:"stats"`
	Err     error               `json:"-"`
}

// IndexedRepo is one collection and its size.
type IndexedRepo struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}
