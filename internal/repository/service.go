package repository

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/collections"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/fyrsmithlabs/repolens/internal/secrets"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/fyrsmithlabs/repolens/internal/repository"

// Service runs indexing and search for the user-facing surfaces.
type Service struct {
	resolver Resolver
	store    *collections.Store

	lister    Lister
	observers []Observer
	redact    bool
	allowlist *secrets.Allowlist
	logger    *logging.Logger
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLister sets the repository enumeration used by SearchBasic when no
// repositories are named.
func WithLister(l Lister) Option {
	return func(s *Service) { s.lister = l }
}

// WithObserver adds an observer of index attempts.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// WithRedaction scrubs secrets from every document before it is embedded.
// allow may be nil. A repository's own .gitleaks.toml is merged in per run.
func WithRedaction(allow *secrets.Allowlist) Option {
	return func(s *Service) {
		s.redact = true
		s.allowlist = allow
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a Service over a resolver and a collection store.
func NewService(resolver Resolver, store *collections.Store, opts ...Option) *Service {
	s := &Service{resolver: resolver, store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// IndexRepository walks repo, keeps its text files and stores them in the
// collection named after it. Re-indexing overwrites documents by id.
//
// extra options are passed to the walker (progress reporting). When the walk
// admits nothing, the result is returned together with ErrNothingToIndex.
func (s *Service) IndexRepository(ctx context.Context, repo string, extra ...walker.Option) (res *IndexResult, err error) {
	ctx = logging.WithOperation(logging.WithRepo(ctx, repo), "index")
	ctx, span := s.tracer.Start(ctx, "repository.index", trace.WithAttributes(attribute.String("repo", repo)))
	start := time.Now()
	defer func() {
		if res != nil {
			res.Duration = time.Since(start)
			span.SetAttributes(attribute.Int("documents", res.Documents), attribute.Int("errors", res.Stats.Errors))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.notify(ctx, res, err)
	}()

	name, src, err := s.resolver.Resolve(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", repo, err)
	}
	res = &IndexResult{Repo: name}

	opts := []walker.Option{walker.WithLogger(s.logger)}
	if s.redact {
		transform, err := s.scrubber(ctx, src, &res.Redacted)
		if err != nil {
			return res, err
		}
		opts = append(opts, walker.WithTransform(transform))
	}
	opts = append(opts, extra...)

	batch, stats, err := walker.Collect(ctx, name, src, opts...)
	res.Stats = stats
	if err != nil {
		return res, fmt.Errorf("walking %s: %w", name, err)
	}
	if batch.Len() == 0 {
		s.logger.Warn(ctx, "no indexable files", zap.Int("files", stats.Files), zap.Int("errors", stats.Errors))
		return res, ErrNothingToIndex
	}

	state, err := s.store.Store(ctx, name, batch)
	if err != nil {
		return res, err
	}
	res.State = state
	res.Documents = batch.Len()

	s.logger.Info(ctx, "indexed repository",
		zap.Int("documents", res.Documents),
		zap.Int("errors", stats.Errors),
		zap.Int("undecodable", stats.Undecodable),
		zap.Stringer("collection", state),
	)
	return res, nil
}

// scrubber builds the redaction transform for one repository and counts
// redacted documents into n.
func (s *Service) scrubber(ctx context.Context, src walker.Source, n *int) (func(walker.Document) walker.Document, error) {
	repoAllow, err := secrets.LoadRepoAllowlist(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loading repository allowlist: %w", err)
	}
	scrub, err := secrets.New(s.allowlist.Merge(repoAllow))
	if err != nil {
		return nil, err
	}

	inner := scrub.Transform(ctx, s.logger)
	return func(d walker.Document) walker.Document {
		out := inner(d)
		if out.Content != d.Content {
			*n++
		}
		return out
	}, nil
}

func (s *Service) notify(ctx context.Context, res *IndexResult, err error) {
	for _, o := range s.observers {
		o.IndexFinished(ctx, res, err)
	}
}

// SearchIndexed queries every indexed collection with one embedding of
// query and merges the per-collection hits.
func (s *Service) SearchIndexed(ctx context.Context, query string, opts SearchOptions) ([]search.Row, error) {
	if query == "" {
		return nil, search.ErrEmptyQuery
	}
	ctx = logging.WithOperation(ctx, "search")
	ctx, span := s.tracer.Start(ctx, "repository.search_indexed")
	defer span.End()

	results, err := s.store.SearchAll(ctx, query, opts.N)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rows := search.Merge(results, opts.merge())
	span.SetAttributes(attribute.Int("collections", len(results)), attribute.Int("rows", len(rows)))
	return rows, nil
}

// SearchRepository queries the single collection of repo, which may be
// given as "owner/name". A repository that was never indexed yields no rows
// and no error.
func (s *Service) SearchRepository(ctx context.Context, repo, query string, opts SearchOptions) ([]search.Row, error) {
	if query == "" {
		return nil, search.ErrEmptyQuery
	}
	repo = path.Base(repo)
	ctx = logging.WithOperation(logging.WithRepo(ctx, repo), "search")
	ctx, span := s.tracer.Start(ctx, "repository.search_repository", trace.WithAttributes(attribute.String("repo", repo)))
	defer span.End()

	result, err := s.store.Search(ctx, repo, query, opts.N)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return search.Merge([]collections.QueryResult{*result}, opts.merge()), nil
}

// SearchBasic walks each repository live and returns the files containing
// query. With no repos named, every repository from the Lister is searched.
// A repository that cannot be resolved or walked carries its error on its
// own result and never affects the others.
func (s *Service) SearchBasic(ctx context.Context, repos []string, query string) ([]BasicRepoResult, error) {
	if query == "" {
		return nil, search.ErrEmptyQuery
	}
	ctx = logging.WithOperation(ctx, "grep")

	if len(repos) == 0 {
		if s.lister == nil {
			return nil, errors.New("no repositories given and no repository lister configured")
		}
		names, err := s.lister.RepositoryNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing repositories: %w", err)
		}
		repos = names
	}

	out := make([]BasicRepoResult, 0, len(repos))
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, s.basicOne(logging.WithRepo(ctx, repo), repo, query))
	}
	return out, nil
}

func (s *Service) basicOne(ctx context.Context, repo, query string) BasicRepoResult {
	name, src, err := s.resolver.Resolve(ctx, repo)
	if err != nil {
		s.logger.Warn(ctx, "skipping repository", zap.Error(err))
		return BasicRepoResult{Repo: repo, Err: err}
	}

	matches, stats, err := search.Basic(ctx, src, query, walker.WithLogger(s.logger))
	if err != nil {
		s.logger.Warn(ctx, "basic search failed", zap.Error(err))
	}
	return BasicRepoResult{Repo: name, Matches: matches, Stats: stats, Err: err}
}

// ListIndexedRepos returns the names of all collections.
func (s *Service) ListIndexedRepos(ctx context.Context) ([]string, error) {
	return s.store.ListIndexedRepos(ctx)
}

// IndexedRepos returns every collection with its document count. A count
// that cannot be read is reported as -1.
func (s *Service) IndexedRepos(ctx context.Context) ([]IndexedRepo, error) {
	names, err := s.store.ListIndexedRepos(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]IndexedRepo, 0, len(names))
	for _, name := range names {
		n, err := s.store.Count(ctx, name)
		if err != nil {
			s.logger.Warn(logging.WithRepo(ctx, name), "counting documents failed", zap.Error(err))
			n = -1
		}
		out = append(out, IndexedRepo{Name: name, Documents: n})
	}
	return out, nil
}

// Tree loads the full structure of repo.
func (s *Service) Tree(ctx context.Context, repo string) (*walker.Node, error) {
	name, src, err := s.resolver.Resolve(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", repo, err)
	}
	return walker.Tree(logging.WithRepo(ctx, repo), name, src)
}
