// Package walker turns a remote repository tree into a flat, ordered set of
// text documents.
//
// Traversal is depth-first over an explicit work-list, so depth is not bound
// by the call stack and a failing directory only loses its own subtree.
package walker

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"go.uber.org/zap"
)

// Stats accumulates traversal bookkeeping.
type Stats struct {
	Dirs        int `json:"dirs"`
	Files       int `json:"files"`
	Errors      int `json:"errors"`
	Undecodable int `json:"undecodable"`
}

// Progress is reported once per directory visited. The total is unknown
// until the walk completes.
type Progress struct {
	Path  string
	Dirs  int
	Files int
}

// Visitor is called for every file entry in traversal order. Returning an
// *AccessError counts as a recovered error; ErrUndecodable counts as an
// undecodable file; any other error aborts the walk.
type Visitor func(ctx context.Context, e Entry) error

type options struct {
	logger    *logging.Logger
	progress  func(Progress)
	transform func(Document) Document
}

// Option configures a walk.
type Option func(*options)

// WithLogger sets the logger used for non-fatal diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress registers a per-directory progress callback.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) { o.progress = fn }
}

// WithTransform rewrites each admitted document before it is batched.
func WithTransform(fn func(Document) Document) Option {
	return func(o *options) { o.transform = fn }
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o
}

// ErrRootUnavailable is returned when the repository root cannot be listed.
var ErrRootUnavailable = errors.New("repository contents unavailable")

// Walk visits every file reachable from the root of src.
//
// Directory listing failures below the root are logged and counted, and
// traversal continues with the next pending entry. The returned error is
// non-nil only when the root cannot be listed, ctx is done, or visit returns
// an unrecoverable error.
func Walk(ctx context.Context, src Source, visit Visitor, opts ...Option) (Stats, error) {
	o := newOptions(opts)
	var stats Stats

	// root is listed like any other directory
	stack := []Entry{{Path: "", Type: EntryDir}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if e.Type == EntryDir {
			children, err := src.ListDir(ctx, e.Path)
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				if e.Path == "" {
					return stats, fmt.Errorf("%w: %v", ErrRootUnavailable, err)
				}
				stats.Errors++
				o.logger.Warn(ctx, "error accessing directory",
					zap.String("path", e.Path),
					zap.Error(err),
				)
				continue
			}
			stats.Dirs++
			// push reversed so entries pop in listing order
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
			if o.progress != nil {
				o.progress(Progress{Path: e.Path, Dirs: stats.Dirs, Files: stats.Files})
			}
			continue
		}

		stats.Files++
		err := visit(ctx, e)
		switch {
		case err == nil:
		case errors.Is(err, ErrUndecodable):
			stats.Undecodable++
			o.logger.Warn(ctx, "skipping binary file", zap.String("path", e.Path))
		case IsAccessError(err):
			stats.Errors++
			o.logger.Warn(ctx, "error accessing file",
				zap.String("path", e.Path),
				zap.Error(err),
			)
		default:
			return stats, err
		}
	}

	return stats, nil
}

// Collect walks src and returns the documents admitted for repo, in
// traversal order.
func Collect(ctx context.Context, repo string, src Source, opts ...Option) (*Batch, Stats, error) {
	o := newOptions(opts)
	batch := NewBatch(repo, nil)

	visit := func(ctx context.Context, e Entry) error {
		if !IsTextPath(e.Path) {
			return nil
		}
		content, err := src.ReadFile(ctx, e.Path)
		if err != nil {
			if IsAccessError(err) || ctx.Err() != nil {
				return err
			}
			return &AccessError{Op: "read", Path: e.Path, Err: err}
		}
		if !Admit(e.Path, content) {
			return ErrUndecodable
		}
		doc := Document{
			ID:      DocumentID(repo, e.Path),
			Content: string(content),
			Metadata: Metadata{
				Path:      e.Path,
				Repo:      repo,
				Type:      string(EntryFile),
				Extension: Extension(e.Path),
			},
		}
		if o.transform != nil {
			doc = o.transform(doc)
		}
		batch.Add(doc)
		return nil
	}

	stats, err := Walk(ctx, src, visit, opts...)
	return batch, stats, err
}
