// Package gitsource reads a repository from a shallow in-memory clone
// instead of the GitHub contents API.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// ErrEmptyRepository is returned when the clone has no commits.
var ErrEmptyRepository = errors.New("repository has no commits")

// CloneOptions selects what to clone.
type CloneOptions struct {
	URL string
	// Branch defaults to the remote HEAD.
	Branch string
	Token  config.Secret
}

// Source serves one commit's tree as a walker.Source.
type Source struct {
	tree *object.Tree
	// Commit is the hash of the commit being read.
	Commit string
}

var _ walker.Source = (*Source)(nil)

func (o CloneOptions) gitOptions() *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:          o.URL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if o.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(o.Branch)
	}
	if o.Token.IsSet() {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: o.Token.Value()}
	}
	return opts
}

// Clone shallow-clones opts.URL into memory. Nothing touches the disk.
func Clone(ctx context.Context, opts CloneOptions) (*Source, error) {
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts.gitOptions())
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return nil, ErrEmptyRepository
	}
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", opts.URL, err)
	}
	return FromRepository(repo)
}

// FromRepository reads HEAD of an already opened repository.
func FromRepository(repo *git.Repository) (*Source, error) {
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, ErrEmptyRepository
	}
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", head.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", head.Hash(), err)
	}
	return &Source{tree: tree, Commit: head.Hash().String()}, nil
}

// ListDir returns tree entries in git order. Symlinks and submodules are
// omitted.
func (s *Source) ListDir(ctx context.Context, dir string) ([]walker.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := s.tree
	if dir != "" {
		sub, err := s.tree.Tree(dir)
		if err != nil {
			return nil, &walker.AccessError{Op: "list", Path: dir, Err: err}
		}
		t = sub
	}

	entries := make([]walker.Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		var typ walker.EntryType
		switch e.Mode {
		case filemode.Dir:
			typ = walker.EntryDir
		case filemode.Regular, filemode.Executable, filemode.Deprecated:
			typ = walker.EntryFile
		default:
			continue
		}
		entries = append(entries, walker.Entry{Path: path.Join(dir, e.Name), Name: e.Name, Type: typ})
	}
	return entries, nil
}

// ReadFile returns the blob at p.
func (s *Source) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.tree.File(p)
	if err != nil {
		return nil, &walker.AccessError{Op: "read", Path: p, Err: err}
	}
	r, err := f.Reader()
	if err != nil {
		return nil, &walker.AccessError{Op: "read", Path: p, Err: err}
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &walker.AccessError{Op: "read", Path: p, Err: err}
	}
	return data, nil
}
