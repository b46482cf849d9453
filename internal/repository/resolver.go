package repository

import (
	"context"
	"fmt"
	"path"

	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/fyrsmithlabs/repolens/internal/gitsource"
	"github.com/fyrsmithlabs/repolens/internal/walker"
)

// GitHubResolver resolves repository names through the GitHub API. With
// Clone set, content is read from a shallow in-memory clone instead of the
// contents API.
type GitHubResolver struct {
	Client *ghclient.Client
	Clone  bool
}

var (
	_ Resolver = (*GitHubResolver)(nil)
	_ Lister   = (*GitHubResolver)(nil)
)

// Resolve looks repo up ("owner/name" or a bare name of the authenticated
// user) and returns its short name as the collection name.
func (r *GitHubResolver) Resolve(ctx context.Context, repo string) (string, walker.Source, error) {
	gr, err := r.Client.Get(ctx, repo)
	if err != nil {
		return "", nil, err
	}
	if !r.Clone {
		return gr.Name, r.Client.Source(gr), nil
	}

	src, err := gitsource.Clone(ctx, gitsource.CloneOptions{
		URL:    gr.CloneURL,
		Branch: gr.DefaultBranch,
		Token:  r.Client.Token(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("cloning %s: %w", gr.FullName, err)
	}
	return gr.Name, src, nil
}

// RepositoryNames returns the full names of every repository of the
// authenticated user, sorted by name.
func (r *GitHubResolver) RepositoryNames(ctx context.Context) ([]string, error) {
	repos, err := r.Client.ListRepositories(ctx, ghclient.ListOptions{})
	if err != nil {
		return nil, err
	}
	names := make([]string, len(repos))
	for i, gr := range repos {
		names[i] = gr.FullName
	}
	return names, nil
}

// StaticResolver serves fixed sources by name. Keys may be "owner/name";
// the collection name is the part after the last slash.
type StaticResolver map[string]walker.Source

// Resolve returns the source registered under repo.
func (m StaticResolver) Resolve(_ context.Context, repo string) (string, walker.Source, error) {
	src, ok := m[repo]
	if !ok {
		return "", nil, fmt.Errorf("repository %q: %w", repo, ErrUnknownRepository)
	}
	return path.Base(repo), src, nil
}

// RepositoryNames returns the registered names in no particular order.
func (m StaticResolver) RepositoryNames(context.Context) ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names, nil
}
