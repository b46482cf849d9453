package ghclient

import (
	"context"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/repolens/internal/walker"
	"github.com/google/go-github/v57/github"
)

// RepoSource reads one repository through the contents API.
type RepoSource struct {
	client *Client
	owner  string
	name   string
	ref    string
}

var _ walker.Source = (*RepoSource)(nil)

// Source returns a walker.Source over repo at its default branch.
func (c *Client) Source(repo Repository) *RepoSource {
	return &RepoSource{client: c, owner: repo.Owner, name: repo.Name, ref: repo.DefaultBranch}
}

func (s *RepoSource) opts() *github.RepositoryContentGetOptions {
	if s.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: s.ref}
}

// ListDir lists a directory. Symlinks and submodules are omitted.
func (s *RepoSource) ListDir(ctx context.Context, path string) ([]walker.Entry, error) {
	var dir []*github.RepositoryContent
	_, err := s.client.do(ctx, "list_dir", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		_, dir, resp, err = s.client.gh.Repositories.GetContents(ctx, s.owner, s.name, path, s.opts())
		return resp, err
	})
	if err != nil {
		return nil, &walker.AccessError{Op: "list", Path: path, Err: err}
	}
	if dir == nil {
		return nil, &walker.AccessError{Op: "list", Path: path, Err: fmt.Errorf("%s is not a directory", path)}
	}

	entries := make([]walker.Entry, 0, len(dir))
	for _, c := range dir {
		var typ walker.EntryType
		switch c.GetType() {
		case "dir":
			typ = walker.EntryDir
		case "file":
			typ = walker.EntryFile
		default:
			continue
		}
		entries = append(entries, walker.Entry{Path: c.GetPath(), Name: c.GetName(), Type: typ})
	}
	return entries, nil
}

// ReadFile returns the decoded bytes of a file. Files over 1MB, which the
// contents API does not inline, are downloaded separately.
func (s *RepoSource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var file *github.RepositoryContent
	_, err := s.client.do(ctx, "read_file", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		file, _, resp, err = s.client.gh.Repositories.GetContents(ctx, s.owner, s.name, path, s.opts())
		return resp, err
	})
	if err != nil {
		return nil, &walker.AccessError{Op: "read", Path: path, Err: err}
	}
	if file == nil {
		return nil, &walker.AccessError{Op: "read", Path: path, Err: fmt.Errorf("%s is not a file", path)}
	}

	if file.GetEncoding() == "none" {
		return s.download(ctx, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, &walker.AccessError{Op: "read", Path: path, Err: err}
	}
	return []byte(content), nil
}

func (s *RepoSource) download(ctx context.Context, path string) ([]byte, error) {
	var body io.ReadCloser
	_, err := s.client.do(ctx, "download_file", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		body, resp, err = s.client.gh.Repositories.DownloadContents(ctx, s.owner, s.name, path, s.opts())
		return resp, err
	})
	if err != nil {
		return nil, &walker.AccessError{Op: "read", Path: path, Err: err}
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &walker.AccessError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
