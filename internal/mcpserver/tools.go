package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type searchIndexedInput struct {
	Query      string `json:"query" jsonschema:"Natural language or code query"`
	N          int    `json:"n,omitempty" jsonschema:"Hits per repository (default: 5)"`
	GlobalRank bool   `json:"global_rank,omitempty" jsonschema:"Sort rows across repositories by distance instead of grouping by repository"`
}

type searchRepositoryInput struct {
	Repo  string `json:"repo" jsonschema:"Indexed repository name or owner/name"`
	Query string `json:"query" jsonschema:"Natural language or code query"`
	N     int    `json:"n,omitempty" jsonschema:"Number of hits (default: 5)"`
}

type searchOutput struct {
	Query string       `json:"query" jsonschema:"Query used"`
	Rows  []search.Row `json:"rows" jsonschema:"Matching files with repository, path, preview and distance"`
	Count int          `json:"count" jsonschema:"Number of rows"`
}

type listIndexedInput struct{}

type listIndexedOutput struct {
	Repositories []repository.IndexedRepo `json:"repositories" jsonschema:"Indexed repositories with document counts"`
	Count        int                      `json:"count" jsonschema:"Number of indexed repositories"`
}

type indexRepositoryInput struct {
	Repo string `json:"repo" jsonschema:"Repository as owner/name, or a name owned by the authenticated user"`
}

type indexRepositoryOutput struct {
	Repo        string `json:"repo" jsonschema:"Collection the repository was stored in"`
	Documents   int    `json:"documents" jsonschema:"Documents stored"`
	Redacted    int    `json:"redacted" jsonschema:"Documents with secrets redacted"`
	Files       int    `json:"files" jsonschema:"Files seen during the walk"`
	Errors      int    `json:"errors" jsonschema:"Directories or files that could not be read"`
	Undecodable int    `json:"undecodable" jsonschema:"Text files skipped for invalid UTF-8"`
	State       string `json:"state" jsonschema:"created or existing"`
}

// instrument wraps a tool body with invocation metrics.
func instrument[In, Out any](m *Metrics, name string, fn func(context.Context, In) (Out, error)) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		m.IncrementActive(ctx, name)
		out, err := fn(ctx, in)
		m.DecrementActive(ctx, name)
		m.RecordInvocation(ctx, name, time.Since(start), err)
		return nil, out, err
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_indexed",
		Description: "Semantic search across every indexed repository. The query is embedded once and each repository contributes its closest files.",
	}, instrument(s.metrics, "search_indexed", func(ctx context.Context, in searchIndexedInput) (searchOutput, error) {
		rows, err := s.service.SearchIndexed(ctx, in.Query, repository.SearchOptions{N: in.N, GlobalRank: in.GlobalRank})
		if err != nil {
			return searchOutput{}, fmt.Errorf("search failed: %w", err)
		}
		return newSearchOutput(in.Query, rows), nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_repository",
		Description: "Semantic search within one indexed repository. Returns no rows when the repository was never indexed.",
	}, instrument(s.metrics, "search_repository", func(ctx context.Context, in searchRepositoryInput) (searchOutput, error) {
		if in.Repo == "" {
			return searchOutput{}, errors.New("repo is required")
		}
		rows, err := s.service.SearchRepository(ctx, in.Repo, in.Query, repository.SearchOptions{N: in.N})
		if err != nil {
			return searchOutput{}, fmt.Errorf("search failed: %w", err)
		}
		return newSearchOutput(in.Query, rows), nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_indexed",
		Description: "List indexed repositories and their document counts.",
	}, instrument(s.metrics, "list_indexed", func(ctx context.Context, _ listIndexedInput) (listIndexedOutput, error) {
		repos, err := s.service.IndexedRepos(ctx)
		if err != nil {
			return listIndexedOutput{}, err
		}
		if repos == nil {
			repos = []repository.IndexedRepo{}
		}
		return listIndexedOutput{Repositories: repos, Count: len(repos)}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_repository",
		Description: "Walk a GitHub repository, keep its text files and store them for semantic search. Re-indexing overwrites existing documents.",
	}, instrument(s.metrics, "index_repository", func(ctx context.Context, in indexRepositoryInput) (indexRepositoryOutput, error) {
		if in.Repo == "" {
			return indexRepositoryOutput{}, errors.New("repo is required")
		}
		res, err := s.service.IndexRepository(ctx, in.Repo)
		if err != nil {
			return indexRepositoryOutput{}, fmt.Errorf("index failed: %w", err)
		}
		return indexRepositoryOutput{
			Repo:        res.Repo,
			Documents:   res.Documents,
			Redacted:    res.Redacted,
			Files:       res.Stats.Files,
			Errors:      res.Stats.Errors,
			Undecodable: res.Stats.Undecodable,
			State:       res.State.String(),
		}, nil
	}))
}

func newSearchOutput(query string, rows []search.Row) searchOutput {
	if rows == nil {
		rows = []search.Row{}
	}
	return searchOutput{Query: query, Rows: rows, Count: len(rows)}
}
