package main

import (
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchRepo       string
	searchN          int
	searchPreview    int
	searchGlobalRank bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&searchRepo, "repo", "", "search a single indexed repository (name or owner/name)")
	cmd.Flags().IntVarP(&searchN, "n", "n", 0, "results per repository (default search.results)")
	cmd.Flags().IntVar(&searchPreview, "preview", 0, "preview length in characters (default search.preview_length)")
	cmd.Flags().BoolVar(&searchGlobalRank, "global-rank", false, "sort all rows by distance instead of grouping by repository")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over indexed repositories",
	Long: `Embed the query once and return the closest files of every indexed
repository, or of a single repository with --repo. Rows are grouped by
repository in collection order unless --global-rank is set.

Examples:
  repolens search "parse config file"
  repolens search "http retry" --repo api -n 10
  repolens search "jwt validation" --global-rank`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

// searchOptions overlays explicitly set flags on the configured defaults.
// An explicit -n or --preview must be positive.
func searchOptions(cmd *cobra.Command, cfg searchDefaults) (repository.SearchOptions, error) {
	opts := repository.SearchOptions{N: cfg.N, PreviewLength: cfg.Preview, GlobalRank: cfg.GlobalRank}
	if cmd.Flags().Changed("n") {
		if searchN <= 0 {
			return opts, fmt.Errorf("-n must be > 0, got %d", searchN)
		}
		opts.N = searchN
	}
	if cmd.Flags().Changed("preview") {
		if searchPreview <= 0 {
			return opts, fmt.Errorf("--preview must be > 0, got %d", searchPreview)
		}
		opts.PreviewLength = searchPreview
	}
	if cmd.Flags().Changed("global-rank") {
		opts.GlobalRank = searchGlobalRank
	}
	return opts, nil
}

type searchDefaults struct {
	N          int
	Preview    int
	GlobalRank bool
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), needs{vectors: true})
	if err != nil {
		return err
	}
	defer a.close()

	opts, err := searchOptions(cmd, searchDefaults{
		N:          a.cfg.Search.Results,
		Preview:    a.cfg.Search.PreviewLength,
		GlobalRank: a.cfg.Search.GlobalRank,
	})
	if err != nil {
		return err
	}

	var rows []search.Row
	if searchRepo != "" {
		rows, err = a.service.SearchRepository(cmd.Context(), searchRepo, args[0], opts)
	} else {
		rows, err = a.service.SearchIndexed(cmd.Context(), args[0], opts)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		if rows == nil {
			rows = []search.Row{}
		}
		return outputJSON(cmd.OutOrStdout(), rows)
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Rows(rows))
	return nil
}
