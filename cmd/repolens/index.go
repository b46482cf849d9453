package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/repolens/internal/monitor"
	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/fyrsmithlabs/repolens/internal/repository"
	"github.com/fyrsmithlabs/repolens/internal/walker"
	"github.com/spf13/cobra"
)

var (
	indexClone bool
	indexTUI   bool
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexClone, "clone", false, "read content from a shallow in-memory clone instead of the contents API")
	indexCmd.Flags().BoolVar(&indexTUI, "tui", false, "show a live progress dashboard")
}

var indexCmd = &cobra.Command{
	Use:   "index <repo>...",
	Short: "Index repositories for semantic search",
	Long: `Walk each repository, keep its text files and store them in a
collection named after the repository. Re-indexing overwrites documents with
the same path. A repository that fails does not stop the others.

Examples:
  repolens index octocat/hello-world
  repolens index api web --clone
  repolens index api web --tui`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), needs{github: true, vectors: true, clone: indexClone})
	if err != nil {
		return err
	}
	defer a.close()

	index := func(ctx context.Context, repo string, progress walker.Option) (*repository.IndexResult, error) {
		return a.service.IndexRepository(ctx, repo, progress)
	}

	var outcomes []monitor.Outcome
	if indexTUI {
		outcomes, err = monitor.Run(cmd.Context(), cmd.OutOrStdout(), args, index)
		if err != nil {
			return err
		}
	} else {
		outcomes = monitor.Index(cmd.Context(), printer{w: cmd.OutOrStdout()}, args, index)
	}
	return summarize(cmd.OutOrStdout(), outcomes, len(args), indexTUI)
}

// summarize fails when any requested repository was not indexed. With
// verbose set it also writes one line per outcome.
func summarize(w io.Writer, outcomes []monitor.Outcome, requested int, verbose bool) error {
	failed := requested - len(outcomes)
	if verbose {
		for _, o := range outcomes {
			fmt.Fprintln(w, render.IndexSummary(o.Repo, o.Result, o.Err))
		}
	}
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed", failed, requested)
	}
	return nil
}
