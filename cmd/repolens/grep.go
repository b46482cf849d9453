package main

import (
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/spf13/cobra"
)

var grepRepos []string

func init() {
	rootCmd.AddCommand(grepCmd)
	grepCmd.Flags().StringArrayVar(&grepRepos, "repo", nil, "repository to search (repeatable, default all of yours)")
	grepCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

var grepCmd = &cobra.Command{
	Use:   "grep <query>",
	Short: "Case-insensitive text search without an index",
	Long: `Walk repositories live and list the text files containing the query,
with the first matching lines. Nothing is read from or written to the vector
store. A repository that cannot be read is reported and the rest continue.

Examples:
  repolens grep TODO
  repolens grep "deprecated" --repo api --repo web`,
	Args: cobra.ExactArgs(1),
	RunE: runGrep,
}

func runGrep(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), needs{github: true})
	if err != nil {
		return err
	}
	defer a.close()

	results, err := a.service.SearchBasic(cmd.Context(), grepRepos, args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), results)
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.BasicResults(results, a.cfg.Search.BasicPreview))
	return nil
}
