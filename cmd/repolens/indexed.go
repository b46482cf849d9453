package main

import (
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(indexedCmd)
	indexedCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

var indexedCmd = &cobra.Command{
	Use:   "indexed",
	Short: "List indexed repositories",
	Args:  cobra.NoArgs,
	RunE:  runIndexed,
}

func runIndexed(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), needs{vectors: true})
	if err != nil {
		return err
	}
	defer a.close()

	repos, err := a.service.IndexedRepos(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), repos)
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Indexed(repos))
	return nil
}
