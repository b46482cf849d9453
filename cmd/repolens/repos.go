package main

import (
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/spf13/cobra"
)

var (
	reposDescending  bool
	reposAffiliation string
)

func init() {
	rootCmd.AddCommand(reposCmd)
	reposCmd.Flags().BoolVar(&reposDescending, "desc", false, "sort names descending")
	reposCmd.Flags().StringVar(&reposAffiliation, "affiliation", "", "owner, collaborator, organization_member (comma separated)")
	reposCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your GitHub repositories",
	Long: `List the repositories of the authenticated user sorted by name
(case-insensitive) with their visibility.

Examples:
  repolens repos
  repolens repos --desc --affiliation owner`,
	Args: cobra.NoArgs,
	RunE: runRepos,
}

func runRepos(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), needs{github: true})
	if err != nil {
		return err
	}
	defer a.close()

	repos, err := a.github.ListRepositories(cmd.Context(), ghclient.ListOptions{
		Descending:  reposDescending,
		Affiliation: reposAffiliation,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), repos)
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Repositories(repos))
	return nil
}
