package main

import (
	"fmt"

	"github.com/fyrsmithlabs/repolens/internal/render"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree <repo>",
	Short: "Show the file structure of a repository",
	Long: `Show the directory tree of a repository. Directories that cannot be
listed are shown with their error instead of stopping the listing.

Examples:
  repolens tree octocat/hello-world
  repolens tree my-project`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), needs{github: true})
	if err != nil {
		return err
	}
	defer a.close()

	root, err := a.service.Tree(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Tree(root))
	return nil
}
