package main

import (
	"github.com/fyrsmithlabs/repolens/internal/mcpserver"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run a Model Context Protocol server over stdin/stdout exposing the
search_indexed, search_repository, list_indexed and index_repository tools.
Logs go to stderr.

Example client configuration:
  {"command": "repolens", "args": ["mcp"]}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), needs{github: true, vectors: true})
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := mcpserver.NewServer(&mcpserver.Config{
		Name:    "repolens",
		Version: version,
		Logger:  a.logger,
		Metrics: mcpserver.NewMetricsWithMeter(a.telemetry.Meter(instrumentationName), a.logger.Underlying()),
	}, a.service)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
