// Command repolens indexes GitHub repositories into per-repository vector
// collections and searches them.
//
// Usage:
//
//	repolens repos
//	repolens index octocat/hello-world
//	repolens search "retry with backoff"
//	repolens grep TODO --repo octocat/hello-world
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath overrides ~/.config/repolens/config.yaml
	configPath string
	// logLevel overrides logging.level
	logLevel string
	// jsonOutput prints machine-readable output
	jsonOutput bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Semantic search across your GitHub repositories",
	Long: `repolens walks your GitHub repositories, stores their text files in one
vector collection per repository, and searches one or all of them at once.

Configuration is read from ~/.config/repolens/config.yaml and REPOLENS_*
environment variables. GITHUB_TOKEN is used when no token is configured.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/repolens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("repolens %s (commit %s, built %s)\n", version, gitCommit, buildDate))
}
