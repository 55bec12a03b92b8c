// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/pr-module-map/internal/domain"
	"github.com/naka-gawa/pr-module-map/internal/gateway"
	"github.com/naka-gawa/pr-module-map/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "pr-module-map",
	Short: "A CLI tool to map GitHub pull request activity onto modules.",
	Long: `pr-module-map fetches pull request metadata and changed-file lists from
a GitHub repository, attributes every file to a coarse module label, and
renders hierarchical sunburst/treemap charts showing which modules, files,
and contributors are most active.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("repo", "r", "", "Target GitHub repository as owner/name (required)")
	rootCmd.MarkPersistentFlagRequired("repo")
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}

// runLogger builds the per-run logger: silent unless --verbose is set.
func runLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// buildAggregator wires the GitHub gateway and the aggregator from the
// persistent flags and the GITHUB_TOKEN environment variable. A local
// .env file is honored if present.
func buildAggregator(cmd *cobra.Command, logger *log.Logger) (*usecase.Aggregator, error) {
	_ = godotenv.Load()
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}

	repo, _ := cmd.Flags().GetString("repo")
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid --repo %q, expected owner/name", repo)
	}

	githubGateway, err := gateway.NewGitHubGateway(owner, name, token, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	return usecase.NewAggregator(githubGateway, domain.DefaultModuleRules(), logger), nil
}

// fatal prints the error to standard error and aborts the run.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
