// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregates pull request activity per module and outputs as JSON",
	Long: `Aggregates pull requests per module (each pull request counts toward the
most frequent module of its file list) along with file-touch counts and
mean/median comment statistics, and outputs the result in JSON format.
Comment statistics are weighted per file touch: a pull request's comment
count contributes once for every retained file it changed in the module.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := runLogger(cmd)

		state, _ := cmd.Flags().GetString("state")
		maxPRs, _ := cmd.Flags().GetInt("max-prs")

		aggregator, err := buildAggregator(cmd, logger)
		if err != nil {
			fatal(err)
		}

		summaries, err := aggregator.Summarize(ctx, state, maxPRs)
		if err != nil {
			fatal(fmt.Errorf("failed to summarize pull requests: %w", err))
		}

		// Marshal the results into a pretty-printed JSON string.
		jsonData, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			fatal(fmt.Errorf("failed to marshal results to JSON: %w", err))
		}

		// Print the final JSON to standard output.
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringP("state", "s", "all", "Pull request state to fetch (open, closed or all)")
	summaryCmd.Flags().Int("max-prs", 1500, "Maximum number of pull requests to fetch (0 for no cap)")
}
