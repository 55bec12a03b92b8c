// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/pr-module-map/internal/report"
)

var reviewersCmd = &cobra.Command{
	Use:   "reviewers",
	Short: "Renders which contributors touch which modules",
	Long: `Fetches all pull requests up to the --max-prs cap, collects each one's
human participants (author plus distinct commenters, minus excluded bot
accounts), and renders a sunburst or treemap nested as
contributor > module > filename. Every retained file of a pull request is
attributed to every participant of that pull request.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := runLogger(cmd)

		maxPRs, _ := cmd.Flags().GetInt("max-prs")
		exclude, _ := cmd.Flags().GetStringSlice("exclude-user")
		chartType, _ := cmd.Flags().GetString("chart")
		output, _ := cmd.Flags().GetString("output")
		asJSON, _ := cmd.Flags().GetBool("json")

		aggregator, err := buildAggregator(cmd, logger)
		if err != nil {
			fatal(err)
		}

		records, err := aggregator.ReviewerRecords(ctx, maxPRs, exclude)
		if err != nil {
			fatal(fmt.Errorf("failed to aggregate reviewer records: %w", err))
		}

		if asJSON {
			jsonData, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				fatal(fmt.Errorf("failed to marshal records to JSON: %w", err))
			}
			fmt.Println(string(jsonData))
			return
		}

		repo, _ := cmd.Flags().GetString("repo")
		title := fmt.Sprintf("Contributor activity per module (%s)", repo)
		if err := report.WriteFile(output, chartType, title, records, report.ContributorPath); err != nil {
			fatal(fmt.Errorf("failed to render chart: %w", err))
		}
		fmt.Printf("Wrote %s chart for %d records to %s\n", chartType, len(records), output)
	},
}

func init() {
	rootCmd.AddCommand(reviewersCmd)
	reviewersCmd.Flags().Int("max-prs", 1500, "Maximum number of pull requests to fetch (0 for no cap)")
	reviewersCmd.Flags().StringSlice("exclude-user", []string{"codecov[bot]", "dependabot[bot]"}, "Bot logins excluded from the contributor set")
	reviewersCmd.Flags().String("chart", report.ChartSunburst, "Chart type (sunburst or treemap)")
	reviewersCmd.Flags().StringP("output", "o", "pr-reviewer-map.html", "Output HTML file for the chart")
	reviewersCmd.Flags().Bool("json", false, "Print the flattened record table as JSON instead of rendering")
}
