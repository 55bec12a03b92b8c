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

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Renders which modules and files change most often",
	Long: `Fetches pull requests with their changed-file lists, flattens them into
one record per (pull request, file), and renders a sunburst or treemap
nested as module > filename > pull request number. Use --json to dump the
record table instead of rendering a chart.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := runLogger(cmd)

		state, _ := cmd.Flags().GetString("state")
		maxPRs, _ := cmd.Flags().GetInt("max-prs")
		chartType, _ := cmd.Flags().GetString("chart")
		output, _ := cmd.Flags().GetString("output")
		asJSON, _ := cmd.Flags().GetBool("json")

		aggregator, err := buildAggregator(cmd, logger)
		if err != nil {
			fatal(err)
		}

		records, err := aggregator.FileRecords(ctx, state, maxPRs)
		if err != nil {
			fatal(fmt.Errorf("failed to aggregate file records: %w", err))
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
		title := fmt.Sprintf("Changed files per module (%s, %s PRs)", repo, state)
		if err := report.WriteFile(output, chartType, title, records, report.FilePath); err != nil {
			fatal(fmt.Errorf("failed to render chart: %w", err))
		}
		fmt.Printf("Wrote %s chart for %d records to %s\n", chartType, len(records), output)
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.Flags().StringP("state", "s", "open", "Pull request state to fetch (open, closed or all)")
	filesCmd.Flags().Int("max-prs", 1500, "Maximum number of pull requests to fetch (0 for no cap)")
	filesCmd.Flags().String("chart", report.ChartSunburst, "Chart type (sunburst or treemap)")
	filesCmd.Flags().StringP("output", "o", "pr-module-map.html", "Output HTML file for the chart")
	filesCmd.Flags().Bool("json", false, "Print the flattened record table as JSON instead of rendering")
}
