package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"phdradar/internal/pipeline"
)

const timeRounding = 10 * time.Millisecond

var (
	syncFullSync bool
	syncNoLLM    bool
	syncSources  []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one batch over the configured sources",
	Long: `Fetch new posts from every configured source, classify them,
persist the results, and resolve duplicates against the recent canonical
window. Source failures are reported but do not abort the run.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := buildApp(ctx, syncNoLLM)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		report := a.runner.Run(ctx, pipeline.Options{
			Sources:     syncSources,
			FullSync:    syncFullSync,
			LLMDisabled: syncNoLLM,
		})
		printReport(report)

		if len(report.Failed()) == len(report.Results) && len(report.Results) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFullSync, "full-sync", false, "ignore saved cursors and refetch everything")
	syncCmd.Flags().BoolVar(&syncNoLLM, "no-llm", false, "skip classification and duplicate verification")
	syncCmd.Flags().StringSliceVar(&syncSources, "source", nil, "restrict the run to the named sources")
	rootCmd.AddCommand(syncCmd)
}

func printReport(report *pipeline.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\n%s\n", cyan("=== Sync Report ==="))
	fmt.Printf("Run:      %s\n", report.RunID)
	fmt.Printf("Duration: %s\n\n", report.Duration.Round(timeRounding))

	for _, result := range report.Results {
		if result.Err != nil {
			fmt.Printf("%s %s: %v\n", red("✗"), result.Source, result.Err)
			continue
		}
		fmt.Printf("%s %s: %d fetched, %d verified, %d unverified, %d rejected, %d duplicates\n",
			green("✓"), result.Source,
			result.Fetched, result.Verified, result.Unverified, result.Rejected, result.Duplicates)
		if result.Failed > 0 {
			fmt.Printf("  %s %d posting(s) failed to persist and will be retried next run\n",
				red("!"), result.Failed)
		}
		if result.Cursor != "" {
			fmt.Printf("  cursor: %s\n", result.Cursor)
		}
	}
	fmt.Println()
}
