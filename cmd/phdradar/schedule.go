package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"phdradar/internal/pipeline"
)

var scheduleSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the sync batch on a cron schedule",
	Long: `Keep the process running and execute a sync batch on the given
cron spec. Overlapping runs are skipped: a batch that is still in
progress when the next tick fires delays it until it finishes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := buildApp(ctx, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		_, err = scheduler.AddFunc(scheduleSpec, func() {
			report := a.runner.Run(ctx, pipeline.Options{})
			printReport(report)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid cron spec %q: %v\n", scheduleSpec, err)
			os.Exit(1)
		}

		fmt.Printf("Scheduling sync with spec %q; press Ctrl-C to stop\n", scheduleSpec)
		scheduler.Start()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case <-stop:
		case <-ctx.Done():
		}

		// Let an in-flight batch finish before exiting.
		<-scheduler.Stop().Done()
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "spec", "0 * * * *", "cron spec for batch runs")
	rootCmd.AddCommand(scheduleCmd)
}
