package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"phdradar/internal/config"
	"phdradar/internal/syncstate"
	"phdradar/internal/types"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and manage per-source sync state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved cursor for every source",
	Run: func(cmd *cobra.Command, args []string) {
		store := stateStore()

		names, err := store.Sources()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(names) == 0 {
			fmt.Println("No sync state saved yet")
			return
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n", cyan("=== Sync State ==="))
		for _, name := range names {
			state, err := store.Load(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			cursor := state.LastCursor
			if cursor == "" {
				cursor = "(none)"
			}
			fmt.Printf("%-16s cursor=%s updated=%s\n", name, cursor,
				state.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset <source>",
	Short: "Clear one source's cursor so the next sync refetches everything",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := stateStore().Reset(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Reset cursor for %s\n", args[0])
	},
}

var stateMigrateCmd = &cobra.Command{
	Use:   "migrate <file>",
	Short: "Migrate a legacy state file to the current format",
	Long: `Read a state file in any recognized format, lift it to the current
per-source format, and write the result into the configured state path.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		state, err := syncstate.Migrate(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store := stateStore()
		for name, src := range state.Sources {
			if err := store.Save(name, types.SourceSyncState{
				Version:    syncstate.CurrentVersion,
				LastCursor: src.LastCursor,
			}); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		fmt.Printf("Migrated %d source(s) to version %d\n", len(state.Sources), syncstate.CurrentVersion)
	},
}

func stateStore() *syncstate.Store {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return syncstate.NewStore(cfg.State.Path)
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
	stateCmd.AddCommand(stateMigrateCmd)
	rootCmd.AddCommand(stateCmd)
}
