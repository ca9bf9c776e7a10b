package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hivemind",
	Short: "Multi-specialist task coordinator",
	Long: `Hivemind coordinates composite tasks across a catalogue of
specialist types: it selects a coordination strategy, assigns work,
budgets capacity, and drives execution through quality gates,
consensus voting and conflict resolution.

Core capabilities:
- Rule-based strategy selection per task shape
- Deterministic specialist assignment by competency ranking
- Guaranteed-minimum capacity allocation with burst and failover pools
- Quality gates with bounded rework cycles
- Time-boxed confidence-weighted consensus voting
- Conflict resolution with a fixed outcome precedence`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(consensusCmd)
	rootCmd.AddCommand(versionCmd)
}
