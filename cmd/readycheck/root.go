package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "readycheck",
	Short: "Production-readiness validation pipeline",
	Long: `readycheck runs a multi-phase validation pipeline against a target
system: static analysis, database simulation under synthetic load, a
security audit of SQL definitions, performance probes, and a
configuration audit.

Findings from every phase are aggregated into a single verdict with
three parts: overall status (did anything fail), production readiness
(is it safe to ship), and confidence (how much of the intended
analysis actually ran).`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
