package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/halverson/readycheck/internal/config"
	"github.com/halverson/readycheck/internal/state"
	"github.com/halverson/readycheck/internal/validation"
)

var (
	historyLimit int
	historyShow  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past validation runs",
	Long: `History lists the verdicts of stored runs, newest first.
Use --show <execution-id> to print one run's full JSON report.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "Print the full report for one execution ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path := cfg.History.Path
	if path == "" {
		path = state.DefaultDBPath()
	}

	db, err := state.Open(path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	if historyShow != "" {
		result, err := db.GetRun(historyShow)
		if err != nil {
			return err
		}
		report, err := validation.SerializeResult(result, validation.FormatJSON)
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	}

	records, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no stored runs")
		return nil
	}

	for _, r := range records {
		statusColor := color.New(color.FgGreen)
		switch r.OverallStatus {
		case validation.StatusFail:
			statusColor = color.New(color.FgRed)
		case validation.StatusConditional:
			statusColor = color.New(color.FgYellow)
		}
		fmt.Printf("%s  %s  ", r.StartedAt.Format("2006-01-02 15:04"), r.ExecutionID)
		statusColor.Printf("%-11s", r.OverallStatus)
		fmt.Printf("  %-16s  %-6s  %3d issues  %s\n", r.Readiness, r.Confidence, r.TotalIssues, r.TargetPath)
	}
	return nil
}
