package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/halverson/readycheck/internal/config"
	"github.com/halverson/readycheck/internal/engines/configaudit"
	"github.com/halverson/readycheck/internal/engines/dbsim"
	"github.com/halverson/readycheck/internal/engines/perf"
	"github.com/halverson/readycheck/internal/engines/secaudit"
	"github.com/halverson/readycheck/internal/engines/staticcheck"
	"github.com/halverson/readycheck/internal/signal"
	"github.com/halverson/readycheck/internal/state"
	"github.com/halverson/readycheck/internal/validation"
)

// timeDisplayUnit keeps printed durations readable.
const timeDisplayUnit = time.Millisecond

var (
	runConfigPath string
	runPhases     string
	runFormat     string
	runOutPath    string
	runTUI        bool
	runNoHistory  bool
)

var runCmd = &cobra.Command{
	Use:   "run [target-dir]",
	Short: "Run the validation pipeline against a target directory",
	Long: `Run executes every enabled phase in order, aggregates the findings
and prints the verdict. The process exits non-zero only when the
production-readiness verdict is NOT_READY.

Dropping a file named "cancel" into <target>/.readycheck/signals stops
the run at the next phase boundary.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidation,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to a configuration file")
	runCmd.Flags().StringVar(&runPhases, "phases", "", "Comma-separated phase list (default: from config)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "Output format: json, markdown or html")
	runCmd.Flags().StringVar(&runOutPath, "out", "", "Write the report to a file instead of stdout")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live progress view while running")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Do not record this run in the history database")
}

func runValidation(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve target path: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)

	execCfg, err := cfg.ExecutionConfig()
	if err != nil {
		return err
	}

	controller := validation.NewController(execCfg, target)
	controller.RegisterEngine(validation.PhaseStaticAnalysis, staticcheck.New())
	controller.RegisterEngine(validation.PhaseDatabaseSimulation, dbsim.New())
	controller.RegisterEngine(validation.PhaseSecurityAudit, secaudit.New())
	controller.RegisterEngine(validation.PhasePerformance, perf.New())
	controller.RegisterEngine(validation.PhaseConfigurationAudit, configaudit.New())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := signal.NewWatcher(target)
	if err != nil {
		return fmt.Errorf("start cancel watcher: %w", err)
	}
	defer watcher.Close()
	go func() {
		select {
		case <-watcher.C():
			cancel()
		case <-ctx.Done():
		}
	}()

	var result *validation.AggregateResult
	if runTUI {
		result, err = runWithTUI(ctx, controller, cfg.TUI.RefreshRate)
	} else {
		result, err = controller.ExecuteValidation(ctx)
	}
	defer controller.Cleanup(context.Background())
	if err != nil {
		return fmt.Errorf("execute validation: %w", err)
	}

	if !runTUI {
		printVerdict(result)
	}

	report, err := controller.ExportResults(execCfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	if runOutPath != "" {
		if err := os.WriteFile(runOutPath, []byte(report), 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("report written to %s\n", runOutPath)
	} else if !runTUI || runFormat != "" {
		fmt.Println(report)
	}

	if cfg.History.Enabled && !runNoHistory {
		if err := saveHistory(cfg, result, target); err != nil {
			// History is convenience, not correctness.
			fmt.Fprintf(os.Stderr, "warning: could not save run history: %v\n", err)
		}
	}

	if result.ProductionReadiness == validation.ReadinessNotReady {
		os.Exit(1)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if runConfigPath != "" {
		return config.LoadFromPath(runConfigPath)
	}
	return config.Load()
}

// applyFlagOverrides lets command flags win over file settings.
func applyFlagOverrides(cfg *config.Config) {
	if runPhases != "" {
		cfg.Validation.Phases = strings.Split(runPhases, ",")
	}
	if runFormat != "" {
		cfg.Validation.OutputFormat = runFormat
	}
}

func saveHistory(cfg *config.Config, result *validation.AggregateResult, target string) error {
	path := cfg.History.Path
	if path == "" {
		path = state.DefaultDBPath()
	}
	db, err := state.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveRun(result, target)
}

func printVerdict(result *validation.AggregateResult) {
	statusColor := color.New(color.FgGreen, color.Bold)
	switch result.OverallStatus {
	case validation.StatusFail:
		statusColor = color.New(color.FgRed, color.Bold)
	case validation.StatusConditional:
		statusColor = color.New(color.FgYellow, color.Bold)
	}

	fmt.Println()
	statusColor.Printf("%s", result.OverallStatus)
	fmt.Printf("  readiness=%s confidence=%s issues=%d (run %s in %s)\n\n",
		result.ProductionReadiness, result.ConfidenceLevel, result.TotalIssues,
		result.ExecutionID, result.TotalDuration.Round(timeDisplayUnit))

	if len(result.CriticalIssues) > 0 {
		color.Red("critical issues:")
		for _, f := range result.CriticalIssues {
			fmt.Printf("  - %s: %s\n", f.Name, f.Message)
		}
		fmt.Println()
	}
}
