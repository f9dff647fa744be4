package main

import (
	"context"
	"fmt"
	"time"

	"github.com/halverson/readycheck/internal/tui"
	"github.com/halverson/readycheck/internal/validation"
)

// runWithTUI executes the pipeline in the background while the live
// progress view polls the controller. The TUI exits once the run
// completes and the final verdict has been shown.
func runWithTUI(ctx context.Context, controller *validation.Controller, refresh time.Duration) (result *validation.AggregateResult, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in progress view: %v", r)
		}
	}()

	program := tui.NewProgram(controller.GetProgress, refresh)

	done := make(chan struct{})
	var runResult *validation.AggregateResult
	var runErr error

	go func() {
		defer close(done)
		runResult, runErr = controller.ExecuteValidation(ctx)

		verdict := "run failed before producing a result"
		if runResult != nil {
			verdict = fmt.Sprintf("%s · readiness=%s · confidence=%s · %d issues",
				runResult.OverallStatus, runResult.ProductionReadiness,
				runResult.ConfidenceLevel, runResult.TotalIssues)
		}
		program.Send(tui.DoneMsg{Verdict: verdict})
	}()

	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	<-done
	return runResult, runErr
}
