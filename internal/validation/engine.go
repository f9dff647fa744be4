package validation

import (
	"context"
	"time"
)

// ExecutionConfig holds the immutable per-run settings. It is created
// once at Controller construction and never mutated afterwards.
type ExecutionConfig struct {
	// EnabledPhases lists the phases to execute, in no particular order.
	// Phases not listed are skipped without counting as failures.
	EnabledPhases []PhaseID
	// SkipOptionalChecks tells engines to omit non-essential checks.
	SkipOptionalChecks bool
	// MaxConcurrentUsers is the synthetic load level, consumed by the
	// database-simulation engine only.
	MaxConcurrentUsers int
	// Timeout bounds each engine lifecycle call. Zero means no limit.
	Timeout time.Duration
	// OutputFormat is the default export format.
	OutputFormat OutputFormat
	// LogLevel is the minimum level the execution logger records.
	// Entries below it are dropped at write time.
	LogLevel LogLevel
}

// PhaseEnabled reports whether id is in the enabled set.
func (c ExecutionConfig) PhaseEnabled(id PhaseID) bool {
	for _, p := range c.EnabledPhases {
		if p == id {
			return true
		}
	}
	return false
}

// DefaultConfig returns an ExecutionConfig with all phases enabled and
// moderate defaults.
func DefaultConfig() ExecutionConfig {
	return ExecutionConfig{
		EnabledPhases:      AllPhaseIDs(),
		MaxConcurrentUsers: 10,
		Timeout:            5 * time.Minute,
		OutputFormat:       FormatJSON,
		LogLevel:           LevelInfo,
	}
}

// InitConfig is passed to an engine's Initialize call. It carries the
// subset of run settings an engine may care about; engines ignore
// fields that do not apply to them.
type InitConfig struct {
	// TargetPath is the root of the system under validation.
	TargetPath string
	// MaxConcurrentUsers is the synthetic load level for the
	// database-simulation engine.
	MaxConcurrentUsers int
	// SkipOptionalChecks tells the engine to omit non-essential checks.
	SkipOptionalChecks bool
}

// Engine is the contract every pluggable analysis engine satisfies,
// regardless of role. The Controller calls Initialize, Validate and
// Cleanup in that order, sequentially, once per run.
//
// Validate must not return an error for expected negative findings;
// real problems in the target become FAIL or CONDITIONAL findings
// inside a normally-returned PhaseResult. An error return is reserved
// for "the engine itself could not run".
//
// Cleanup must be safe to call even if Initialize was never called or
// Validate returned an error.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string
	// Initialize acquires the engine's resources.
	Initialize(ctx context.Context, cfg InitConfig) error
	// Validate performs the analysis and returns the phase result.
	Validate(ctx context.Context) (*PhaseResult, error)
	// Cleanup releases the engine's resources.
	Cleanup(ctx context.Context) error
}
