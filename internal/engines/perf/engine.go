// Package perf implements the performance-analysis engine. It runs
// local timing and allocation probes and, when the database-simulation
// phase has left its summary artifact behind, folds the measured
// throughput into the analysis. The phase is declared dependent on
// database simulation for exactly that artifact.
package perf

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/halverson/readycheck/internal/engines/dbsim"
	"github.com/halverson/readycheck/internal/validation"
)

const (
	// hashRounds sizes the CPU probe.
	hashRounds = 20000
	// cpuProbeWarn flags a host slower than this on the CPU probe.
	cpuProbeWarn = 2 * time.Second
	// allocWarnBytes flags the allocation probe above this footprint.
	allocWarnBytes = 64 << 20
	// dbQueryWarn flags average simulated query latency above this.
	dbQueryWarn = 10 * time.Millisecond
)

// Engine is the performance-analysis engine.
type Engine struct {
	workDir     string
	initialized bool
}

// New creates a performance-analysis engine.
func New() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "performance-analysis"
}

// Initialize records where upstream artifacts live.
func (e *Engine) Initialize(ctx context.Context, cfg validation.InitConfig) error {
	if _, err := os.Stat(cfg.TargetPath); err != nil {
		return fmt.Errorf("stat target path: %w", err)
	}
	e.workDir = filepath.Join(cfg.TargetPath, ".readycheck")
	e.initialized = true
	return nil
}

// Validate runs the probes and produces the findings.
func (e *Engine) Validate(ctx context.Context) (*validation.PhaseResult, error) {
	if !e.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}
	startedAt := time.Now()

	var findings []validation.Finding
	var recommendations []string

	// CPU probe: a fixed hashing workload.
	cpuElapsed := cpuProbe(ctx)
	if cpuElapsed > cpuProbeWarn {
		findings = append(findings, finding("cpu_probe", "CPU throughput probe",
			validation.StatusConditional, validation.SeverityMedium,
			fmt.Sprintf("hash workload took %s (limit %s)", cpuElapsed.Round(time.Millisecond), cpuProbeWarn)))
		recommendations = append(recommendations, "Profile CPU-bound paths; the host underperforms the reference workload")
	} else {
		findings = append(findings, passFinding("cpu_probe", "CPU throughput probe",
			fmt.Sprintf("hash workload completed in %s", cpuElapsed.Round(time.Millisecond))))
	}

	// Allocation probe: footprint of a burst of small allocations.
	allocated := allocProbe()
	if allocated > allocWarnBytes {
		findings = append(findings, finding("alloc_probe", "Allocation footprint probe",
			validation.StatusConditional, validation.SeverityLow,
			fmt.Sprintf("burst allocated %d MiB", allocated>>20)))
		recommendations = append(recommendations, "Pool or reuse buffers on hot allocation paths")
	} else {
		findings = append(findings, passFinding("alloc_probe", "Allocation footprint probe",
			fmt.Sprintf("burst allocated %d MiB", allocated>>20)))
	}

	// Simulated database throughput, when the upstream phase ran.
	if summary, ok := e.loadSimSummary(); ok {
		if summary.AvgQuery > dbQueryWarn {
			findings = append(findings, finding("db_throughput", "Simulated query latency",
				validation.StatusConditional, validation.SeverityMedium,
				fmt.Sprintf("average query %s under %d users", summary.AvgQuery.Round(time.Microsecond), summary.Users)))
			recommendations = append(recommendations, "Add covering indexes for the hot query paths exercised by the simulation")
		} else {
			findings = append(findings, passFinding("db_throughput", "Simulated query latency",
				fmt.Sprintf("average query %s under %d users", summary.AvgQuery.Round(time.Microsecond), summary.Users)))
		}
	} else {
		findings = append(findings, finding("db_throughput", "Simulated query latency",
			validation.StatusConditional, validation.SeverityLow,
			"database-simulation artifact not found; throughput analysis skipped"))
		recommendations = append(recommendations, "Run the database_simulation phase before performance_analysis for full coverage")
	}

	summary := fmt.Sprintf("Ran %d performance probes", len(findings))
	return validation.NewPhaseResult(validation.PhasePerformance, startedAt, time.Now(), findings, summary, recommendations), nil
}

// Cleanup drops probe state. Safe before Initialize.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.initialized = false
	return nil
}

func (e *Engine) loadSimSummary() (dbsim.Summary, bool) {
	data, err := os.ReadFile(filepath.Join(e.workDir, dbsim.ArtifactName))
	if err != nil {
		return dbsim.Summary{}, false
	}
	var summary dbsim.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return dbsim.Summary{}, false
	}
	return summary, true
}

// cpuProbe times a fixed chained-hash workload. Cancellation cuts the
// probe short; the partial timing is still comparable enough to report.
func cpuProbe(ctx context.Context) time.Duration {
	start := time.Now()
	digest := sha256.Sum256([]byte("readycheck"))
	for i := 0; i < hashRounds; i++ {
		if i%1000 == 0 && ctx.Err() != nil {
			break
		}
		digest = sha256.Sum256(digest[:])
	}
	_ = digest
	return time.Since(start)
}

// allocProbe measures the heap growth of a burst of small allocations.
func allocProbe() uint64 {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	burst := make([][]byte, 0, 4096)
	for i := 0; i < 4096; i++ {
		burst = append(burst, make([]byte, 1024))
	}

	runtime.ReadMemStats(&after)
	_ = burst
	return after.TotalAlloc - before.TotalAlloc
}

func finding(id, name string, status validation.Status, severity validation.Severity, message string) validation.Finding {
	return validation.Finding{
		ID:        id,
		Name:      name,
		Status:    status,
		Severity:  severity,
		Category:  validation.CategoryPerformance,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func passFinding(id, name, message string) validation.Finding {
	return finding(id, name, validation.StatusPass, validation.SeverityInfo, message)
}
