package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halverson/readycheck/internal/version"
)

// logCategory values used by the controller.
const (
	categoryOrchestration = "orchestration"
	categoryEngine        = "engine"
	categoryAssessment    = "assessment"
)

// Controller orchestrates one validation run: it walks the enabled
// phases in declared order, drives each registered engine through its
// lifecycle, isolates per-phase failures, folds findings into the
// aggregate, and computes the final verdict.
//
// A Controller is built for a single run. ExecuteValidation must not be
// called concurrently with itself on the same instance; GetProgress and
// the export methods are safe to call from other goroutines at any time.
type Controller struct {
	cfg         ExecutionConfig
	policy      AssessmentPolicy
	executionID string
	targetPath  string

	tracker *ProgressTracker
	logger  *ExecutionLogger

	mu      sync.RWMutex
	engines map[PhaseID]Engine
	result  *AggregateResult
}

// NewController creates a Controller for one run against targetPath.
// The execution identifier is generated here; a fresh Controller means
// a fresh identifier.
func NewController(cfg ExecutionConfig, targetPath string) *Controller {
	executionID := uuid.New().String()[:8]
	return &Controller{
		cfg:         cfg,
		policy:      DefaultPolicy(),
		executionID: executionID,
		targetPath:  targetPath,
		tracker:     NewProgressTracker(cfg.EnabledPhases),
		logger:      NewExecutionLogger(executionID, cfg.LogLevel),
		engines:     make(map[PhaseID]Engine),
	}
}

// ExecutionID returns the identifier for this run.
func (c *Controller) ExecutionID() string {
	return c.executionID
}

// Config returns the immutable run configuration.
func (c *Controller) Config() ExecutionConfig {
	return c.cfg
}

// Logger exposes the execution logger, mainly for engines that want to
// write diagnostics into the shared buffer.
func (c *Controller) Logger() *ExecutionLogger {
	return c.logger
}

// RegisterEngine stores the engine for a phase role. Registering a
// second engine for the same role replaces the first; the overwrite is
// logged rather than rejected.
func (c *Controller) RegisterEngine(role PhaseID, engine Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prior, ok := c.engines[role]; ok {
		c.logger.Warnf(categoryOrchestration, "replacing engine %q with %q for phase %s", prior.Name(), engine.Name(), role)
	} else {
		c.logger.Infof(categoryOrchestration, "registered engine %q for phase %s", engine.Name(), role)
	}
	c.engines[role] = engine
}

// RegisteredRoles returns the phase roles that currently have an engine.
func (c *Controller) RegisteredRoles() []PhaseID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var roles []PhaseID
	for _, id := range AllPhaseIDs() {
		if _, ok := c.engines[id]; ok {
			roles = append(roles, id)
		}
	}
	return roles
}

func (c *Controller) engineFor(role PhaseID) (Engine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	engine, ok := c.engines[role]
	return engine, ok
}

// ExecuteValidation runs the full pipeline and returns the aggregate.
//
// Missing engines for enabled phases are tolerated: the phase is logged
// and recorded as NO_ENGINE, and its slot in the aggregate stays empty.
// A failure inside one phase never aborts the run; only an error before
// any aggregate exists propagates to the caller. Once an aggregate
// exists, internal failure downgrades it to FAIL/NOT_READY/LOW and
// returns it.
func (c *Controller) ExecuteValidation(ctx context.Context) (result *AggregateResult, err error) {
	if ctx == nil {
		return nil, fmt.Errorf("nil context")
	}

	startedAt := time.Now()
	aggregate := NewAggregateResult(c.executionID, version.Get(), startedAt)

	c.mu.Lock()
	c.result = aggregate
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Criticalf(categoryOrchestration, "validation run panicked: %v", r)
			aggregate.TotalDuration = time.Since(startedAt)
			c.downgrade(aggregate)
			result, err = aggregate, nil
		}
	}()

	c.tracker.StartExecution()
	c.logger.Infof(categoryOrchestration, "starting validation run %s (%d phases enabled)", c.executionID, len(c.cfg.EnabledPhases))

	for _, phase := range PhaseCatalog() {
		if ctx.Err() != nil {
			c.logger.Errorf(categoryOrchestration, "run cancelled before phase %s: %v", phase.ID, ctx.Err())
			c.tracker.AddError(fmt.Sprintf("run cancelled before phase %s", phase.ID))
			break
		}

		if !c.cfg.PhaseEnabled(phase.ID) {
			c.logger.Debugf(categoryOrchestration, "phase %s disabled, skipping", phase.ID)
			aggregate.RecordOutcome(phase.ID, OutcomeSkipped)
			continue
		}

		engine, ok := c.engineFor(phase.ID)
		if !ok {
			c.logger.Warnf(categoryOrchestration, "no engine registered for phase %s", phase.ID)
			c.tracker.AddWarning(fmt.Sprintf("no engine registered for phase %s", phase.ID))
			aggregate.RecordOutcome(phase.ID, OutcomeNoEngine)
			continue
		}

		aggregate.AddPhaseResult(c.runPhase(ctx, phase, engine))
	}

	c.finalize(aggregate, startedAt)
	return aggregate, nil
}

// runPhase drives one engine through initialize/validate/cleanup with a
// per-phase deadline. Every failure mode, including panics, collapses
// into a synthesized FAIL result so the run can continue.
func (c *Controller) runPhase(ctx context.Context, phase Phase, engine Engine) (result *PhaseResult) {
	phaseStart := time.Now()

	c.tracker.StartPhase(phase.ID)
	c.logger.SetPhase(string(phase.ID))
	c.logger.Infof(categoryEngine, "phase %s started with engine %q", phase.ID, engine.Name())

	defer func() {
		if r := recover(); r != nil {
			result = c.failedPhaseResult(phase, phaseStart, fmt.Errorf("engine panicked: %v", r))
		}
		c.tracker.CompletePhase(phase.ID)
		c.logger.Infof(categoryEngine, "phase %s finished with status %s", phase.ID, result.Status)
		c.logger.SetPhase("")
	}()

	phaseCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		phaseCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	initCfg := InitConfig{
		TargetPath:         c.targetPath,
		MaxConcurrentUsers: c.cfg.MaxConcurrentUsers,
		SkipOptionalChecks: c.cfg.SkipOptionalChecks,
	}

	if err := engine.Initialize(phaseCtx, initCfg); err != nil {
		c.logger.Errorf(categoryEngine, "engine %q failed to initialize: %v", engine.Name(), err)
		c.cleanupEngine(phaseCtx, phase.ID, engine)
		return c.failedPhaseResult(phase, phaseStart, fmt.Errorf("initialize: %w", err))
	}

	phaseResult, err := engine.Validate(phaseCtx)
	if err != nil {
		c.logger.Errorf(categoryEngine, "engine %q failed to validate: %v", engine.Name(), err)
		c.cleanupEngine(phaseCtx, phase.ID, engine)
		return c.failedPhaseResult(phase, phaseStart, fmt.Errorf("validate: %w", err))
	}
	if phaseResult == nil {
		c.cleanupEngine(phaseCtx, phase.ID, engine)
		return c.failedPhaseResult(phase, phaseStart, fmt.Errorf("engine %q returned no result", engine.Name()))
	}

	c.cleanupEngine(phaseCtx, phase.ID, engine)
	return phaseResult
}

// cleanupEngine runs an engine's Cleanup, logging rather than
// propagating failure so teardown cannot poison the phase result.
func (c *Controller) cleanupEngine(ctx context.Context, id PhaseID, engine Engine) {
	if err := engine.Cleanup(ctx); err != nil {
		c.logger.Errorf(categoryEngine, "engine %q cleanup failed for phase %s: %v", engine.Name(), id, err)
		c.tracker.AddError(fmt.Sprintf("cleanup failed for phase %s: %v", id, err))
	}
}

// failedPhaseResult synthesizes a single-finding FAIL result for a
// phase whose engine could not run.
func (c *Controller) failedPhaseResult(phase Phase, startedAt time.Time, cause error) *PhaseResult {
	c.logger.Criticalf(categoryEngine, "phase %s failed: %v", phase.ID, cause)
	c.tracker.AddError(fmt.Sprintf("phase %s failed: %v", phase.ID, cause))

	finding := Finding{
		ID:        string(phase.ID) + "_execution_failure",
		Name:      phase.Name + " execution failure",
		Status:    StatusFail,
		Severity:  SeverityCritical,
		Category:  categoryForPhase(phase.ID),
		Message:   "phase could not complete: " + cause.Error(),
		Timestamp: time.Now(),
	}
	return NewPhaseResult(phase.ID, startedAt, time.Now(), []Finding{finding},
		fmt.Sprintf("%s did not complete", phase.Name),
		[]string{fmt.Sprintf("Investigate why the %s engine failed and re-run the validation", phase.Name)})
}

// categoryForPhase maps a phase role to the finding category used for
// synthesized findings.
func categoryForPhase(id PhaseID) Category {
	switch id {
	case PhaseDatabaseSimulation:
		return CategoryDatabase
	case PhaseSecurityAudit:
		return CategorySecurity
	case PhasePerformance:
		return CategoryPerformance
	case PhaseConfigurationAudit:
		return CategoryConfig
	default:
		return CategoryNative
	}
}

// finalize runs the closing computation pass and seals the run.
func (c *Controller) finalize(aggregate *AggregateResult, startedAt time.Time) {
	aggregate.TotalDuration = time.Since(startedAt)
	c.policy.Assess(aggregate, len(c.cfg.EnabledPhases))
	c.tracker.CompleteExecution()
	c.logger.Infof(categoryAssessment, "run %s finished: status=%s readiness=%s confidence=%s issues=%d",
		c.executionID, aggregate.OverallStatus, aggregate.ProductionReadiness, aggregate.ConfidenceLevel, aggregate.TotalIssues)
}

// downgrade forces the worst verdict onto a partial aggregate so a
// best-effort result can still be returned after an internal failure.
func (c *Controller) downgrade(aggregate *AggregateResult) {
	aggregate.OverallStatus = StatusFail
	aggregate.ProductionReadiness = ReadinessNotReady
	aggregate.ConfidenceLevel = ConfidenceLow
	c.tracker.CompleteExecution()
}

// GetProgress returns a point-in-time snapshot. Safe to call while a
// run is in flight from another goroutine.
func (c *Controller) GetProgress() ProgressSnapshot {
	return c.tracker.GetProgress()
}

// Result returns the last aggregate, or nil if no run has started.
func (c *Controller) Result() *AggregateResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// ExportResults serializes the last aggregate in the given format. It
// fails if no run has produced a result yet.
func (c *Controller) ExportResults(format OutputFormat) (string, error) {
	c.mu.RLock()
	result := c.result
	c.mu.RUnlock()

	if result == nil {
		return "", fmt.Errorf("no validation result available: run ExecuteValidation first")
	}
	return SerializeResult(result, format)
}

// ExportLogs serializes the full log buffer as JSON. It fails if no run
// has started.
func (c *Controller) ExportLogs() (string, error) {
	c.mu.RLock()
	result := c.result
	c.mu.RUnlock()

	if result == nil {
		return "", fmt.Errorf("no execution logs available: run ExecuteValidation first")
	}
	return c.logger.Export()
}

// LogSummary returns the rollup of the execution log buffer.
func (c *Controller) LogSummary() LogSummary {
	return c.logger.Summary()
}

// Cleanup tears down every registered engine. One engine's cleanup
// failure is logged and does not block the others.
func (c *Controller) Cleanup(ctx context.Context) {
	c.mu.RLock()
	engines := make(map[PhaseID]Engine, len(c.engines))
	for id, e := range c.engines {
		engines[id] = e
	}
	c.mu.RUnlock()

	for _, id := range AllPhaseIDs() {
		engine, ok := engines[id]
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Errorf(categoryEngine, "engine %q cleanup panicked: %v", engine.Name(), r)
				}
			}()
			if err := engine.Cleanup(ctx); err != nil {
				c.logger.Errorf(categoryEngine, "engine %q cleanup failed: %v", engine.Name(), err)
			}
		}()
	}
}
