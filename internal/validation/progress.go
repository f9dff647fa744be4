package validation

import (
	"sync"
	"time"
)

// ProgressSnapshot is a point-in-time read model of a run's progress.
// It is recomputed on every query and never stored.
type ProgressSnapshot struct {
	// CurrentPhase and CurrentStep name what is executing right now.
	CurrentPhase string `json:"currentPhase"`
	CurrentStep  string `json:"currentStep"`
	// CompletedSteps and TotalSteps count over the enabled phases only.
	CompletedSteps int `json:"completedSteps"`
	TotalSteps     int `json:"totalSteps"`
	// PercentComplete is CompletedSteps over TotalSteps, 0..100.
	PercentComplete float64 `json:"percentComplete"`
	// EstimatedRemaining sums the estimates of steps not yet completed.
	EstimatedRemaining time.Duration `json:"estimatedRemainingNs"`
	// Elapsed is the wall-clock time since StartExecution.
	Elapsed time.Duration `json:"elapsedNs"`
	// Errors and Warnings are the non-fatal problems accumulated so far.
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	// Done is set once CompleteExecution has been called.
	Done bool `json:"done"`
}

type stepState struct {
	step      Step
	startedAt time.Time
	completed bool
	actual    time.Duration
}

// ProgressTracker records phase and step boundaries against the static
// phase catalog and derives percent-complete and ETA figures from the
// estimated versus actual durations.
//
// Percent and ETA are scoped to the phases enabled for the run, so a
// run with one enabled phase can still reach 100%. The Controller
// writes while callers poll, so all state sits behind the mutex.
type ProgressTracker struct {
	mu sync.RWMutex

	phases  []Phase
	steps   map[PhaseID][]*stepState
	started time.Time
	running bool
	done    bool

	currentPhase PhaseID
	currentStep  string

	errors   []string
	warnings []string
}

// NewProgressTracker builds a tracker over the catalog entries whose
// identifiers appear in enabled. An empty enabled set yields a tracker
// with zero total steps.
func NewProgressTracker(enabled []PhaseID) *ProgressTracker {
	t := &ProgressTracker{
		steps: make(map[PhaseID][]*stepState),
	}
	for _, phase := range PhaseCatalog() {
		if !containsPhase(enabled, phase.ID) {
			continue
		}
		t.phases = append(t.phases, phase)
		states := make([]*stepState, 0, len(phase.Steps))
		for _, s := range phase.Steps {
			states = append(states, &stepState{step: s})
		}
		t.steps[phase.ID] = states
	}
	return t
}

func containsPhase(ids []PhaseID, id PhaseID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// StartExecution marks the beginning of the run.
func (t *ProgressTracker) StartExecution() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = time.Now()
	t.running = true
	t.done = false
}

// StartPhase records that a phase has begun.
func (t *ProgressTracker) StartPhase(id PhaseID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentPhase = id
	t.currentStep = ""
}

// StartStep records that a step within the current phase has begun.
// Unknown step identifiers are ignored.
func (t *ProgressTracker) StartStep(stepID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.steps[t.currentPhase] {
		if s.step.ID == stepID {
			s.startedAt = time.Now()
			t.currentStep = stepID
			return
		}
	}
}

// CompleteStep records that a step finished. The measured duration is
// kept for ETA substitution when the step had a recorded start.
func (t *ProgressTracker) CompleteStep(stepID string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.steps[t.currentPhase] {
		if s.step.ID != stepID {
			continue
		}
		s.completed = true
		if !s.startedAt.IsZero() {
			s.actual = time.Since(s.startedAt)
		}
		if t.currentStep == stepID {
			t.currentStep = ""
		}
		if !success {
			t.errors = append(t.errors, "step failed: "+stepID)
		}
		return
	}
}

// CompletePhase records that a phase finished, marking any of its steps
// that never reported completion as done so progress cannot stall.
func (t *ProgressTracker) CompletePhase(id PhaseID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.steps[id] {
		if !s.completed {
			s.completed = true
		}
	}
	if t.currentPhase == id {
		t.currentPhase = ""
		t.currentStep = ""
	}
}

// CompleteExecution marks the end of the run.
func (t *ProgressTracker) CompleteExecution() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.running = false
}

// AddError records a non-fatal error surfaced in progress snapshots.
func (t *ProgressTracker) AddError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, msg)
}

// AddWarning records a warning surfaced in progress snapshots.
func (t *ProgressTracker) AddWarning(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.warnings = append(t.warnings, msg)
}

// GetProgress computes a fresh snapshot. Safe to call from a different
// goroutine than the one driving the tracker.
func (t *ProgressTracker) GetProgress() ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := ProgressSnapshot{
		Done:     t.done,
		Errors:   append([]string(nil), t.errors...),
		Warnings: append([]string(nil), t.warnings...),
	}
	if !t.started.IsZero() {
		snapshot.Elapsed = time.Since(t.started)
	}

	if t.currentPhase != "" {
		if p, ok := PhaseByID(t.currentPhase); ok {
			snapshot.CurrentPhase = p.Name
		}
		for _, s := range t.steps[t.currentPhase] {
			if s.step.ID == t.currentStep {
				snapshot.CurrentStep = s.step.Name
			}
		}
	}

	var remaining time.Duration
	var estimatedDone, actualDone time.Duration
	for _, phase := range t.phases {
		for _, s := range t.steps[phase.ID] {
			snapshot.TotalSteps++
			if s.completed {
				snapshot.CompletedSteps++
				// Actual durations calibrate the remaining estimate;
				// steps without a recorded start fall back to their
				// estimate and contribute a neutral ratio.
				if s.actual > 0 {
					estimatedDone += s.step.Estimate
					actualDone += s.actual
				}
				continue
			}
			remaining += s.step.Estimate
		}
	}
	if estimatedDone > 0 && actualDone > 0 {
		remaining = time.Duration(float64(remaining) * float64(actualDone) / float64(estimatedDone))
	}
	snapshot.EstimatedRemaining = remaining

	if snapshot.TotalSteps > 0 {
		snapshot.PercentComplete = float64(snapshot.CompletedSteps) / float64(snapshot.TotalSteps) * 100
	}
	if t.done {
		snapshot.PercentComplete = 100
		snapshot.EstimatedRemaining = 0
	}
	return snapshot
}
