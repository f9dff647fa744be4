package validation

import "time"

// PhaseResult is the rolled-up outcome of one phase's execution. It is
// produced once by an engine's Validate call (or synthesized by the
// Controller on phase failure) and never mutated afterwards.
type PhaseResult struct {
	// Phase is the phase this result belongs to.
	Phase PhaseID `json:"phase"`
	// PhaseName is the human-readable phase name.
	PhaseName string `json:"phaseName"`
	// Status is the worst-of-findings rollup for the phase.
	Status Status `json:"status"`
	// StartedAt and CompletedAt bound the phase execution.
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	// Duration is CompletedAt minus StartedAt.
	Duration time.Duration `json:"durationNs"`
	// Findings is the full list produced by the engine.
	Findings []Finding `json:"findings"`
	// CriticalIssues is the subset of Findings with severity CRITICAL.
	CriticalIssues []Finding `json:"criticalIssues"`
	// Summary is a one-line description of the phase outcome.
	Summary string `json:"summary"`
	// Recommendations lists free-text follow-up advice.
	Recommendations []string `json:"recommendations,omitempty"`
}

// RollupStatus computes the worst status among findings: any FAIL wins,
// then any CONDITIONAL, else PASS. An empty list rolls up to PASS.
func RollupStatus(findings []Finding) Status {
	status := StatusPass
	for _, f := range findings {
		if f.Status.worseThan(status) {
			status = f.Status
		}
	}
	return status
}

// CriticalSubset returns the findings with severity CRITICAL.
func CriticalSubset(findings []Finding) []Finding {
	var critical []Finding
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			critical = append(critical, f)
		}
	}
	return critical
}

// NewPhaseResult builds a PhaseResult from an engine's findings,
// applying the status rollup and critical-subset invariants.
func NewPhaseResult(id PhaseID, startedAt, completedAt time.Time, findings []Finding, summary string, recommendations []string) *PhaseResult {
	name := string(id)
	if p, ok := PhaseByID(id); ok {
		name = p.Name
	}
	return &PhaseResult{
		Phase:           id,
		PhaseName:       name,
		Status:          RollupStatus(findings),
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		Duration:        completedAt.Sub(startedAt),
		Findings:        findings,
		CriticalIssues:  CriticalSubset(findings),
		Summary:         summary,
		Recommendations: recommendations,
	}
}

// Outcome describes what happened to one phase during a run. It makes
// "phase absent from result" a first-class state instead of a nil check.
type Outcome string

const (
	// OutcomeSkipped means the phase was not in the enabled set.
	OutcomeSkipped Outcome = "SKIPPED"
	// OutcomeNoEngine means the phase was enabled but no engine was
	// registered for its role.
	OutcomeNoEngine Outcome = "NO_ENGINE"
	// OutcomeRan means the phase executed and stored a PhaseResult.
	OutcomeRan Outcome = "RAN"
)

// AggregateResult is the run-level accumulator and final report. It is
// owned exclusively by one Controller for the lifetime of one run and
// returned to the caller as a read-only snapshot.
type AggregateResult struct {
	// ExecutionID identifies the run.
	ExecutionID string `json:"executionId"`
	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`
	// FrameworkVersion is the readycheck version that produced this.
	FrameworkVersion string `json:"frameworkVersion"`

	// Phases holds one result per phase that actually ran, keyed by
	// phase identifier. Skipped and engine-less phases are absent.
	Phases map[PhaseID]*PhaseResult `json:"phases"`
	// Outcomes records what happened to every phase in the catalog.
	Outcomes map[PhaseID]Outcome `json:"outcomes"`

	// TotalIssues is the count of all findings across stored results.
	TotalIssues int `json:"totalIssuesFound"`
	// IssuesByCategory counts findings per category.
	IssuesByCategory map[Category]int `json:"issuesByCategory"`
	// IssuesBySeverity counts findings per severity.
	IssuesBySeverity map[Severity]int `json:"issuesBySeverity"`
	// CriticalIssues is the union of critical findings across phases.
	CriticalIssues []Finding `json:"criticalIssues"`
	// Recommendations is the union of recommendations across phases.
	Recommendations []string `json:"recommendations"`

	// TotalDuration is the wall-clock time of the whole run.
	TotalDuration time.Duration `json:"totalDurationNs"`

	// OverallStatus is the correctness verdict.
	OverallStatus Status `json:"overallStatus"`
	// ProductionReadiness is the risk verdict.
	ProductionReadiness Readiness `json:"productionReadiness"`
	// ConfidenceLevel is the trust-in-the-verdict verdict.
	ConfidenceLevel Confidence `json:"confidenceLevel"`
}

// NewAggregateResult creates an empty accumulator for one run.
func NewAggregateResult(executionID, frameworkVersion string, startedAt time.Time) *AggregateResult {
	outcomes := make(map[PhaseID]Outcome, len(AllPhaseIDs()))
	for _, id := range AllPhaseIDs() {
		outcomes[id] = OutcomeSkipped
	}
	byCategory := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		byCategory[c] = 0
	}
	bySeverity := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		bySeverity[s] = 0
	}
	return &AggregateResult{
		ExecutionID:      executionID,
		Timestamp:        startedAt,
		FrameworkVersion: frameworkVersion,
		Phases:           make(map[PhaseID]*PhaseResult),
		Outcomes:         outcomes,
		IssuesByCategory: byCategory,
		IssuesBySeverity: bySeverity,
		OverallStatus:    StatusFail,
	}
}

// RecordOutcome marks what happened to a phase without storing a result.
func (a *AggregateResult) RecordOutcome(id PhaseID, outcome Outcome) {
	a.Outcomes[id] = outcome
}

// AddPhaseResult stores one phase's result and folds its findings into
// the running counters.
func (a *AggregateResult) AddPhaseResult(result *PhaseResult) {
	a.Phases[result.Phase] = result
	a.Outcomes[result.Phase] = OutcomeRan

	a.TotalIssues += len(result.Findings)
	for _, f := range result.Findings {
		a.IssuesByCategory[f.Category]++
		a.IssuesBySeverity[f.Severity]++
	}
	a.CriticalIssues = append(a.CriticalIssues, result.CriticalIssues...)
	a.Recommendations = append(a.Recommendations, result.Recommendations...)
}

// PhasesRun returns how many phases stored a result.
func (a *AggregateResult) PhasesRun() int {
	return len(a.Phases)
}
