// Package validation implements the multi-phase validation pipeline.
// A Controller drives pluggable analysis engines through a fixed phase
// order, folds their findings into a single aggregate, and computes a
// three-part verdict (status, readiness, confidence).
package validation

import "time"

// Status is the pass/fail outcome of a finding or a phase.
type Status string

const (
	// StatusPass indicates no problem was found.
	StatusPass Status = "PASS"
	// StatusFail indicates a definite problem.
	StatusFail Status = "FAIL"
	// StatusConditional indicates a problem that needs review but is not
	// an outright failure.
	StatusConditional Status = "CONDITIONAL"
)

// worseThan reports whether s is a worse outcome than other.
// FAIL > CONDITIONAL > PASS.
func (s Status) worseThan(other Status) bool {
	return statusRank(s) > statusRank(other)
}

func statusRank(s Status) int {
	switch s {
	case StatusFail:
		return 2
	case StatusConditional:
		return 1
	default:
		return 0
	}
}

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Severities lists all severities in descending order of impact.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Category identifies which part of the target system a finding concerns.
type Category string

const (
	CategoryNative      Category = "NATIVE"
	CategoryBridge      Category = "BRIDGE"
	CategoryDatabase    Category = "DATABASE"
	CategorySecurity    Category = "SECURITY"
	CategoryPerformance Category = "PERFORMANCE"
	CategoryConfig      Category = "CONFIG"
)

// Categories lists all finding categories.
var Categories = []Category{CategoryNative, CategoryBridge, CategoryDatabase, CategorySecurity, CategoryPerformance, CategoryConfig}

// OutputFormat selects the serialization format for exported results.
type OutputFormat string

const (
	FormatJSON     OutputFormat = "JSON"
	FormatMarkdown OutputFormat = "MARKDOWN"
	FormatHTML     OutputFormat = "HTML"
)

// Readiness is the risk-oriented shipping verdict, distinct from pass/fail.
type Readiness string

const (
	ReadinessProductionReady Readiness = "PRODUCTION_READY"
	ReadinessNeedsFixes      Readiness = "NEEDS_FIXES"
	ReadinessMajorIssues     Readiness = "MAJOR_ISSUES"
	ReadinessNotReady        Readiness = "NOT_READY"
)

// Confidence measures how much of the intended analysis actually ran,
// independent of whether what ran was clean.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Finding is one atomic reported issue or confirmation from an engine.
// Findings are immutable once produced.
type Finding struct {
	// ID uniquely identifies the check that produced this finding.
	ID string `json:"id"`
	// Name is a short human-readable label.
	Name string `json:"name"`
	// Status is the outcome of the check.
	Status Status `json:"status"`
	// Severity classifies the impact of the finding.
	Severity Severity `json:"severity"`
	// Category identifies the affected subsystem.
	Category Category `json:"category"`
	// Message explains the finding in one sentence.
	Message string `json:"message"`
	// Details carries optional evidence (offending line, measured value).
	Details string `json:"details,omitempty"`
	// Timestamp records when the finding was created.
	Timestamp time.Time `json:"timestamp"`
}

// PhaseID identifies one of the five fixed analysis phases.
type PhaseID string

const (
	PhaseStaticAnalysis     PhaseID = "static_analysis"
	PhaseDatabaseSimulation PhaseID = "database_simulation"
	PhaseSecurityAudit      PhaseID = "security_audit"
	PhasePerformance        PhaseID = "performance_analysis"
	PhaseConfigurationAudit PhaseID = "configuration_audit"
)

// Step is a sub-phase unit used only for progress and ETA arithmetic.
// Steps are never invoked independently by the Controller.
type Step struct {
	// ID uniquely identifies the step within its phase.
	ID string
	// Name is the human-readable step name.
	Name string
	// Estimate is the expected duration, used for ETA math.
	Estimate time.Duration
}

// Phase is a named unit of work with declared dependencies and an
// ordered list of steps.
type Phase struct {
	// ID is the fixed phase identifier.
	ID PhaseID
	// Name is the human-readable phase name.
	Name string
	// DependsOn lists phases this one assumes have already run. The
	// Controller executes phases in a fixed order consistent with these
	// dependencies; they are documentation, not a scheduler input.
	DependsOn []PhaseID
	// Steps is the ordered step catalog for progress reporting.
	Steps []Step
}

// EstimatedDuration returns the sum of the phase's step estimates.
func (p Phase) EstimatedDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Steps {
		total += s.Estimate
	}
	return total
}

// PhaseCatalog returns the static catalog of all phases in execution
// order. The order is consistent with the declared dependencies:
// performance analysis assumes database simulation has run.
func PhaseCatalog() []Phase {
	return []Phase{
		{
			ID:   PhaseStaticAnalysis,
			Name: "Static Analysis",
			Steps: []Step{
				{ID: "scan_sources", Name: "Scan source tree", Estimate: 5 * time.Second},
				{ID: "structural_checks", Name: "Run structural checks", Estimate: 10 * time.Second},
			},
		},
		{
			ID:   PhaseDatabaseSimulation,
			Name: "Database Simulation",
			Steps: []Step{
				{ID: "provision_db", Name: "Provision simulation database", Estimate: 2 * time.Second},
				{ID: "concurrent_load", Name: "Run concurrent load", Estimate: 30 * time.Second},
				{ID: "verify_integrity", Name: "Verify data integrity", Estimate: 5 * time.Second},
			},
		},
		{
			ID:   PhaseSecurityAudit,
			Name: "Security Audit",
			Steps: []Step{
				{ID: "load_definitions", Name: "Load target definitions", Estimate: 2 * time.Second},
				{ID: "pattern_scan", Name: "Scan for vulnerability patterns", Estimate: 15 * time.Second},
			},
		},
		{
			ID:        PhasePerformance,
			Name:      "Performance Analysis",
			DependsOn: []PhaseID{PhaseDatabaseSimulation},
			Steps: []Step{
				{ID: "timing_probes", Name: "Run timing probes", Estimate: 15 * time.Second},
				{ID: "resource_review", Name: "Review resource usage", Estimate: 5 * time.Second},
			},
		},
		{
			ID:   PhaseConfigurationAudit,
			Name: "Configuration Audit",
			Steps: []Step{
				{ID: "parse_configs", Name: "Parse configuration files", Estimate: 2 * time.Second},
				{ID: "policy_checks", Name: "Run policy checks", Estimate: 8 * time.Second},
			},
		},
	}
}

// PhaseByID returns the catalog entry for id and whether it exists.
func PhaseByID(id PhaseID) (Phase, bool) {
	for _, p := range PhaseCatalog() {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// AllPhaseIDs returns the phase identifiers in execution order.
func AllPhaseIDs() []PhaseID {
	catalog := PhaseCatalog()
	ids := make([]PhaseID, 0, len(catalog))
	for _, p := range catalog {
		ids = append(ids, p.ID)
	}
	return ids
}
