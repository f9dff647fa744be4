package validation

// AssessmentPolicy gathers every threshold used by the final assessment
// in one place, so the cutoffs are tunable and testable without touching
// the control flow that applies them.
type AssessmentPolicy struct {
	// MajorIssuesHighCount: more HIGH findings than this downgrades the
	// readiness verdict to MAJOR_ISSUES.
	MajorIssuesHighCount int
	// LowConfidenceCompletion: a completion rate below this yields LOW
	// confidence regardless of findings.
	LowConfidenceCompletion float64
	// MediumConfidenceCompletion: a completion rate below this caps
	// confidence at MEDIUM.
	MediumConfidenceCompletion float64
	// MediumConfidenceHighCount: more HIGH findings than this caps
	// confidence at MEDIUM.
	MediumConfidenceHighCount int
}

// DefaultPolicy returns the standard assessment thresholds.
func DefaultPolicy() AssessmentPolicy {
	return AssessmentPolicy{
		MajorIssuesHighCount:       3,
		LowConfidenceCompletion:    0.6,
		MediumConfidenceCompletion: 0.8,
		MediumConfidenceHighCount:  2,
	}
}

// OverallStatus computes the correctness verdict: FAIL if any stored
// phase failed, CONDITIONAL if none failed but any is conditional, else
// PASS. Zero stored phases is FAIL — no evidence never means a pass.
func (p AssessmentPolicy) OverallStatus(result *AggregateResult) Status {
	if result.PhasesRun() == 0 {
		return StatusFail
	}
	status := StatusPass
	for _, pr := range result.Phases {
		if pr.Status.worseThan(status) {
			status = pr.Status
		}
	}
	return status
}

// ProductionReadiness computes the risk verdict from the overall status
// and the severity distribution. It is never PRODUCTION_READY while any
// critical issue exists.
func (p AssessmentPolicy) ProductionReadiness(result *AggregateResult, overall Status) Readiness {
	critical := result.IssuesBySeverity[SeverityCritical]
	high := result.IssuesBySeverity[SeverityHigh]

	switch {
	case overall == StatusFail || critical > 0:
		return ReadinessNotReady
	case overall == StatusConditional || high > p.MajorIssuesHighCount:
		return ReadinessMajorIssues
	case high > 0:
		return ReadinessNeedsFixes
	default:
		return ReadinessProductionReady
	}
}

// ConfidenceLevel computes how much to trust the verdict itself, from
// the fraction of enabled phases that produced a result and the issue
// distribution. A run that skipped most of its analysis must not report
// HIGH confidence even if what ran was clean.
func (p AssessmentPolicy) ConfidenceLevel(result *AggregateResult, enabledCount int) Confidence {
	completion := 0.0
	if enabledCount > 0 {
		completion = float64(result.PhasesRun()) / float64(enabledCount)
	}
	critical := result.IssuesBySeverity[SeverityCritical]
	high := result.IssuesBySeverity[SeverityHigh]

	switch {
	case completion < p.LowConfidenceCompletion || critical > 0:
		return ConfidenceLow
	case completion < p.MediumConfidenceCompletion || high > p.MediumConfidenceHighCount:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// Assess runs the full closing computation pass, filling the three
// verdict fields on the aggregate. It is a pure function of the
// accumulated state and the enabled-phase count.
func (p AssessmentPolicy) Assess(result *AggregateResult, enabledCount int) {
	overall := p.OverallStatus(result)
	result.OverallStatus = overall
	result.ProductionReadiness = p.ProductionReadiness(result, overall)
	result.ConfidenceLevel = p.ConfidenceLevel(result, enabledCount)
}
