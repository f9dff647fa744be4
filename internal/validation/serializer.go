package validation

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
)

// timeRounding keeps rendered durations readable.
const timeRounding = time.Millisecond

// SerializeResult renders an aggregate result in the requested format.
// JSON is lossless and deterministic: serializing the same result twice
// yields byte-identical output. Markdown and HTML are human-oriented
// renderings and do not round-trip.
func SerializeResult(result *AggregateResult, format OutputFormat) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no result to serialize")
	}
	switch format {
	case FormatJSON:
		return serializeJSON(result)
	case FormatMarkdown:
		return serializeMarkdown(result), nil
	case FormatHTML:
		return serializeHTML(result), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

func serializeJSON(result *AggregateResult) (string, error) {
	// encoding/json sorts map keys, so repeated exports of the same
	// result are byte-identical.
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize result: %w", err)
	}
	return string(data), nil
}

// orderedResults returns the stored phase results in catalog order.
func orderedResults(result *AggregateResult) []*PhaseResult {
	var out []*PhaseResult
	for _, id := range AllPhaseIDs() {
		if pr, ok := result.Phases[id]; ok {
			out = append(out, pr)
		}
	}
	return out
}

func serializeMarkdown(result *AggregateResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation Report %s\n\n", result.ExecutionID)
	fmt.Fprintf(&b, "Generated by readycheck %s at %s\n\n", result.FrameworkVersion, result.Timestamp.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Verdict\n\n")
	fmt.Fprintf(&b, "| Overall Status | Production Readiness | Confidence |\n")
	fmt.Fprintf(&b, "|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %s |\n\n", result.OverallStatus, result.ProductionReadiness, result.ConfidenceLevel)

	fmt.Fprintf(&b, "Total issues found: %d in %s\n\n", result.TotalIssues, result.TotalDuration.Round(timeRounding))

	b.WriteString("## Issues by severity\n\n")
	for _, sev := range Severities {
		if n := result.IssuesBySeverity[sev]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", sev, n)
		}
	}
	b.WriteString("\n## Issues by category\n\n")
	for _, cat := range sortedCategories(result.IssuesByCategory) {
		fmt.Fprintf(&b, "- %s: %d\n", cat, result.IssuesByCategory[cat])
	}

	b.WriteString("\n## Phases\n\n")
	for _, id := range AllPhaseIDs() {
		outcome := result.Outcomes[id]
		name := string(id)
		if p, ok := PhaseByID(id); ok {
			name = p.Name
		}
		switch outcome {
		case OutcomeRan:
			pr := result.Phases[id]
			fmt.Fprintf(&b, "### %s — %s\n\n", name, pr.Status)
			fmt.Fprintf(&b, "%s (%d findings, %s)\n\n", pr.Summary, len(pr.Findings), pr.Duration.Round(timeRounding))
			for _, f := range pr.Findings {
				if f.Status == StatusPass {
					continue
				}
				fmt.Fprintf(&b, "- **[%s/%s]** %s: %s\n", f.Severity, f.Status, f.Name, f.Message)
			}
			b.WriteString("\n")
		case OutcomeNoEngine:
			fmt.Fprintf(&b, "### %s — no engine registered\n\n", name)
		default:
			fmt.Fprintf(&b, "### %s — skipped\n\n", name)
		}
	}

	if len(result.CriticalIssues) > 0 {
		b.WriteString("## Critical issues\n\n")
		for _, f := range result.CriticalIssues {
			fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Message)
		}
		b.WriteString("\n")
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, r := range dedupe(result.Recommendations) {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return b.String()
}

func serializeHTML(result *AggregateResult) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<title>Validation Report %s</title>\n", html.EscapeString(result.ExecutionID))
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>Validation Report %s</h1>\n", html.EscapeString(result.ExecutionID))
	fmt.Fprintf(&b, "<p>Overall: <strong>%s</strong> &middot; Readiness: <strong>%s</strong> &middot; Confidence: <strong>%s</strong></p>\n",
		result.OverallStatus, result.ProductionReadiness, result.ConfidenceLevel)
	fmt.Fprintf(&b, "<p>%d issues found in %s.</p>\n", result.TotalIssues, result.TotalDuration.Round(timeRounding))

	for _, pr := range orderedResults(result) {
		fmt.Fprintf(&b, "<h2>%s &mdash; %s</h2>\n", html.EscapeString(pr.PhaseName), pr.Status)
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(pr.Summary))
		if len(pr.Findings) > 0 {
			b.WriteString("<ul>\n")
			for _, f := range pr.Findings {
				fmt.Fprintf(&b, "<li>[%s/%s] %s: %s</li>\n", f.Severity, f.Status, html.EscapeString(f.Name), html.EscapeString(f.Message))
			}
			b.WriteString("</ul>\n")
		}
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("<h2>Recommendations</h2>\n<ol>\n")
		for _, r := range dedupe(result.Recommendations) {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(r))
		}
		b.WriteString("</ol>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// dedupe preserves first-occurrence order while dropping duplicates.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// sortedCategories returns the categories with nonzero counts, ordered.
func sortedCategories(counts map[Category]int) []Category {
	var out []Category
	for c, n := range counts {
		if n > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
