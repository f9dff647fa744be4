// Package secaudit implements the security-audit engine. It scans the
// target's SQL and migration text for known vulnerability patterns and
// returns one finding per check, pass or fail.
package secaudit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/halverson/readycheck/internal/validation"
)

// check is one vulnerability pattern the auditor looks for.
type check struct {
	id       string
	name     string
	severity validation.Severity
	// pattern matches an offending line.
	pattern *regexp.Regexp
	message string
	advice  string
}

// checks is the fixed audit catalog: injection risk, authorization
// bypass, information disclosure, access-control gaps.
var checks = []check{
	{
		id:       "sql_injection",
		name:     "Dynamic SQL injection risk",
		severity: validation.SeverityCritical,
		pattern:  regexp.MustCompile(`(?i)EXECUTE\s+(IMMEDIATE\s+)?.*\|\|`),
		message:  "dynamic SQL built by string concatenation",
		advice:   "Use bind parameters instead of concatenating values into EXECUTE statements",
	},
	{
		id:       "authz_bypass",
		name:     "Authorization bypass risk",
		severity: validation.SeverityCritical,
		pattern:  regexp.MustCompile(`(?i)(GRANT\s+ALL\s+ON|DISABLE\s+ROW\s+LEVEL\s+SECURITY|SECURITY\s+DEFINER)`),
		message:  "statement weakens or bypasses access control",
		advice:   "Grant least-privilege roles and keep row-level security enabled",
	},
	{
		id:       "info_disclosure",
		name:     "Information disclosure risk",
		severity: validation.SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)(password|secret|api_key|token)\s*(=|:)\s*'[^']+'`),
		message:  "credential literal embedded in SQL text",
		advice:   "Move credentials out of SQL text into a secret store",
	},
	{
		id:       "access_control_gap",
		name:     "Unscoped destructive statement",
		severity: validation.SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)^\s*(DELETE\s+FROM|UPDATE)\s+\w+\s*;`),
		message:  "DELETE/UPDATE without a WHERE clause",
		advice:   "Scope destructive statements with explicit predicates",
	},
	{
		id:       "public_grants",
		name:     "Grants to PUBLIC",
		severity: validation.SeverityMedium,
		pattern:  regexp.MustCompile(`(?i)GRANT\s+.*\s+TO\s+PUBLIC`),
		message:  "privileges granted to PUBLIC",
		advice:   "Replace PUBLIC grants with named roles",
	},
}

// hit is one pattern match found in the scanned text.
type hit struct {
	file string
	line int
	text string
}

// Engine is the security-audit engine.
type Engine struct {
	root  string
	files []string
}

// New creates a security-audit engine.
func New() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "security-audit"
}

// Initialize locates the SQL/migration files to audit. A target with
// no SQL at all is still valid; every check then passes vacuously.
func (e *Engine) Initialize(ctx context.Context, cfg validation.InitConfig) error {
	if _, err := os.Stat(cfg.TargetPath); err != nil {
		return fmt.Errorf("stat target path: %w", err)
	}
	e.root = cfg.TargetPath
	e.files = nil

	err := filepath.WalkDir(cfg.TargetPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "node_modules", "vendor":
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".sql") {
			e.files = append(e.files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("locate SQL files: %w", err)
	}
	return nil
}

// Validate runs every check over every located file, producing exactly
// one finding per check.
func (e *Engine) Validate(ctx context.Context) (*validation.PhaseResult, error) {
	if e.root == "" {
		return nil, fmt.Errorf("engine not initialized")
	}
	startedAt := time.Now()

	hitsByCheck := make(map[string][]hit, len(checks))
	for _, path := range e.files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(e.root, path)
		if relErr != nil {
			rel = path
		}
		for lineNo, line := range strings.Split(string(data), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "--") {
				continue
			}
			for _, c := range checks {
				if c.pattern.MatchString(line) {
					hitsByCheck[c.id] = append(hitsByCheck[c.id], hit{file: rel, line: lineNo + 1, text: trimmed})
				}
			}
		}
	}

	var findings []validation.Finding
	var recommendations []string
	for _, c := range checks {
		hits := hitsByCheck[c.id]
		if len(hits) == 0 {
			findings = append(findings, validation.Finding{
				ID:        c.id,
				Name:      c.name,
				Status:    validation.StatusPass,
				Severity:  validation.SeverityInfo,
				Category:  validation.CategorySecurity,
				Message:   "no occurrences found",
				Timestamp: time.Now(),
			})
			continue
		}

		status := validation.StatusFail
		if c.severity == validation.SeverityMedium || c.severity == validation.SeverityLow {
			status = validation.StatusConditional
		}
		var details []string
		for _, h := range hits {
			details = append(details, fmt.Sprintf("%s:%d: %s", h.file, h.line, h.text))
		}
		findings = append(findings, validation.Finding{
			ID:        c.id,
			Name:      c.name,
			Status:    status,
			Severity:  c.severity,
			Category:  validation.CategorySecurity,
			Message:   fmt.Sprintf("%s (%d occurrences)", c.message, len(hits)),
			Details:   strings.Join(details, "\n"),
			Timestamp: time.Now(),
		})
		recommendations = append(recommendations, c.advice)
	}

	summary := fmt.Sprintf("Audited %d SQL files against %d vulnerability patterns", len(e.files), len(checks))
	return validation.NewPhaseResult(validation.PhaseSecurityAudit, startedAt, time.Now(), findings, summary, recommendations), nil
}

// Cleanup drops the scan state. Safe before Initialize.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.files = nil
	e.root = ""
	return nil
}
