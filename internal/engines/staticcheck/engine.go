// Package staticcheck implements the static-analysis engine. It walks
// the target source tree and reports structural issues: oversized
// files, stale-work markers, panic-prone constructs, and suspicious
// bridge-layer patterns.
package staticcheck

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/halverson/readycheck/internal/validation"
)

const (
	// maxFileLines is the structural limit before a file is flagged.
	maxFileLines = 800
	// todoWarnThreshold is how many TODO/FIXME markers trigger a finding.
	todoWarnThreshold = 10
)

// sourceExtensions lists the file types the engine inspects.
var sourceExtensions = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".swift": true, ".kt": true, ".java": true, ".m": true, ".mm": true,
}

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "build": true, "dist": true,
}

type fileStats struct {
	path       string
	lines      int
	todos      int
	panicLines []int
	isBridge   bool
	syncBridge bool
}

// Engine is the static-analysis engine.
type Engine struct {
	root        string
	skipOptional bool
	initialized bool
}

// New creates a static-analysis engine.
func New() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "static-analysis"
}

// Initialize verifies the target root is readable.
func (e *Engine) Initialize(ctx context.Context, cfg validation.InitConfig) error {
	info, err := os.Stat(cfg.TargetPath)
	if err != nil {
		return fmt.Errorf("stat target path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target path %s is not a directory", cfg.TargetPath)
	}
	e.root = cfg.TargetPath
	e.skipOptional = cfg.SkipOptionalChecks
	e.initialized = true
	return nil
}

// Validate walks the source tree and produces one finding per check.
func (e *Engine) Validate(ctx context.Context) (*validation.PhaseResult, error) {
	if !e.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}
	startedAt := time.Now()

	stats, err := e.collect(ctx)
	if err != nil {
		return nil, err
	}

	var findings []validation.Finding
	var recommendations []string

	// Oversized files.
	var oversized []string
	for _, s := range stats {
		if s.lines > maxFileLines {
			oversized = append(oversized, fmt.Sprintf("%s (%d lines)", s.path, s.lines))
		}
	}
	if len(oversized) > 0 {
		findings = append(findings, finding("oversized_files", "Oversized source files",
			validation.StatusConditional, validation.SeverityMedium, validation.CategoryNative,
			fmt.Sprintf("%d files exceed %d lines", len(oversized), maxFileLines),
			strings.Join(oversized, "\n")))
		recommendations = append(recommendations, "Split files larger than 800 lines into focused modules")
	} else {
		findings = append(findings, finding("oversized_files", "Oversized source files",
			validation.StatusPass, validation.SeverityInfo, validation.CategoryNative,
			"No source file exceeds the structural size limit", ""))
	}

	// Stale-work markers.
	totalTodos := 0
	for _, s := range stats {
		totalTodos += s.todos
	}
	if totalTodos > todoWarnThreshold {
		findings = append(findings, finding("stale_markers", "Unresolved TODO/FIXME markers",
			validation.StatusConditional, validation.SeverityLow, validation.CategoryNative,
			fmt.Sprintf("%d TODO/FIXME markers across the tree", totalTodos), ""))
		recommendations = append(recommendations, "Triage outstanding TODO/FIXME markers before release")
	} else {
		findings = append(findings, finding("stale_markers", "Unresolved TODO/FIXME markers",
			validation.StatusPass, validation.SeverityInfo, validation.CategoryNative,
			fmt.Sprintf("%d TODO/FIXME markers, within tolerance", totalTodos), ""))
	}

	// panic() outside tests.
	var panicSites []string
	for _, s := range stats {
		for _, line := range s.panicLines {
			panicSites = append(panicSites, fmt.Sprintf("%s:%d", s.path, line))
		}
	}
	if len(panicSites) > 0 {
		findings = append(findings, finding("panic_calls", "panic() in non-test code",
			validation.StatusFail, validation.SeverityHigh, validation.CategoryNative,
			fmt.Sprintf("%d panic call sites in production code", len(panicSites)),
			strings.Join(panicSites, "\n")))
		recommendations = append(recommendations, "Replace panic calls in production paths with error returns")
	} else {
		findings = append(findings, finding("panic_calls", "panic() in non-test code",
			validation.StatusPass, validation.SeverityInfo, validation.CategoryNative,
			"No panic call sites outside tests", ""))
	}

	// Bridge-layer sync calls are an optional check.
	if !e.skipOptional {
		var syncBridges []string
		for _, s := range stats {
			if s.syncBridge {
				syncBridges = append(syncBridges, s.path)
			}
		}
		if len(syncBridges) > 0 {
			findings = append(findings, finding("bridge_sync_calls", "Synchronous bridge calls",
				validation.StatusConditional, validation.SeverityMedium, validation.CategoryBridge,
				fmt.Sprintf("%d bridge files use synchronous cross-layer calls", len(syncBridges)),
				strings.Join(syncBridges, "\n")))
			recommendations = append(recommendations, "Convert synchronous bridge calls to asynchronous ones")
		} else {
			findings = append(findings, finding("bridge_sync_calls", "Synchronous bridge calls",
				validation.StatusPass, validation.SeverityInfo, validation.CategoryBridge,
				"No synchronous bridge calls detected", ""))
		}
	}

	summary := fmt.Sprintf("Analyzed %d source files", len(stats))
	return validation.NewPhaseResult(validation.PhaseStaticAnalysis, startedAt, time.Now(), findings, summary, recommendations), nil
}

// Cleanup has nothing to release; safe before Initialize.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.initialized = false
	return nil
}

// collect walks the tree and gathers per-file stats.
func (e *Engine) collect(ctx context.Context) ([]fileStats, error) {
	var stats []fileStats
	err := filepath.WalkDir(e.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if !sourceExtensions[ext] {
			return nil
		}
		s, scanErr := scanFile(path)
		if scanErr != nil {
			// Unreadable files are skipped, not fatal.
			return nil
		}
		rel, relErr := filepath.Rel(e.root, path)
		if relErr == nil {
			s.path = rel
		}
		stats = append(stats, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source tree: %w", err)
	}
	return stats, nil
}

func scanFile(path string) (fileStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileStats{}, err
	}
	defer f.Close()

	s := fileStats{path: path}
	isTest := strings.Contains(filepath.Base(path), "_test.") ||
		strings.Contains(path, string(filepath.Separator)+"test"+string(filepath.Separator))
	lower := strings.ToLower(path)
	s.isBridge = strings.Contains(lower, "bridge")

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.lines++
		line := scanner.Text()
		if strings.Contains(line, "TODO") || strings.Contains(line, "FIXME") {
			s.todos++
		}
		if !isTest && strings.Contains(line, "panic(") && !strings.Contains(line, "recover") {
			s.panicLines = append(s.panicLines, s.lines)
		}
		if s.isBridge && (strings.Contains(line, "callSync") || strings.Contains(line, "sendSync")) {
			s.syncBridge = true
		}
	}
	return s, scanner.Err()
}

func finding(id, name string, status validation.Status, severity validation.Severity, category validation.Category, message, details string) validation.Finding {
	return validation.Finding{
		ID:        id,
		Name:      name,
		Status:    status,
		Severity:  severity,
		Category:  category,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}
