// Package configaudit implements the configuration-audit engine. It
// parses the target's YAML configuration documents and flags unsafe
// settings: debug modes, wildcard bindings, disabled TLS and inline
// credentials.
package configaudit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/halverson/readycheck/internal/validation"
)

// issue is one problem found in a configuration document.
type issue struct {
	file string
	path string
	text string
}

// Engine is the configuration-audit engine.
type Engine struct {
	root  string
	files []string
}

// New creates a configuration-audit engine.
func New() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "configuration-audit"
}

// Initialize locates the YAML documents to audit.
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
			case ".git", "node_modules", "vendor", ".readycheck":
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			e.files = append(e.files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("locate configuration files: %w", err)
	}
	return nil
}

// Validate parses each document and runs the policy checks, producing
// one finding per check.
func (e *Engine) Validate(ctx context.Context) (*validation.PhaseResult, error) {
	if e.root == "" {
		return nil, fmt.Errorf("engine not initialized")
	}
	startedAt := time.Now()

	var debugOn, wildcardHosts, tlsOff, inlineSecrets []issue
	var unparseable []string

	for _, path := range e.files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			rel := relPath(e.root, path)
			unparseable = append(unparseable, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		rel := relPath(e.root, path)
		walk(doc, "", func(keyPath string, value interface{}) {
			key := lastSegment(keyPath)
			switch {
			case key == "debug" && isTrue(value):
				debugOn = append(debugOn, issue{file: rel, path: keyPath, text: "debug enabled"})
			case (key == "host" || key == "bind" || key == "listen") && isWildcard(value):
				wildcardHosts = append(wildcardHosts, issue{file: rel, path: keyPath, text: fmt.Sprint(value)})
			case (key == "tls" || key == "ssl" || key == "https") && isFalse(value):
				tlsOff = append(tlsOff, issue{file: rel, path: keyPath, text: "transport security disabled"})
			case isSecretKey(key) && isInlineSecret(value):
				inlineSecrets = append(inlineSecrets, issue{file: rel, path: keyPath, text: "literal credential"})
			}
		})
	}

	var findings []validation.Finding
	var recommendations []string

	add := func(id, name string, issues []issue, status validation.Status, severity validation.Severity, failMsg, advice string) {
		if len(issues) == 0 {
			findings = append(findings, cfgFinding(id, name, validation.StatusPass, validation.SeverityInfo, "no occurrences found", ""))
			return
		}
		var details []string
		for _, i := range issues {
			details = append(details, fmt.Sprintf("%s: %s (%s)", i.file, i.path, i.text))
		}
		findings = append(findings, cfgFinding(id, name, status, severity,
			fmt.Sprintf("%s (%d occurrences)", failMsg, len(issues)), strings.Join(details, "\n")))
		recommendations = append(recommendations, advice)
	}

	add("debug_enabled", "Debug mode enabled", debugOn,
		validation.StatusConditional, validation.SeverityMedium,
		"debug mode is switched on", "Disable debug settings in production configuration")
	add("wildcard_binding", "Wildcard network binding", wildcardHosts,
		validation.StatusConditional, validation.SeverityHigh,
		"services bind to all interfaces", "Bind services to explicit interfaces")
	add("tls_disabled", "Transport security disabled", tlsOff,
		validation.StatusFail, validation.SeverityHigh,
		"TLS/SSL is disabled", "Enable transport security on every exposed endpoint")
	add("inline_credentials", "Inline credentials", inlineSecrets,
		validation.StatusFail, validation.SeverityCritical,
		"credentials stored as literals", "Move credentials into environment variables or a secret store")

	if len(unparseable) > 0 {
		findings = append(findings, cfgFinding("unparseable_configs", "Unparseable configuration files",
			validation.StatusConditional, validation.SeverityLow,
			fmt.Sprintf("%d files failed to parse", len(unparseable)), strings.Join(unparseable, "\n")))
		recommendations = append(recommendations, "Fix YAML syntax errors so configuration can be audited")
	} else {
		findings = append(findings, cfgFinding("unparseable_configs", "Unparseable configuration files",
			validation.StatusPass, validation.SeverityInfo, "all configuration files parsed", ""))
	}

	summary := fmt.Sprintf("Audited %d configuration files", len(e.files))
	return validation.NewPhaseResult(validation.PhaseConfigurationAudit, startedAt, time.Now(), findings, summary, recommendations), nil
}

// Cleanup drops the scan state. Safe before Initialize.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.files = nil
	e.root = ""
	return nil
}

// walk visits every leaf of a decoded YAML document, reporting the
// dotted key path of each value.
func walk(node interface{}, prefix string, visit func(keyPath string, value interface{})) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, child := range v {
			walk(child, joinPath(prefix, key), visit)
		}
	case []interface{}:
		for i, child := range v {
			walk(child, fmt.Sprintf("%s[%d]", prefix, i), visit)
		}
	default:
		visit(prefix, v)
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func lastSegment(keyPath string) string {
	if idx := strings.LastIndex(keyPath, "."); idx >= 0 {
		keyPath = keyPath[idx+1:]
	}
	if idx := strings.Index(keyPath, "["); idx >= 0 {
		keyPath = keyPath[:idx]
	}
	return strings.ToLower(keyPath)
}

func isTrue(value interface{}) bool {
	b, ok := value.(bool)
	return ok && b
}

func isFalse(value interface{}) bool {
	b, ok := value.(bool)
	return ok && !b
}

func isWildcard(value interface{}) bool {
	s, ok := value.(string)
	return ok && (s == "0.0.0.0" || s == "*" || s == "::")
}

func isSecretKey(key string) bool {
	switch key {
	case "password", "secret", "api_key", "apikey", "token", "private_key":
		return true
	}
	return false
}

// isInlineSecret reports whether a credential value is a literal rather
// than an environment reference or placeholder.
func isInlineSecret(value interface{}) bool {
	s, ok := value.(string)
	if !ok || s == "" {
		return false
	}
	if strings.HasPrefix(s, "${") || strings.HasPrefix(s, "env:") || strings.HasPrefix(s, "vault:") {
		return false
	}
	return true
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}

func cfgFinding(id, name string, status validation.Status, severity validation.Severity, message, details string) validation.Finding {
	return validation.Finding{
		ID:        id,
		Name:      name,
		Status:    status,
		Severity:  severity,
		Category:  validation.CategoryConfig,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}
