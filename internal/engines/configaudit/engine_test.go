package configaudit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halverson/readycheck/internal/validation"
)

func writeYAML(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func audit(t *testing.T, dir string) *validation.PhaseResult {
	t.Helper()
	e := New()
	if err := e.Initialize(context.Background(), validation.InitConfig{TargetPath: dir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	pr, err := e.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return pr
}

func findingByID(t *testing.T, pr *validation.PhaseResult, id string) validation.Finding {
	t.Helper()
	for _, f := range pr.Findings {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("no finding %q", id)
	return validation.Finding{}
}

func TestValidate_CleanConfig(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "app.yaml", `
server:
  host: 10.0.0.5
  tls: true
database:
  password: ${DB_PASSWORD}
`)

	pr := audit(t, dir)
	if pr.Status != validation.StatusPass {
		t.Errorf("status = %s, want PASS", pr.Status)
	}
}

func TestValidate_FlagsUnsafeSettings(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "app.yaml", `
debug: true
server:
  host: 0.0.0.0
  tls: false
database:
  password: hunter2
`)

	pr := audit(t, dir)

	tests := []struct {
		id       string
		status   validation.Status
		severity validation.Severity
		keyPath  string
	}{
		{"debug_enabled", validation.StatusConditional, validation.SeverityMedium, "debug"},
		{"wildcard_binding", validation.StatusConditional, validation.SeverityHigh, "server.host"},
		{"tls_disabled", validation.StatusFail, validation.SeverityHigh, "server.tls"},
		{"inline_credentials", validation.StatusFail, validation.SeverityCritical, "database.password"},
	}
	for _, tt := range tests {
		f := findingByID(t, pr, tt.id)
		if f.Status != tt.status || f.Severity != tt.severity {
			t.Errorf("%s = %s/%s, want %s/%s", tt.id, f.Status, f.Severity, tt.status, tt.severity)
		}
		if !strings.Contains(f.Details, tt.keyPath) {
			t.Errorf("%s details = %q, missing %q", tt.id, f.Details, tt.keyPath)
		}
	}
	if pr.Status != validation.StatusFail {
		t.Errorf("phase status = %s, want FAIL", pr.Status)
	}
}

func TestValidate_SecretReferencesExempt(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "app.yaml", `
auth:
  token: env:AUTH_TOKEN
  api_key: vault:kv/app/api
  secret: ${APP_SECRET}
`)

	pr := audit(t, dir)
	f := findingByID(t, pr, "inline_credentials")
	if f.Status != validation.StatusPass {
		t.Errorf("reference-style credentials flagged: %+v", f)
	}
}

func TestValidate_UnparseableFile(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "broken.yaml", "key: [unterminated\n")
	writeYAML(t, dir, "ok.yaml", "server:\n  tls: true\n")

	pr := audit(t, dir)
	f := findingByID(t, pr, "unparseable_configs")
	if f.Status != validation.StatusConditional {
		t.Errorf("unparseable_configs = %s, want CONDITIONAL", f.Status)
	}
	if !strings.Contains(f.Details, "broken.yaml") {
		t.Errorf("details = %q", f.Details)
	}
}

func TestValidate_NestedAndListKeys(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "app.yaml", `
services:
  - name: api
    listen: "*"
  - name: worker
    listen: 127.0.0.1
`)

	pr := audit(t, dir)
	f := findingByID(t, pr, "wildcard_binding")
	if f.Status != validation.StatusConditional {
		t.Errorf("wildcard_binding = %s", f.Status)
	}
	if !strings.Contains(f.Message, "1 occurrences") {
		t.Errorf("message = %q", f.Message)
	}
}

func TestValidate_RequiresInitialize(t *testing.T) {
	e := New()
	if _, err := e.Validate(context.Background()); err == nil {
		t.Error("Validate before Initialize must fail")
	}
}
