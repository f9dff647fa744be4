package staticcheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halverson/readycheck/internal/validation"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func findingByID(t *testing.T, pr *validation.PhaseResult, id string) validation.Finding {
	t.Helper()
	for _, f := range pr.Findings {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("no finding %q in %+v", id, pr.Findings)
	return validation.Finding{}
}

func runEngine(t *testing.T, dir string, skipOptional bool) *validation.PhaseResult {
	t.Helper()
	e := New()
	cfg := validation.InitConfig{TargetPath: dir, SkipOptionalChecks: skipOptional}
	if err := e.Initialize(context.Background(), cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	pr, err := e.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := e.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	return pr
}

func TestValidate_CleanTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	pr := runEngine(t, dir, false)
	if pr.Status != validation.StatusPass {
		t.Errorf("status = %s, want PASS", pr.Status)
	}
	for _, f := range pr.Findings {
		if f.Status != validation.StatusPass {
			t.Errorf("finding %s = %s", f.ID, f.Status)
		}
	}
}

func TestValidate_PanicCallsFail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "handler.go", "package app\n\nfunc handle() {\n\tpanic(\"boom\")\n}\n")
	// panic in a test file is tolerated.
	writeFile(t, dir, "handler_test.go", "package app\n\nfunc check() {\n\tpanic(\"test only\")\n}\n")

	pr := runEngine(t, dir, false)
	f := findingByID(t, pr, "panic_calls")
	if f.Status != validation.StatusFail || f.Severity != validation.SeverityHigh {
		t.Errorf("panic_calls = %s/%s", f.Status, f.Severity)
	}
	if !strings.Contains(f.Details, "handler.go:4") {
		t.Errorf("details = %q", f.Details)
	}
	if strings.Contains(f.Details, "handler_test.go") {
		t.Error("test file counted as a panic site")
	}
	if pr.Status != validation.StatusFail {
		t.Errorf("phase status = %s", pr.Status)
	}
}

func TestValidate_OversizedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.go", "package app\n"+strings.Repeat("// filler\n", 850))

	pr := runEngine(t, dir, false)
	f := findingByID(t, pr, "oversized_files")
	if f.Status != validation.StatusConditional {
		t.Errorf("oversized_files = %s, want CONDITIONAL", f.Status)
	}
	if !strings.Contains(f.Details, "big.go") {
		t.Errorf("details = %q", f.Details)
	}
}

func TestValidate_StaleMarkers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "todo.go", "package app\n"+strings.Repeat("// TODO: later\n", 11))

	pr := runEngine(t, dir, false)
	f := findingByID(t, pr, "stale_markers")
	if f.Status != validation.StatusConditional {
		t.Errorf("stale_markers = %s, want CONDITIONAL", f.Status)
	}
}

func TestValidate_SkipOptionalOmitsBridgeCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bridge.ts", "export function ping() { return callSync('ping'); }\n")

	full := runEngine(t, dir, false)
	bridge := findingByID(t, full, "bridge_sync_calls")
	if bridge.Status != validation.StatusConditional {
		t.Errorf("bridge_sync_calls = %s, want CONDITIONAL", bridge.Status)
	}

	trimmed := runEngine(t, dir, true)
	for _, f := range trimmed.Findings {
		if f.ID == "bridge_sync_calls" {
			t.Error("optional check ran despite SkipOptionalChecks")
		}
	}
}

func TestValidate_SkipsVendoredDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("node_modules", "dep.js"), "panic(\"not ours\")\n")
	writeFile(t, dir, "ok.go", "package app\n")

	pr := runEngine(t, dir, false)
	f := findingByID(t, pr, "panic_calls")
	if f.Status != validation.StatusPass {
		t.Errorf("vendored code leaked into the scan: %+v", f)
	}
}

func TestValidate_RequiresInitialize(t *testing.T) {
	e := New()
	if _, err := e.Validate(context.Background()); err == nil {
		t.Error("Validate before Initialize must fail")
	}
}

func TestInitialize_RejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.go", "package app\n")

	e := New()
	err := e.Initialize(context.Background(), validation.InitConfig{TargetPath: filepath.Join(dir, "file.go")})
	if err == nil {
		t.Error("file target must be rejected")
	}
}
