package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halverson/readycheck/internal/validation"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
validation:
  phases:
    - static_analysis
    - security_audit
  max_concurrent_users: 25
  timeout: 30s
  output_format: markdown
  log_level: debug
history:
  enabled: false
tui:
  refresh_rate: 100ms
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(cfg.Validation.Phases) != 2 {
		t.Errorf("phases = %v", cfg.Validation.Phases)
	}
	if cfg.Validation.MaxConcurrentUsers != 25 {
		t.Errorf("users = %d", cfg.Validation.MaxConcurrentUsers)
	}
	if cfg.Validation.Timeout != 30*time.Second {
		t.Errorf("timeout = %s", cfg.Validation.Timeout)
	}
	if cfg.History.Enabled {
		t.Error("history should be disabled")
	}
	if cfg.TUI.RefreshRate != 100*time.Millisecond {
		t.Errorf("refresh rate = %s", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPath_DefaultsFillGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("history:\n  enabled: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(cfg.Validation.Phases) != 1 || cfg.Validation.Phases[0] != "all" {
		t.Errorf("phases default = %v", cfg.Validation.Phases)
	}
	if cfg.Validation.MaxConcurrentUsers != 10 {
		t.Errorf("users default = %d", cfg.Validation.MaxConcurrentUsers)
	}
	if cfg.Validation.OutputFormat != "JSON" {
		t.Errorf("format default = %q", cfg.Validation.OutputFormat)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file must fail")
	}
}

func TestExecutionConfig_AllPhases(t *testing.T) {
	cfg := &Config{Validation: ValidationConfig{
		Phases:       []string{"all"},
		OutputFormat: "json",
		LogLevel:     "info",
	}}

	execCfg, err := cfg.ExecutionConfig()
	if err != nil {
		t.Fatalf("ExecutionConfig: %v", err)
	}
	if len(execCfg.EnabledPhases) != len(validation.AllPhaseIDs()) {
		t.Errorf("enabled = %v", execCfg.EnabledPhases)
	}
	if execCfg.OutputFormat != validation.FormatJSON {
		t.Errorf("format = %s", execCfg.OutputFormat)
	}
	if execCfg.LogLevel != validation.LevelInfo {
		t.Errorf("log level = %s", execCfg.LogLevel)
	}
}

func TestExecutionConfig_NamedPhases(t *testing.T) {
	cfg := &Config{Validation: ValidationConfig{
		Phases:       []string{" Security_Audit ", "database_simulation"},
		OutputFormat: "MARKDOWN",
		LogLevel:     "warn",
	}}

	execCfg, err := cfg.ExecutionConfig()
	if err != nil {
		t.Fatalf("ExecutionConfig: %v", err)
	}
	want := []validation.PhaseID{validation.PhaseSecurityAudit, validation.PhaseDatabaseSimulation}
	if len(execCfg.EnabledPhases) != len(want) {
		t.Fatalf("enabled = %v", execCfg.EnabledPhases)
	}
	for i := range want {
		if execCfg.EnabledPhases[i] != want[i] {
			t.Errorf("phase %d = %s, want %s", i, execCfg.EnabledPhases[i], want[i])
		}
	}
	if execCfg.LogLevel != validation.LevelWarn {
		t.Errorf("log level = %s", execCfg.LogLevel)
	}
}

func TestExecutionConfig_UnknownPhase(t *testing.T) {
	cfg := &Config{Validation: ValidationConfig{
		Phases:       []string{"quantum_audit"},
		OutputFormat: "json",
	}}
	if _, err := cfg.ExecutionConfig(); err == nil {
		t.Error("unknown phase must fail")
	}
}

func TestExecutionConfig_UnknownFormat(t *testing.T) {
	cfg := &Config{Validation: ValidationConfig{
		Phases:       []string{"all"},
		OutputFormat: "xml",
	}}
	if _, err := cfg.ExecutionConfig(); err == nil {
		t.Error("unknown format must fail")
	}
}
