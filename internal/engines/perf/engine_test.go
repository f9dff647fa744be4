package perf

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halverson/readycheck/internal/engines/dbsim"
	"github.com/halverson/readycheck/internal/validation"
)

func runProbes(t *testing.T, target string) *validation.PhaseResult {
	t.Helper()
	e := New()
	if err := e.Initialize(context.Background(), validation.InitConfig{TargetPath: target}); err != nil {
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

func writeArtifact(t *testing.T, target string, summary dbsim.Summary) {
	t.Helper()
	dir := filepath.Join(target, ".readycheck")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, dbsim.ArtifactName), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestValidate_WithoutArtifact(t *testing.T) {
	pr := runProbes(t, t.TempDir())

	f := findingByID(t, pr, "db_throughput")
	if f.Status != validation.StatusConditional || f.Severity != validation.SeverityLow {
		t.Errorf("db_throughput = %s/%s, want CONDITIONAL/LOW", f.Status, f.Severity)
	}
	// The probes themselves still ran.
	findingByID(t, pr, "cpu_probe")
	findingByID(t, pr, "alloc_probe")
}

func TestValidate_WithFastArtifact(t *testing.T) {
	target := t.TempDir()
	writeArtifact(t, target, dbsim.Summary{
		Users:    5,
		AvgQuery: 2 * time.Millisecond,
	})

	pr := runProbes(t, target)
	f := findingByID(t, pr, "db_throughput")
	if f.Status != validation.StatusPass {
		t.Errorf("db_throughput = %s, want PASS: %s", f.Status, f.Message)
	}
}

func TestValidate_WithSlowArtifact(t *testing.T) {
	target := t.TempDir()
	writeArtifact(t, target, dbsim.Summary{
		Users:    5,
		AvgQuery: 50 * time.Millisecond,
	})

	pr := runProbes(t, target)
	f := findingByID(t, pr, "db_throughput")
	if f.Status != validation.StatusConditional || f.Severity != validation.SeverityMedium {
		t.Errorf("db_throughput = %s/%s, want CONDITIONAL/MEDIUM", f.Status, f.Severity)
	}
}

func TestValidate_CorruptArtifactTreatedAsMissing(t *testing.T) {
	target := t.TempDir()
	dir := filepath.Join(target, ".readycheck")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, dbsim.ArtifactName), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	pr := runProbes(t, target)
	f := findingByID(t, pr, "db_throughput")
	if f.Status != validation.StatusConditional || f.Severity != validation.SeverityLow {
		t.Errorf("db_throughput = %s/%s", f.Status, f.Severity)
	}
}

func TestValidate_RequiresInitialize(t *testing.T) {
	e := New()
	if _, err := e.Validate(context.Background()); err == nil {
		t.Error("Validate before Initialize must fail")
	}
}
