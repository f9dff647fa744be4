package dbsim

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/halverson/readycheck/internal/validation"
)

func TestValidate_SmallLoad(t *testing.T) {
	target := t.TempDir()
	e := New()
	cfg := validation.InitConfig{TargetPath: target, MaxConcurrentUsers: 3}
	if err := e.Initialize(context.Background(), cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer e.Cleanup(context.Background())

	pr, err := e.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	byID := make(map[string]validation.Finding)
	for _, f := range pr.Findings {
		byID[f.ID] = f
	}
	for _, id := range []string{"insert_latency", "lock_contention", "data_integrity"} {
		if _, ok := byID[id]; !ok {
			t.Errorf("missing finding %q", id)
		}
	}

	// A tiny in-process load must never drop rows.
	integrity := byID["data_integrity"]
	if integrity.Status != validation.StatusPass {
		t.Errorf("data_integrity = %s: %s", integrity.Status, integrity.Message)
	}

	// The summary artifact is left for the performance phase.
	data, err := os.ReadFile(filepath.Join(target, ".readycheck", ArtifactName))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if summary.Users != 3 || summary.Operations != 3*opsPerUser {
		t.Errorf("summary = %+v", summary)
	}
	if summary.RowsPersisted != summary.Operations {
		t.Errorf("persisted %d of %d rows", summary.RowsPersisted, summary.Operations)
	}
}

func TestInitialize_DefaultsUserCount(t *testing.T) {
	e := New()
	cfg := validation.InitConfig{TargetPath: t.TempDir(), MaxConcurrentUsers: 0}
	if err := e.Initialize(context.Background(), cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer e.Cleanup(context.Background())
	if e.users != 10 {
		t.Errorf("users = %d, want default 10", e.users)
	}
}

func TestCleanup_RemovesDatabase(t *testing.T) {
	target := t.TempDir()
	e := New()
	if err := e.Initialize(context.Background(), validation.InitConfig{TargetPath: target, MaxConcurrentUsers: 1}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	dbPath := e.dbPath
	if err := e.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("database file survived cleanup: %v", err)
	}
	// Repeated cleanup is a no-op.
	if err := e.Cleanup(context.Background()); err != nil {
		t.Errorf("second Cleanup: %v", err)
	}
}

func TestValidate_RequiresInitialize(t *testing.T) {
	e := New()
	if _, err := e.Validate(context.Background()); err == nil {
		t.Error("Validate before Initialize must fail")
	}
}

func TestValidate_CancelledContext(t *testing.T) {
	target := t.TempDir()
	e := New()
	if err := e.Initialize(context.Background(), validation.InitConfig{TargetPath: target, MaxConcurrentUsers: 2}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer e.Cleanup(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Validate(ctx); err == nil {
		t.Error("cancelled load must surface an error")
	}
}
