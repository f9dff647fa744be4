package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/halverson/readycheck/internal/validation"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleResult(id string, started time.Time) *validation.AggregateResult {
	agg := validation.NewAggregateResult(id, "0.4.2", started)
	agg.AddPhaseResult(validation.NewPhaseResult(validation.PhaseSecurityAudit,
		started, started.Add(time.Second),
		[]validation.Finding{{
			ID:        "sql_injection",
			Name:      "Dynamic SQL injection risk",
			Status:    validation.StatusFail,
			Severity:  validation.SeverityCritical,
			Category:  validation.CategorySecurity,
			Message:   "dynamic SQL built by string concatenation",
			Timestamp: started,
		}},
		"audited 1 file", nil))
	validation.DefaultPolicy().Assess(agg, 1)
	agg.TotalDuration = 1500 * time.Millisecond
	return agg
}

func TestSaveRun_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	result := sampleResult("run00001", time.Now().UTC())

	if err := db.SaveRun(result, "/srv/app"); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	loaded, err := db.GetRun("run00001")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if loaded.ExecutionID != result.ExecutionID {
		t.Errorf("ExecutionID = %q", loaded.ExecutionID)
	}
	if loaded.OverallStatus != result.OverallStatus {
		t.Errorf("OverallStatus = %s, want %s", loaded.OverallStatus, result.OverallStatus)
	}
	if loaded.TotalIssues != result.TotalIssues {
		t.Errorf("TotalIssues = %d, want %d", loaded.TotalIssues, result.TotalIssues)
	}
	pr, ok := loaded.Phases[validation.PhaseSecurityAudit]
	if !ok || len(pr.Findings) != 1 {
		t.Fatalf("phase payload lost: %+v", loaded.Phases)
	}
	if pr.Findings[0].ID != "sql_injection" {
		t.Errorf("finding = %+v", pr.Findings[0])
	}
}

func TestSaveRun_ReplaceOnSameID(t *testing.T) {
	db := openTestDB(t)
	result := sampleResult("run00002", time.Now().UTC())

	if err := db.SaveRun(result, "/srv/app"); err != nil {
		t.Fatalf("first SaveRun: %v", err)
	}
	if err := db.SaveRun(result, "/srv/other"); err != nil {
		t.Fatalf("second SaveRun: %v", err)
	}

	records, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].TargetPath != "/srv/other" {
		t.Errorf("target = %q, replace did not take", records[0].TargetPath)
	}
}

func TestListRuns_NewestFirstAndLimit(t *testing.T) {
	db := openTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"old00001", "mid00001", "new00001"} {
		result := sampleResult(id, base.Add(time.Duration(i)*time.Minute))
		if err := db.SaveRun(result, "/srv/app"); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	records, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ExecutionID != "new00001" || records[1].ExecutionID != "mid00001" {
		t.Errorf("order = %s, %s", records[0].ExecutionID, records[1].ExecutionID)
	}
	if records[0].Duration != 1500*time.Millisecond {
		t.Errorf("duration = %s", records[0].Duration)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun("missing1"); err == nil {
		t.Error("missing run must fail")
	}
}

func TestSaveRun_NilResult(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveRun(nil, "/srv/app"); err == nil {
		t.Error("nil result must fail")
	}
}

func TestOpen_Reentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := db.SaveRun(sampleResult("run00003", time.Now().UTC()), "/srv/app"); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	db.Close()

	// Reopening applies no migrations twice and keeps the data.
	db2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()
	if _, err := db2.GetRun("run00003"); err != nil {
		t.Errorf("data lost across reopen: %v", err)
	}
}
