package validation

import (
	"encoding/json"
	"testing"
)

func TestLogLevelRoundTrip(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelCritical}
	for _, level := range levels {
		if got := ParseLogLevel(level.String()); got != level {
			t.Errorf("ParseLogLevel(%s) = %s", level, got)
		}
	}
	if got := ParseLogLevel("bogus"); got != LevelInfo {
		t.Errorf("unknown name parsed to %s, want INFO", got)
	}
}

func TestExecutionLogger_MinLevelDropsAtWrite(t *testing.T) {
	logger := NewExecutionLogger("test1234", LevelWarn)
	logger.Debugf("orchestration", "dropped")
	logger.Infof("orchestration", "also dropped")
	logger.Warnf("orchestration", "kept")
	logger.Errorf("engine", "kept too")

	all := logger.GetLogs(LevelDebug)
	if len(all) != 2 {
		t.Fatalf("buffer holds %d entries, want 2", len(all))
	}
	// Below-threshold entries are gone for good, even when asked for.
	if all[0].Message != "kept" || all[1].Message != "kept too" {
		t.Errorf("unexpected entries: %+v", all)
	}
}

func TestExecutionLogger_SequenceAndContext(t *testing.T) {
	logger := NewExecutionLogger("test1234", LevelDebug)
	logger.SetPhase("security_audit")
	logger.SetStep("scan_definitions")
	logger.Infof("engine", "first")
	logger.SetPhase("")
	logger.Infof("orchestration", "second")

	entries := logger.GetLogs(LevelDebug)
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Sequence != 1 || entries[1].Sequence != 2 {
		t.Errorf("sequences = %d, %d", entries[0].Sequence, entries[1].Sequence)
	}
	if entries[0].Phase != "security_audit" || entries[0].Step != "scan_definitions" {
		t.Errorf("first entry context = %q/%q", entries[0].Phase, entries[0].Step)
	}
	// Clearing the phase clears the step with it.
	if entries[1].Phase != "" || entries[1].Step != "" {
		t.Errorf("second entry context = %q/%q", entries[1].Phase, entries[1].Step)
	}
}

func TestExecutionLogger_Filters(t *testing.T) {
	logger := NewExecutionLogger("test1234", LevelDebug)
	logger.SetPhase("static_analysis")
	logger.Infof("engine", "a")
	logger.Warnf("engine", "b")
	logger.SetPhase("security_audit")
	logger.Errorf("orchestration", "c")

	if got := logger.GetLogs(LevelWarn); len(got) != 2 {
		t.Errorf("GetLogs(WARN) = %d entries, want 2", len(got))
	}
	if got := logger.GetLogsByCategory("engine"); len(got) != 2 {
		t.Errorf("GetLogsByCategory(engine) = %d entries, want 2", len(got))
	}
	if got := logger.GetLogsByPhase("security_audit"); len(got) != 1 {
		t.Errorf("GetLogsByPhase(security_audit) = %d entries, want 1", len(got))
	}
}

func TestExecutionLogger_ExportAndSummary(t *testing.T) {
	logger := NewExecutionLogger("abc12345", LevelDebug)
	logger.Infof("orchestration", "started")
	logger.Warnf("orchestration", "no engine registered")
	logger.Errorf("engine", "validate failed")
	logger.Criticalf("engine", "phase failed")

	exported, err := logger.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var payload struct {
		ExecutionID string     `json:"executionId"`
		Entries     []LogEntry `json:"entries"`
	}
	if err := json.Unmarshal([]byte(exported), &payload); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if payload.ExecutionID != "abc12345" || len(payload.Entries) != 4 {
		t.Errorf("payload = %s / %d entries", payload.ExecutionID, len(payload.Entries))
	}
	if payload.Entries[3].Level != LevelCritical {
		t.Errorf("level round trip = %s", payload.Entries[3].Level)
	}

	summary := logger.Summary()
	if summary.TotalEntries != 4 {
		t.Errorf("TotalEntries = %d", summary.TotalEntries)
	}
	if summary.CountsByLevel["WARN"] != 1 || summary.CountsByLevel["CRITICAL"] != 1 {
		t.Errorf("CountsByLevel = %v", summary.CountsByLevel)
	}
	if summary.CountsByCategory["engine"] != 2 {
		t.Errorf("CountsByCategory = %v", summary.CountsByCategory)
	}
	// ERROR and CRITICAL both land in the errors bucket.
	if len(summary.Errors) != 2 || len(summary.Warnings) != 1 {
		t.Errorf("errors = %d, warnings = %d", len(summary.Errors), len(summary.Warnings))
	}
}
