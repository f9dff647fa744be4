// Package state provides SQLite-based persistence for finished
// validation runs. It keeps a history database under the user's data
// directory (or a project-local path) so past verdicts can be listed
// and compared.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/halverson/readycheck/internal/validation"
)

// DB wraps an SQLite connection with run-history operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultDBPath returns the path of the global history database.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "readycheck", "history.db")
}

// Open opens the history database at path, creating parent directories
// as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// migrate applies pending schema migrations using a version table.
func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	execution_id TEXT PRIMARY KEY,
	target_path TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	overall_status TEXT NOT NULL,
	readiness TEXT NOT NULL,
	confidence TEXT NOT NULL,
	total_issues INTEGER NOT NULL,
	result_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// RunRecord is one stored history row.
type RunRecord struct {
	ExecutionID   string
	TargetPath    string
	StartedAt     time.Time
	Duration      time.Duration
	OverallStatus validation.Status
	Readiness     validation.Readiness
	Confidence    validation.Confidence
	TotalIssues   int
}

// SaveRun persists a finished aggregate result. The full result is
// stored as JSON next to the indexed verdict columns.
func (db *DB) SaveRun(result *validation.AggregateResult, targetPath string) error {
	if result == nil {
		return fmt.Errorf("nil result")
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO runs
		(execution_id, target_path, started_at, duration_ms, overall_status, readiness, confidence, total_issues, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ExecutionID, targetPath, result.Timestamp, result.TotalDuration.Milliseconds(),
		string(result.OverallStatus), string(result.ProductionReadiness), string(result.ConfidenceLevel),
		result.TotalIssues, string(blob))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT execution_id, target_path, started_at, duration_ms, overall_status, readiness, confidence, total_issues
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var durationMs int64
		var status, readiness, confidence string
		if err := rows.Scan(&r.ExecutionID, &r.TargetPath, &r.StartedAt, &durationMs, &status, &readiness, &confidence, &r.TotalIssues); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.OverallStatus = validation.Status(status)
		r.Readiness = validation.Readiness(readiness)
		r.Confidence = validation.Confidence(confidence)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRun loads the full stored aggregate for one execution.
func (db *DB) GetRun(executionID string) (*validation.AggregateResult, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var blob string
	row := db.conn.QueryRow("SELECT result_json FROM runs WHERE execution_id = ?", executionID)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", executionID)
		}
		return nil, fmt.Errorf("load run: %w", err)
	}

	var result validation.AggregateResult
	if err := json.Unmarshal([]byte(blob), &result); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", executionID, err)
	}
	return &result, nil
}
