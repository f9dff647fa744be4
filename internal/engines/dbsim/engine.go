// Package dbsim implements the database-simulation engine. It
// provisions a throwaway SQLite database, drives it with synthetic
// concurrent users, and reports latency, contention and integrity
// findings. A machine-readable summary artifact is left behind for the
// performance-analysis phase.
package dbsim

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halverson/readycheck/internal/validation"
)

const (
	// opsPerUser is how many write/read pairs each synthetic user runs.
	opsPerUser = 25
	// insertLatencyWarn flags average insert latency above this.
	insertLatencyWarn = 25 * time.Millisecond
	// busyRateFail flags a run where this fraction of operations hit
	// lock contention.
	busyRateFail = 0.10
)

// ArtifactName is the summary file the engine writes under the target's
// working directory for downstream phases.
const ArtifactName = "dbsim_summary.json"

// Summary is the artifact consumed by the performance-analysis engine.
type Summary struct {
	Users          int           `json:"users"`
	Operations     int           `json:"operations"`
	BusyRetries    int           `json:"busyRetries"`
	AvgInsert      time.Duration `json:"avgInsertNs"`
	AvgQuery       time.Duration `json:"avgQueryNs"`
	RowsPersisted  int           `json:"rowsPersisted"`
	WallClock      time.Duration `json:"wallClockNs"`
}

// Engine is the database-simulation engine.
type Engine struct {
	users   int
	workDir string
	dbPath  string
	db      *sql.DB
}

// New creates a database-simulation engine.
func New() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "database-simulation"
}

// Initialize provisions the throwaway database file and schema.
func (e *Engine) Initialize(ctx context.Context, cfg validation.InitConfig) error {
	e.users = cfg.MaxConcurrentUsers
	if e.users <= 0 {
		e.users = 10
	}

	e.workDir = filepath.Join(cfg.TargetPath, ".readycheck")
	if err := os.MkdirAll(e.workDir, 0755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	e.dbPath = filepath.Join(e.workDir, "simulation.db")
	_ = os.Remove(e.dbPath)

	db, err := sql.Open("sqlite3", e.dbPath+"?_busy_timeout=200")
	if err != nil {
		return fmt.Errorf("open simulation database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)
	`); err != nil {
		db.Close()
		return fmt.Errorf("create simulation schema: %w", err)
	}
	e.db = db
	return nil
}

// Validate runs the concurrent load and rolls the measurements into
// findings.
func (e *Engine) Validate(ctx context.Context) (*validation.PhaseResult, error) {
	if e.db == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	startedAt := time.Now()

	summary, err := e.runLoad(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.writeArtifact(summary); err != nil {
		// The artifact only feeds the performance phase; losing it is
		// not a simulation failure.
		_ = err
	}

	var findings []validation.Finding
	var recommendations []string

	// Insert latency.
	if summary.AvgInsert > insertLatencyWarn {
		findings = append(findings, finding("insert_latency", "Insert latency under load",
			validation.StatusConditional, validation.SeverityMedium,
			fmt.Sprintf("average insert took %s under %d concurrent users", summary.AvgInsert.Round(time.Microsecond), summary.Users)))
		recommendations = append(recommendations, "Batch writes or add an index to reduce insert latency under load")
	} else {
		findings = append(findings, passFinding("insert_latency", "Insert latency under load",
			fmt.Sprintf("average insert %s under %d concurrent users", summary.AvgInsert.Round(time.Microsecond), summary.Users)))
	}

	// Lock contention.
	busyRate := float64(summary.BusyRetries) / float64(summary.Operations)
	if busyRate > busyRateFail {
		findings = append(findings, finding("lock_contention", "Write lock contention",
			validation.StatusFail, validation.SeverityHigh,
			fmt.Sprintf("%.0f%% of operations hit the write lock", busyRate*100)))
		recommendations = append(recommendations, "Serialize writers through a queue or enable WAL on the production store")
	} else {
		findings = append(findings, passFinding("lock_contention", "Write lock contention",
			fmt.Sprintf("%.1f%% of operations retried on the write lock", busyRate*100)))
	}

	// Integrity: every successful insert must be persisted.
	expected := summary.Users * opsPerUser
	if summary.RowsPersisted != expected {
		findings = append(findings, finding("data_integrity", "Persisted row count",
			validation.StatusFail, validation.SeverityCritical,
			fmt.Sprintf("expected %d rows, found %d", expected, summary.RowsPersisted)))
		recommendations = append(recommendations, "Audit the write path for dropped transactions under concurrency")
	} else {
		findings = append(findings, passFinding("data_integrity", "Persisted row count",
			fmt.Sprintf("all %d rows persisted", expected)))
	}

	phaseSummary := fmt.Sprintf("Simulated %d concurrent users over %d operations in %s",
		summary.Users, summary.Operations, summary.WallClock.Round(time.Millisecond))
	return validation.NewPhaseResult(validation.PhaseDatabaseSimulation, startedAt, time.Now(), findings, phaseSummary, recommendations), nil
}

// Cleanup closes and removes the throwaway database. Safe to call
// before Initialize or repeatedly.
func (e *Engine) Cleanup(ctx context.Context) error {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			return fmt.Errorf("close simulation database: %w", err)
		}
		e.db = nil
	}
	if e.dbPath != "" {
		_ = os.Remove(e.dbPath)
		_ = os.Remove(e.dbPath + "-wal")
		_ = os.Remove(e.dbPath + "-shm")
	}
	return nil
}

// runLoad drives the synthetic users and aggregates their timings.
func (e *Engine) runLoad(ctx context.Context) (Summary, error) {
	start := time.Now()

	var mu sync.Mutex
	var insertTotal, queryTotal time.Duration
	var busyRetries int

	var wg sync.WaitGroup
	errCh := make(chan error, e.users)

	for user := 0; user < e.users; user++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			var localInsert, localQuery time.Duration
			localBusy := 0

			for op := 0; op < opsPerUser; op++ {
				if ctx.Err() != nil {
					errCh <- ctx.Err()
					return
				}
				payload := fmt.Sprintf("user-%d-op-%d", userID, op)

				t0 := time.Now()
				for {
					_, err := e.db.ExecContext(ctx,
						"INSERT INTO readings (user_id, payload, created_at) VALUES (?, ?, ?)",
						userID, payload, time.Now())
					if err == nil {
						break
					}
					if isBusy(err) {
						localBusy++
						continue
					}
					errCh <- fmt.Errorf("user %d insert: %w", userID, err)
					return
				}
				localInsert += time.Since(t0)

				t1 := time.Now()
				var count int
				row := e.db.QueryRowContext(ctx,
					"SELECT COUNT(*) FROM readings WHERE user_id = ?", userID)
				if err := row.Scan(&count); err != nil {
					errCh <- fmt.Errorf("user %d query: %w", userID, err)
					return
				}
				localQuery += time.Since(t1)
			}

			mu.Lock()
			insertTotal += localInsert
			queryTotal += localQuery
			busyRetries += localBusy
			mu.Unlock()
		}(user)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return Summary{}, fmt.Errorf("concurrent load: %w", err)
		}
	}

	var persisted int
	row := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings")
	if err := row.Scan(&persisted); err != nil {
		return Summary{}, fmt.Errorf("count persisted rows: %w", err)
	}

	ops := e.users * opsPerUser
	return Summary{
		Users:         e.users,
		Operations:    ops,
		BusyRetries:   busyRetries,
		AvgInsert:     insertTotal / time.Duration(ops),
		AvgQuery:      queryTotal / time.Duration(ops),
		RowsPersisted: persisted,
		WallClock:     time.Since(start),
	}, nil
}

func (e *Engine) writeArtifact(summary Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.workDir, ArtifactName), data, 0644)
}

func isBusy(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "SQLITE_BUSY"))
}

func finding(id, name string, status validation.Status, severity validation.Severity, message string) validation.Finding {
	return validation.Finding{
		ID:        id,
		Name:      name,
		Status:    status,
		Severity:  severity,
		Category:  validation.CategoryDatabase,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func passFinding(id, name, message string) validation.Finding {
	return finding(id, name, validation.StatusPass, validation.SeverityInfo, message)
}
