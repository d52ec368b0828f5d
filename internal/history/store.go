// Package history persists run summaries to SQLite so trends survive
// across invocations. The evaluation engine itself stays stateless; this is
// a report sink layered above it, enabled only when a path is configured.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"docjudge/internal/engine"
	"docjudge/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	checked    INTEGER NOT NULL,
	passed     INTEGER NOT NULL,
	failed     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS failures (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	path      TEXT NOT NULL,
	rule_id   TEXT NOT NULL,
	severity  TEXT NOT NULL,
	line      INTEGER NOT NULL,
	rationale TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
`

// Store wraps the SQLite run-history database.
type Store struct {
	db *sql.DB
}

// Run is one recorded run.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Checked   int
	Passed    int
	Failed    int
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record writes one run and its failing outcomes, returning the run id.
func (s *Store) Record(sum engine.Summary, startedAt time.Time, duration time.Duration) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin history tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, started_at, duration_ms, checked, passed, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, startedAt.UnixMilli(), duration.Milliseconds(), sum.Checked, sum.Passed, sum.Failed)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, r := range sum.Results {
		for _, o := range r.Outcomes {
			if o.Pass {
				continue
			}
			_, err = tx.Exec(`INSERT INTO failures (run_id, path, rule_id, severity, line, rationale) VALUES (?, ?, ?, ?, ?, ?)`,
				runID, r.Path, o.RuleID, string(o.Severity), o.Line, o.Rationale)
			if err != nil {
				return "", fmt.Errorf("failed to insert failure: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit history tx: %w", err)
	}

	logging.History("recorded run %s (%d checked, %d failed)", runID, sum.Checked, sum.Failed)
	return runID, nil
}

// Recent returns the latest n runs, newest first.
func (s *Store) Recent(n int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, started_at, duration_ms, checked, passed, failed FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedMs, durMs int64
		if err := rows.Scan(&r.ID, &startedMs, &durMs, &r.Checked, &r.Passed, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMs)
		r.Duration = time.Duration(durMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
