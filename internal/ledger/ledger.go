// Package ledger records runs and per-frame outcomes in a SQLite database
// under the analysis directory, so an interrupted or finished run can be
// inspected later with `dynophore status`.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultName is the ledger filename inside the analysis directory.
const DefaultName = "run.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	start_idx   INTEGER NOT NULL,
	end_idx     INTEGER NOT NULL,
	step        INTEGER NOT NULL,
	workers     INTEGER NOT NULL,
	status      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS frames (
	run_id     INTEGER NOT NULL,
	idx        INTEGER NOT NULL,
	status     TEXT NOT NULL,
	stage      TEXT,
	attempts   INTEGER NOT NULL,
	detail     TEXT,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (run_id, idx)
);`

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID         int64
	StartedAt  string
	FinishedAt string
	Start      int
	End        int
	Step       int
	Workers    int
	Status     string
}

// FrameRecord is one frame's outcome within a run.
type FrameRecord struct {
	Index    int
	Status   string // "ok" or "failed"
	Stage    string // failing stage, empty on success
	Attempts int
	Detail   string // trailing error text, empty on success
}

// Ledger is a SQLite-backed run journal. A single connection keeps
// concurrent per-frame updates serialized in the driver.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	return open(path)
}

// OpenMemory opens an in-memory ledger for tests.
func OpenMemory() (*Ledger, error) {
	return open(":memory:")
}

func open(dsn string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// BeginRun inserts a new run row and returns its ID.
func (l *Ledger) BeginRun(start, end, step, workers int) (int64, error) {
	res, err := l.db.Exec(
		`INSERT INTO runs (started_at, start_idx, end_idx, step, workers, status)
		 VALUES (?, ?, ?, ?, ?, 'running')`,
		nowUTC(), start, end, step, workers)
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun marks the run finished with the given status.
func (l *Ledger) FinishRun(runID int64, status string) error {
	_, err := l.db.Exec(
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		nowUTC(), status, runID)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	return nil
}

// RecordFrame upserts one frame's outcome.
func (l *Ledger) RecordFrame(runID int64, fr FrameRecord) error {
	_, err := l.db.Exec(
		`INSERT INTO frames (run_id, idx, status, stage, attempts, detail, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, idx) DO UPDATE SET
		   status = excluded.status, stage = excluded.stage,
		   attempts = excluded.attempts, detail = excluded.detail,
		   updated_at = excluded.updated_at`,
		runID, fr.Index, fr.Status, fr.Stage, fr.Attempts, fr.Detail, nowUTC())
	if err != nil {
		return fmt.Errorf("record frame %d: %w", fr.Index, err)
	}
	return nil
}

// LatestRun returns the most recent run, or nil when the ledger is empty.
func (l *Ledger) LatestRun() (*RunRecord, error) {
	row := l.db.QueryRow(
		`SELECT id, started_at, COALESCE(finished_at, ''), start_idx, end_idx, step, workers, status
		 FROM runs ORDER BY id DESC LIMIT 1`)
	var r RunRecord
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Start, &r.End, &r.Step, &r.Workers, &r.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return &r, nil
}

// Frames returns the frame outcomes of a run, ordered by index.
func (l *Ledger) Frames(runID int64) ([]FrameRecord, error) {
	rows, err := l.db.Query(
		`SELECT idx, status, COALESCE(stage, ''), attempts, COALESCE(detail, '')
		 FROM frames WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var fr FrameRecord
		if err := rows.Scan(&fr.Index, &fr.Status, &fr.Stage, &fr.Attempts, &fr.Detail); err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}
