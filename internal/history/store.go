// Package history persists build runs and their per-task results to a local
// SQLite database so past runs can be inspected from the CLI.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded build run.
type Run struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	State     string
	Succeeded int
	Failed    int
}

// TaskRecord is one recorded task outcome within a run.
type TaskRecord struct {
	RunID    string
	Language string
	Flavor   string
	Format   string
	Success  bool
	Artifact string
	Error    string
	Duration time.Duration
}

// Store implements run-history persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (and creates if needed) a history database.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		state TEXT NOT NULL,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		language TEXT NOT NULL,
		flavor TEXT NOT NULL,
		format TEXT NOT NULL,
		success INTEGER NOT NULL,
		artifact TEXT,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_run_id ON tasks(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRunStart inserts a run in its initial state.
func (s *Store) RecordRunStart(ctx context.Context, runID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, state) VALUES (?, ?, ?)",
		runID, startedAt.Unix(), "running",
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordRunEnd finalizes a run with its terminal state and tallies.
func (s *Store) RecordRunEnd(ctx context.Context, runID, state string, endedAt time.Time, succeeded, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET ended_at = ?, state = ?, succeeded = ?, failed = ? WHERE id = ?",
		endedAt.Unix(), state, succeeded, failed, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// RecordTask appends one task outcome.
func (s *Store) RecordTask(ctx context.Context, rec TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (run_id, language, flavor, format, success, artifact, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		rec.RunID, rec.Language, rec.Flavor, rec.Format, rec.Success, rec.Artifact, rec.Error, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, ended_at, state, succeeded, failed FROM runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var ended sql.NullInt64
		if err := rows.Scan(&r.ID, &started, &ended, &r.State, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		if ended.Valid {
			r.EndedAt = time.Unix(ended.Int64, 0)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TasksForRun returns all task records of one run in insertion order.
func (s *Store) TasksForRun(ctx context.Context, runID string) ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, language, flavor, format, success, artifact, error, duration_ms FROM tasks WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		var artifact, errMsg sql.NullString
		var durationMS int64
		if err := rows.Scan(&rec.RunID, &rec.Language, &rec.Flavor, &rec.Format, &rec.Success, &artifact, &errMsg, &durationMS); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		rec.Artifact = artifact.String
		rec.Error = errMsg.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}
