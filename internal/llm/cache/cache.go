// Package cache provides a SQLite-backed prompt-hash cache for the LLM
// Gateway, and doubles as the run-metadata store the Generator Orchestrator
// writes to on each attempt (spec §4.5, §4.8, §12).
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a single SQLite database file holding both the completion
// cache and the run-history table the Generator Orchestrator writes to.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the SQLite file at path and ensures its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS completions (
			key        TEXT PRIMARY KEY,
			response   TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS runs (
			id                 TEXT PRIMARY KEY,
			project_name       TEXT NOT NULL,
			state              TEXT NOT NULL,
			attempt            INTEGER NOT NULL,
			started_at         TIMESTAMP NOT NULL,
			finished_at        TIMESTAMP,
			outcome            TEXT,
			model              TEXT,
			prompt_tokens      INTEGER NOT NULL DEFAULT 0,
			completion_tokens  INTEGER NOT NULL DEFAULT 0,
			duration_ms        INTEGER NOT NULL DEFAULT 0,
			validation_summary TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("cache: migrate: %w", err)
	}
	return nil
}

// Get returns a previously cached completion for key, if present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var resp string
	err := s.db.QueryRowContext(ctx, `SELECT response FROM completions WHERE key = ?`, key).Scan(&resp)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get: %w", err)
	}
	return resp, true, nil
}

// Put stores a completion under key, overwriting any prior entry.
func (s *Store) Put(ctx context.Context, key, response string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completions (key, response) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET response = excluded.response, created_at = CURRENT_TIMESTAMP
	`, key, response)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// RunRecord is one Generator Orchestrator attempt, persisted for post-hoc
// debugging of a failed run. Model,
// token counts, duration, and validation summary are the run-metadata
// fields spec §4.8 requires this side effect to carry.
type RunRecord struct {
	ID                string
	ProjectName       string
	State             string
	Attempt           int
	StartedAt         time.Time
	FinishedAt        *time.Time
	Outcome           string
	Model             string
	PromptTokens      int
	CompletionTokens  int
	DurationMs        int64
	ValidationSummary string
}

// RecordRun upserts one run's state.
func (s *Store) RecordRun(ctx context.Context, r RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, project_name, state, attempt, started_at, finished_at, outcome,
			model, prompt_tokens, completion_tokens, duration_ms, validation_summary
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			attempt = excluded.attempt,
			finished_at = excluded.finished_at,
			outcome = excluded.outcome,
			model = excluded.model,
			prompt_tokens = excluded.prompt_tokens,
			completion_tokens = excluded.completion_tokens,
			duration_ms = excluded.duration_ms,
			validation_summary = excluded.validation_summary
	`, r.ID, r.ProjectName, r.State, r.Attempt, r.StartedAt, r.FinishedAt, r.Outcome,
		r.Model, r.PromptTokens, r.CompletionTokens, r.DurationMs, r.ValidationSummary)
	if err != nil {
		return fmt.Errorf("cache: record run: %w", err)
	}
	return nil
}

// RecentRuns returns the last n runs for a project, most recent first.
func (s *Store) RecentRuns(ctx context.Context, projectName string, n int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_name, state, attempt, started_at, finished_at, outcome,
			model, prompt_tokens, completion_tokens, duration_ms, validation_summary
		FROM runs WHERE project_name = ? ORDER BY started_at DESC LIMIT ?
	`, projectName, n)
	if err != nil {
		return nil, fmt.Errorf("cache: recent runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.ProjectName, &r.State, &r.Attempt, &r.StartedAt, &r.FinishedAt, &r.Outcome,
			&r.Model, &r.PromptTokens, &r.CompletionTokens, &r.DurationMs, &r.ValidationSummary); err != nil {
			return nil, fmt.Errorf("cache: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
