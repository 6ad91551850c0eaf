package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations run in order; each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS match_run (
		run_id      UUID PRIMARY KEY,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		report_year INT NOT NULL,
		config      JSONB NOT NULL,
		stats       JSONB NOT NULL,
		warnings    JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_run_finished ON match_run (finished_at DESC)`,
	`CREATE TABLE IF NOT EXISTS match_decision (
		run_id       UUID NOT NULL REFERENCES match_run (run_id) ON DELETE CASCADE,
		source_id    TEXT NOT NULL,
		candidate_id TEXT,
		confidence   INT NOT NULL CHECK (confidence BETWEEN 0 AND 100),
		method       TEXT NOT NULL,
		notes        TEXT NOT NULL DEFAULT '',
		needs_review BOOLEAN NOT NULL,
		master       JSONB NOT NULL,
		PRIMARY KEY (run_id, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_decision_review ON match_decision (run_id, confidence) WHERE needs_review`,
	`CREATE TABLE IF NOT EXISTS manual_override (
		source_id    TEXT PRIMARY KEY,
		candidate_id TEXT,
		decision     TEXT NOT NULL CHECK (decision IN ('match', 'reject', 'skip')),
		notes        TEXT NOT NULL DEFAULT '',
		decided_by   TEXT NOT NULL DEFAULT '',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return tx.Commit()
}
