// Package audit persists match runs, their decisions and reviewer overrides
// in PostgreSQL.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/leed-ll97/internal/db"
	"github.com/leed-ll97/internal/debug"
	"github.com/leed-ll97/internal/logging"
	"github.com/leed-ll97/internal/match"
)

// ErrNotFound is returned when a run or record does not exist.
var ErrNotFound = errors.New("not found")

// Run is the stored summary of one matching run.
type Run struct {
	ID         uuid.UUID       `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	ReportYear int             `json:"report_year"`
	Config     match.Config    `json:"config"`
	Stats      match.Stats     `json:"stats"`
	Warnings   []match.Warning `json:"warnings"`
}

// Override is a stored reviewer decision.
type Override struct {
	match.ManualOverride
	DecidedBy string    `json:"decided_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes the audit tables.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore wraps an open database.
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn, log: logging.WithComponent("audit")}
}

// Migrate creates the audit schema.
func (s *Store) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, s.db)
}

// SaveRun stores res under a new run id. Decisions and master rows are
// bulk loaded with COPY in the same transaction as the run row.
func (s *Store) SaveRun(ctx context.Context, localDebug bool, res *match.Result, reportYear int, startedAt time.Time) (uuid.UUID, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	runID := uuid.New()
	cfgJSON, err := json.Marshal(res.Config)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode config: %w", err)
	}
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode stats: %w", err)
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []match.Warning{}
	}
	warnJSON, err := json.Marshal(warnings)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_run (run_id, started_at, finished_at, report_year, config, stats, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, runID, startedAt, time.Now(), reportYear, string(cfgJSON), string(statsJSON), string(warnJSON))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}
	debug.DebugOutput(localDebug, "Created match_run %s", runID)

	review := make(map[string]bool, len(res.ReviewQueue))
	for _, q := range res.ReviewQueue {
		review[q.SourceID] = true
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("match_decision",
		"run_id", "source_id", "candidate_id", "confidence", "method", "notes", "needs_review", "master"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare copy: %w", err)
	}
	seen := make(map[string]bool, len(res.Master))
	for _, m := range res.Master {
		if seen[m.SourceID] {
			s.log.Warn().Str("source_id", m.SourceID).Msg("Duplicate source id, keeping the first row")
			continue
		}
		seen[m.SourceID] = true
		masterJSON, err := json.Marshal(m)
		if err != nil {
			stmt.Close()
			return uuid.Nil, fmt.Errorf("failed to encode master row %s: %w", m.SourceID, err)
		}
		var candidate any
		if m.CandidateID != "" {
			candidate = m.CandidateID
		}
		if _, err := stmt.ExecContext(ctx, runID.String(), m.SourceID, candidate, m.Confidence,
			string(m.Method), m.Notes, review[m.SourceID], string(masterJSON)); err != nil {
			stmt.Close()
			return uuid.Nil, fmt.Errorf("failed to copy decision %s: %w", m.SourceID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return uuid.Nil, fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}

	s.log.Info().Str("run_id", runID.String()).Int("decisions", len(res.Master)).Int("review_queue", len(res.ReviewQueue)).Msg("Saved match run")
	return runID, nil
}

// LatestRun returns the most recently finished run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, report_year, config, stats, warnings
		FROM match_run
		ORDER BY finished_at DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, report_year, config, stats, warnings
		FROM match_run
		WHERE run_id = $1
	`, runID)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var cfgJSON, statsJSON, warnJSON []byte
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.ReportYear, &cfgJSON, &statsJSON, &warnJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	if err := json.Unmarshal(cfgJSON, &run.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}
	if err := json.Unmarshal(warnJSON, &run.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings: %w", err)
	}
	return &run, nil
}

// RunStats returns the stats recorded for a run.
func (s *Store) RunStats(ctx context.Context, runID uuid.UUID) (*match.Stats, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &run.Stats, nil
}

// ReviewQueue pages through a run's review queue, lowest confidence first,
// and returns the total queue size.
func (s *Store) ReviewQueue(ctx context.Context, runID uuid.UUID, limit, offset int) ([]match.ReviewQueueEntry, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM match_decision WHERE run_id = $1 AND needs_review
	`, runID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count review queue: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT master
		FROM match_decision
		WHERE run_id = $1 AND needs_review
		ORDER BY confidence ASC, source_id ASC
		LIMIT $2 OFFSET $3
	`, runID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer rows.Close()

	entries := []match.ReviewQueueEntry{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, fmt.Errorf("failed to scan review entry: %w", err)
		}
		var e match.ReviewQueueEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, 0, fmt.Errorf("failed to decode review entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// MasterRecord returns one master row of a run.
func (s *Store) MasterRecord(ctx context.Context, runID uuid.UUID, sourceID string) (*match.MasterRecord, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT master FROM match_decision WHERE run_id = $1 AND source_id = $2
	`, runID, sourceID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	var m match.MasterRecord
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &m, nil
}

// UpsertOverride stores or replaces the reviewer decision for a source.
func (s *Store) UpsertOverride(ctx context.Context, o match.ManualOverride, decidedBy string) error {
	var candidate any
	if o.CandidateID != "" {
		candidate = o.CandidateID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_override (source_id, candidate_id, decision, notes, decided_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (source_id) DO UPDATE SET
			candidate_id = EXCLUDED.candidate_id,
			decision     = EXCLUDED.decision,
			notes        = EXCLUDED.notes,
			decided_by   = EXCLUDED.decided_by,
			updated_at   = now()
	`, o.SourceID, candidate, string(o.Decision), o.Notes, decidedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert override for %s: %w", o.SourceID, err)
	}
	s.log.Info().Str("source_id", o.SourceID).Str("decision", string(o.Decision)).Str("decided_by", decidedBy).Msg("Stored override")
	return nil
}

// ListOverrides returns every stored override ordered by source id.
func (s *Store) ListOverrides(ctx context.Context) ([]Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, COALESCE(candidate_id, ''), decision, notes, decided_by, updated_at
		FROM manual_override
		ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	out := []Override{}
	for rows.Next() {
		var o Override
		var decision string
		if err := rows.Scan(&o.SourceID, &o.CandidateID, &decision, &o.Notes, &o.DecidedBy, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.Decision = match.OverrideDecision(decision)
		out = append(out, o)
	}
	return out, rows.Err()
}

// ManualOverrides returns the stored overrides in the form the matcher
// consumes.
func (s *Store) ManualOverrides(ctx context.Context) ([]match.ManualOverride, error) {
	stored, err := s.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]match.ManualOverride, len(stored))
	for i, o := range stored {
		out[i] = o.ManualOverride
	}
	return out, nil
}
