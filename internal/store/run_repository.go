package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run_id is unknown to the ledger
var ErrRunNotFound = errors.New("run not found")

// RunRepository persists the run ledger and domain outcomes
// ⭐ SSOT: ingest_runs / ingest_domain_outcomes 접근은 여기서만
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(s *Store) *RunRepository {
	return &RunRepository{db: s.DB()}
}

// InsertRun appends a new run to the ledger. The ledger write path is
// append-then-update: insert on start, update on finish.
func (r *RunRepository) InsertRun(ctx context.Context, run *Run) error {
	notes, err := json.Marshal(run.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	if run.Notes == nil {
		notes = []byte("[]")
	}

	query := `
		INSERT INTO ingest_runs (
			run_id, started_at, finished_at, status, run_type, scope, source_profile,
			prices_window, prices_lookback_days, prices_backfill, dry_run,
			symbols_count, notes_json, error_message
		) VALUES (?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Status,
		run.RunType,
		run.Scope,
		run.SourceProfile,
		run.PricesWindow,
		run.LookbackDays,
		boolToInt(run.PricesBackfill),
		boolToInt(run.DryRun),
		run.SymbolsCount,
		string(notes),
		nullString(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinalizeRun updates status, symbol count, notes and error of an existing run
func (r *RunRepository) FinalizeRun(ctx context.Context, run *Run) error {
	notes, err := json.Marshal(run.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	if run.Notes == nil {
		notes = []byte("[]")
	}

	finishedAt := ""
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}

	query := `
		UPDATE ingest_runs SET
			finished_at = ?,
			status = ?,
			symbols_count = ?,
			notes_json = ?,
			error_message = ?
		WHERE run_id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		nullString(finishedAt),
		run.Status,
		run.SymbolsCount,
		string(notes),
		nullString(run.ErrorMessage),
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun loads a single run by id
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, status, run_type, scope, source_profile,
		       prices_window, prices_lookback_days, prices_backfill, dry_run,
		       symbols_count, notes_json, error_message
		FROM ingest_runs
		WHERE run_id = ?
	`

	var run Run
	var startedAt string
	var finishedAt, errorMessage sql.NullString
	var backfill, dryRun int
	var notesJSON string

	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID, &startedAt, &finishedAt, &run.Status, &run.RunType, &run.Scope,
		&run.SourceProfile, &run.PricesWindow, &run.LookbackDays, &backfill, &dryRun,
		&run.SymbolsCount, &notesJSON, &errorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err == nil {
			run.FinishedAt = &t
		}
	}
	run.PricesBackfill = backfill != 0
	run.DryRun = dryRun != 0
	run.ErrorMessage = errorMessage.String
	if notesJSON != "" {
		_ = json.Unmarshal([]byte(notesJSON), &run.Notes)
	}

	return &run, nil
}

// UpsertOutcome writes a domain outcome, replacing any prior state for the
// same (run_id, domain) so progress is visible while the run is live.
func (r *RunRepository) UpsertOutcome(ctx context.Context, o *DomainOutcome) error {
	errs, err := json.Marshal(o.Errors)
	if err != nil {
		return fmt.Errorf("marshal outcome errors: %w", err)
	}
	if o.Errors == nil {
		errs = []byte("[]")
	}

	query := `
		INSERT INTO ingest_domain_outcomes (
			run_id, domain, status, rows_read, rows_written, rows_skipped, errors_json, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, domain) DO UPDATE SET
			status = excluded.status,
			rows_read = excluded.rows_read,
			rows_written = excluded.rows_written,
			rows_skipped = excluded.rows_skipped,
			errors_json = excluded.errors_json,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		o.RunID, o.Domain, o.Status,
		o.RowsRead, o.RowsWritten, o.RowsSkipped,
		string(errs),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

// GetOutcomes loads all persisted outcomes for a run, in insertion order
func (r *RunRepository) GetOutcomes(ctx context.Context, runID string) ([]DomainOutcome, error) {
	query := `
		SELECT run_id, domain, status, rows_read, rows_written, rows_skipped, errors_json, updated_at
		FROM ingest_domain_outcomes
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []DomainOutcome
	for rows.Next() {
		var o DomainOutcome
		var errsJSON, updatedAt string
		if err := rows.Scan(&o.RunID, &o.Domain, &o.Status, &o.RowsRead, &o.RowsWritten, &o.RowsSkipped, &errsJSON, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if errsJSON != "" {
			_ = json.Unmarshal([]byte(errsJSON), &o.Errors)
		}
		o.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
