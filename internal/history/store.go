// Package history provides the local SQLite ledger of conversion runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("record not found")

// Run is one recorded invocation of the binder.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Root       string
	Mode       string // date, dir, or all
	Workers    int
	OCR        bool
	Issues     int
	Succeeded  int
	Failed     int
}

// OutcomeRecord is one persisted issue outcome belonging to a run.
type OutcomeRecord struct {
	ID          string
	RunID       string
	IssuePath   string
	OutputPath  string
	Status      domain.Status
	ErrorDetail string
	Pages       int
	OCRPages    int
	Duration    time.Duration
}

// Store wraps the SQLite database holding runs and their outcomes.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger database at path and brings
// its schema up to date.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	migrations := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		root TEXT NOT NULL,
		mode TEXT NOT NULL,
		workers INTEGER NOT NULL DEFAULT 1,
		ocr INTEGER NOT NULL DEFAULT 0,
		issues INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		issue_path TEXT NOT NULL,
		output_path TEXT DEFAULT '',
		status TEXT NOT NULL,
		error_detail TEXT DEFAULT '',
		pages INTEGER NOT NULL DEFAULT 0,
		ocr_pages INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := db.Exec(migrations)
	return err
}

// RecordRun persists a run and its outcomes in one transaction. Missing IDs
// are assigned.
func (s *Store) RecordRun(ctx context.Context, run Run, outcomes []domain.ConversionOutcome) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (id, started_at, finished_at, root, mode, workers, ocr, issues, succeeded, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID, run.StartedAt, run.FinishedAt, run.Root, run.Mode,
		run.Workers, run.OCR, run.Issues, run.Succeeded, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	outcomeQuery := `
		INSERT INTO outcomes (id, run_id, issue_path, output_path, status, error_detail, pages, ocr_pages, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, o := range outcomes {
		id := o.JobID
		if id == "" {
			id = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx, outcomeQuery,
			id, run.ID, o.IssuePath, o.OutputPath, string(o.Status),
			o.ErrorDetail, o.Pages, o.OCRPages, o.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert outcome for %s: %w", o.IssuePath, err)
		}
	}
	return tx.Commit()
}

// GetRun retrieves one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, started_at, finished_at, root, mode, workers, ocr, issues, succeeded, failed
		FROM runs WHERE id = $1
	`
	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.Root, &run.Mode,
		&run.Workers, &run.OCR, &run.Issues, &run.Succeeded, &run.Failed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit < 1 {
		limit = 10
	}
	query := `
		SELECT id, started_at, finished_at, root, mode, workers, ocr, issues, succeeded, failed
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(
			&run.ID, &run.StartedAt, &run.FinishedAt, &run.Root, &run.Mode,
			&run.Workers, &run.OCR, &run.Issues, &run.Succeeded, &run.Failed,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunOutcomes lists the recorded outcomes of a run in issue path order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]*OutcomeRecord, error) {
	query := `
		SELECT id, run_id, issue_path, output_path, status, error_detail, pages, ocr_pages, duration_ms
		FROM outcomes
		WHERE run_id = $1
		ORDER BY issue_path
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*OutcomeRecord
	for rows.Next() {
		rec := &OutcomeRecord{}
		var status string
		var durationMS int64
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.IssuePath, &rec.OutputPath, &status,
			&rec.ErrorDetail, &rec.Pages, &rec.OCRPages, &durationMS,
		); err != nil {
			return nil, err
		}
		rec.Status = domain.Status(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SummarizeRun builds the aggregate fields of a Run from its outcomes.
func SummarizeRun(run Run, outcomes []domain.ConversionOutcome) Run {
	run.Issues = len(outcomes)
	run.Succeeded = 0
	run.Failed = 0
	for _, o := range outcomes {
		switch {
		case o.Succeeded():
			run.Succeeded++
		case o.Status == domain.StatusFailed:
			run.Failed++
		}
	}
	return run
}
