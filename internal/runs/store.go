package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
)

// ErrNotFound is returned when a run record does not exist.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid            TEXT NOT NULL UNIQUE,
    subject         TEXT NOT NULL,
    status          TEXT NOT NULL,
    stage           TEXT NOT NULL DEFAULT '',
    sct_version     TEXT NOT NULL DEFAULT '',
    host            TEXT NOT NULL DEFAULT '',
    error_message   TEXT NOT NULL DEFAULT '',
    error_category  TEXT NOT NULL DEFAULT '',
    started_at      TEXT NOT NULL,
    finished_at     TEXT,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.RunDBPath())
}

// OpenPath connects to the run database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Begin inserts a new running record for a subject.
func (s *Store) Begin(ctx context.Context, uuid, subject, sctVersion, host string) (*Run, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (uuid, subject, status, sct_version, host, started_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid, subject, StatusRunning, sctVersion, host, timestamp, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Update persists the mutable fields of a run record.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is required")
	}
	if !ValidStatus(run.Status) {
		return fmt.Errorf("invalid run status %q", run.Status)
	}
	now := time.Now().UTC()
	run.UpdatedAt = now

	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(time.RFC3339Nano)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, stage = ?, sct_version = ?, error_message = ?,
            error_category = ?, finished_at = ?, updated_at = ?
         WHERE id = ?`,
		run.Status, run.Stage, run.SCTVersion, run.ErrorMessage,
		run.ErrorCategory, finished, now.Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a run record by primary key.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	return scanRun(row)
}

// List returns the most recent runs in descending start order.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// BySubject returns every run recorded for a subject, most recent first.
func (s *Store) BySubject(ctx context.Context, subject string) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE subject = ? ORDER BY id DESC", subject)
	if err != nil {
		return nil, fmt.Errorf("list runs for subject: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

const selectColumns = `SELECT id, uuid, subject, status, stage, sct_version, host,
    error_message, error_category, started_at, finished_at, created_at, updated_at FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var status string
	var started, created, updated string
	var finished sql.NullString

	err := row.Scan(
		&run.ID, &run.UUID, &run.Subject, &status, &run.Stage, &run.SCTVersion, &run.Host,
		&run.ErrorMessage, &run.ErrorCategory, &started, &finished, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = Status(status)
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if finished.Valid && finished.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &ts
	}
	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}
