// Package sqlite keeps import job history in a SQLite database so it
// survives restarts of the API server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/dvloznov/investment-ledger/internal/jobs"
)

// Schema creates the job table.
const Schema = `
CREATE TABLE IF NOT EXISTS import_jobs (
    job_id TEXT PRIMARY KEY,
    source_uri TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL,          -- fixed-width RFC 3339, UTC
    started_at TEXT,
    completed_at TEXT,
    error TEXT NOT NULL DEFAULT '',
    imported INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_status
    ON import_jobs(status);

CREATE INDEX IF NOT EXISTS idx_import_jobs_created
    ON import_jobs(created_at);
`

// timeLayout keeps every timestamp the same width so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a JobStore backed by SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the database at dbPath and initializes the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// SaveJob implements jobs.JobStore. It inserts the job or replaces the
// stored state of an existing one.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ImportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	query := `
		INSERT INTO import_jobs (job_id, source_uri, status, created_at, started_at, completed_at, error, imported)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			source_uri = excluded.source_uri,
			status = excluded.status,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			error = excluded.error,
			imported = excluded.imported
	`

	_, err := s.db.ExecContext(ctx, query,
		job.JobID,
		job.SourceURI,
		string(job.Status),
		job.CreatedAt.UTC().Format(timeLayout),
		formatTime(job.StartedAt),
		formatTime(job.CompletedAt),
		job.Error,
		job.Imported,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob implements jobs.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ImportJob, error) {
	row := s.db.QueryRowContext(ctx, selectJobs+` WHERE job_id = ?`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs implements jobs.JobStore.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ImportJob, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := selectJobs
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, job_id ASC"

	// SQLite requires LIMIT when OFFSET is present; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := -1
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, max(filter.Offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	result := []*jobs.ImportJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return result, nil
}

// MarkInterrupted fails every job left pending or running by a previous
// process. It returns the number of jobs changed.
func (s *Store) MarkInterrupted(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = ?, error = ?, completed_at = ?
		WHERE status IN (?, ?)
	`,
		string(jobs.JobStatusFailed),
		"interrupted by server restart",
		now.UTC().Format(timeLayout),
		string(jobs.JobStatusPending),
		string(jobs.JobStatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

const selectJobs = `SELECT job_id, source_uri, status, created_at, started_at, completed_at, error, imported FROM import_jobs`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*jobs.ImportJob, error) {
	var (
		job                    jobs.ImportJob
		status, createdAt      string
		startedAt, completedAt sql.NullString
	)
	if err := sc.Scan(&job.JobID, &job.SourceURI, &status, &createdAt, &startedAt, &completedAt, &job.Error, &job.Imported); err != nil {
		return nil, err
	}

	job.Status = jobs.JobStatus(status)
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	job.CreatedAt = created
	if job.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if job.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

var _ jobs.JobStore = (*Store)(nil)
