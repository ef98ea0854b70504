// Package jobs runs workbook imports from Cloud Storage in the background.
package jobs

import (
	"context"
	"errors"
	"time"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting for a worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a worker is importing the workbook.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the ledger was replaced.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the import failed. Failed jobs are not retried.
	JobStatusFailed JobStatus = "failed"
)

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

// ImportJob replaces the ledger with a workbook stored in Cloud Storage.
type ImportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"jobId"`

	// SourceURI is the gs:// URI of the workbook to import.
	SourceURI string `json:"sourceUri"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Imported is the number of entries written by a completed job.
	Imported int `json:"imported"`
}

// Publisher enqueues import jobs.
type Publisher interface {
	// PublishImport assigns the job an id and enqueues it.
	PublishImport(ctx context.Context, job *ImportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. It records the outcome on the job it is
// given and returns an error when the import failed.
type JobHandler func(ctx context.Context, job *ImportJob) error

// JobStore records job state.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ImportJob) error

	// GetJob retrieves a job by ID. Unknown ids yield ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)

	// ListJobs retrieves jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
