package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/investment-ledger/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 2

// Queue is an in-memory job publisher and consumer backed by a buffered
// channel and a fixed pool of workers.
type Queue struct {
	jobChan   chan *jobs.ImportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	log       zerolog.Logger
	closed    bool
	now       func() time.Time
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishImport
// blocks.
func NewQueue(bufferSize, workers int, store jobs.JobStore, log zerolog.Logger) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		jobChan:   make(chan *jobs.ImportJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   workers,
		log:       log.With().Str("component", "import_queue").Logger(),
		now:       time.Now,
	}
}

// PublishImport implements the Publisher interface. On success job carries
// its assigned id and pending status; the worker operates on its own copy.
func (q *Queue) PublishImport(ctx context.Context, job *jobs.ImportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	job.Status = jobs.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now().UTC()
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	queued := *job
	select {
	case q.jobChan <- &queued:
		q.log.Info().Str("job_id", job.JobID).Str("source_uri", job.SourceURI).Msg("Import job queued")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	q.log.Info().Int("workers", q.workers).Msg("Import workers started")
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs a single job once.
func (q *Queue) processJob(ctx context.Context, job *jobs.ImportJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	startedAt := q.now().UTC()
	job.StartedAt = &startedAt
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := q.now().UTC()
	job.CompletedAt = &completedAt
	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
		q.log.Warn().Err(err).Str("job_id", job.JobID).Msg("Import job failed")
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}
	q.save(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *jobs.ImportJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete. Jobs
// still waiting in the buffer are marked failed.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	q.failQueued(context.WithoutCancel(ctx))
	return err
}

// failQueued drains the buffer, recording each job as failed.
func (q *Queue) failQueued(ctx context.Context) {
	for {
		select {
		case job := <-q.jobChan:
			if job == nil {
				continue
			}
			completedAt := q.now().UTC()
			job.Status = jobs.JobStatusFailed
			job.Error = "queue stopped before the job started"
			job.CompletedAt = &completedAt
			q.save(ctx, job)
			q.log.Warn().Str("job_id", job.JobID).Msg("Import job dropped at shutdown")
		default:
			return
		}
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
