// Package worker runs background jobs stored in the Postgres jobs table.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/quartz/internal/jobs"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// Queue name to process
	Queue string

	// JobTimeout bounds a single attempt. Jobs locked for twice as long are
	// assumed orphaned and requeued.
	JobTimeout time.Duration

	// RetryBase is the delay before the first retry; it doubles per attempt
	// up to RetryMax.
	RetryBase time.Duration
	RetryMax  time.Duration
}

// Handler processes one claimed job.
type Handler interface {
	HandleJob(ctx context.Context, job repository.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job repository.Job) error

func (f HandlerFunc) HandleJob(ctx context.Context, job repository.Job) error {
	return f(ctx, job)
}

// Worker processes background jobs
type Worker struct {
	config   Config
	queries  repository.Querier
	handlers map[string]Handler
	logger   *slog.Logger
	inflight sync.WaitGroup
	now      func() time.Time
}

// NewWorker creates a new background job worker
func NewWorker(queries repository.Querier, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.Queue == "" {
		config.Queue = jobs.QueueNotifications
	}
	if config.JobTimeout == 0 {
		config.JobTimeout = 30 * time.Second
	}
	if config.RetryBase == 0 {
		config.RetryBase = 30 * time.Second
	}
	if config.RetryMax == 0 {
		config.RetryMax = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:   config,
		queries:  queries,
		handlers: make(map[string]Handler),
		logger:   logger.With("worker_id", config.WorkerID),
		now:      time.Now,
	}
}

// Register routes jobTypes to h.
func (w *Worker) Register(h Handler, jobTypes ...string) {
	for _, t := range jobTypes {
		w.handlers[t] = h
	}
}

// Start begins processing jobs until the context is cancelled, then waits
// for in-flight jobs to finish.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"queue", w.config.Queue,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	staleTicker := time.NewTicker(w.config.JobTimeout)
	defer staleTicker.Stop()

	// Semaphore for concurrency control
	sem := make(chan struct{}, w.config.MaxConcurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			w.inflight.Wait()
			return ctx.Err()

		case <-staleTicker.C:
			w.requeueStale(ctx)

		case <-ticker.C:
			select {
			case sem <- struct{}{}:
				w.inflight.Add(1)
				go func() {
					defer w.inflight.Done()
					defer func() { <-sem }()
					// Drain the queue while jobs keep coming.
					for {
						processed, err := w.RunOnce(ctx)
						if err != nil || !processed || ctx.Err() != nil {
							return
						}
					}
				}()
			default:
				// At max concurrency, skip this poll
			}
		}
	}
}

// RunOnce claims and processes a single job. It reports false when the
// queue had nothing due.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.queries.ClaimNextJob(ctx, repository.ClaimNextJobParams{
		WorkerID: w.config.WorkerID,
		Queue:    w.config.Queue,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		w.logger.Error("failed to claim job", "error", err)
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	logger := w.logger.With(
		"job_id", job.ID,
		"job_type", job.JobType,
		"attempt", job.Attempts,
	)
	logger.Info("processing job")

	start := time.Now()
	procErr := w.processJob(ctx, job)
	if telemetry.Business != nil {
		telemetry.Business.JobDuration.WithLabelValues(job.JobType).Observe(time.Since(start).Seconds())
	}

	if procErr == nil {
		logger.Info("job completed")
		w.record(job.JobType, "completed")
		if err := w.queries.CompleteJob(ctx, job.ID); err != nil {
			return true, fmt.Errorf("failed to complete job: %w", err)
		}
		return true, nil
	}

	lastError := pgtype.Text{String: procErr.Error(), Valid: true}

	var permanent *backoff.PermanentError
	if errors.As(procErr, &permanent) || job.Attempts >= job.MaxAttempts {
		logger.Error("job failed", "error", procErr, "max_attempts", job.MaxAttempts)
		w.record(job.JobType, "failed")
		telemetry.CaptureError(procErr, map[string]interface{}{
			"job_id":   uuid.UUID(job.ID.Bytes).String(),
			"job_type": job.JobType,
			"attempts": job.Attempts,
		})
		if err := w.queries.FailJob(ctx, repository.FailJobParams{ID: job.ID, LastError: lastError}); err != nil {
			return true, fmt.Errorf("failed to mark job failed: %w", err)
		}
		return true, nil
	}

	delay := RetryDelay(w.config.RetryBase, w.config.RetryMax, int(job.Attempts))
	logger.Warn("job failed, will retry", "error", procErr, "retry_in", delay)
	w.record(job.JobType, "retried")
	if err := w.queries.RetryJob(ctx, repository.RetryJobParams{
		ID:        job.ID,
		RunAt:     pgtype.Timestamptz{Time: w.now().Add(delay), Valid: true},
		LastError: lastError,
	}); err != nil {
		return true, fmt.Errorf("failed to reschedule job: %w", err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job repository.Job) (err error) {
	h, ok := w.handlers[job.JobType]
	if !ok {
		return backoff.Permanent(fmt.Errorf("unknown job type: %s", job.JobType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h.HandleJob(jobCtx, job)
}

func (w *Worker) requeueStale(ctx context.Context) {
	res, err := jobs.RequeueStale(ctx, w.queries, 2*w.config.JobTimeout)
	if err != nil {
		w.logger.Error("failed to requeue stale jobs", "error", err)
		return
	}
	if res.JobsRequeued > 0 {
		w.logger.Warn("requeued stale jobs", "count", res.JobsRequeued)
	}
}

func (w *Worker) record(jobType, status string) {
	if telemetry.Business != nil {
		telemetry.Business.JobsProcessed.WithLabelValues(jobType, status).Inc()
	}
}

// RetryDelay returns the wait before retrying after the given attempt
// (1-based): base, 2×base, 4×base... capped at max.
func RetryDelay(base, max time.Duration, attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
