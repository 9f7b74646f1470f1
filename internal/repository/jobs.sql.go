package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const jobColumns = `id, job_type, queue, payload, status, attempts, max_attempts, run_at,
    locked_by, locked_at, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (Job, error) {
	var i Job
	err := row.Scan(
		&i.ID,
		&i.JobType,
		&i.Queue,
		&i.Payload,
		&i.Status,
		&i.Attempts,
		&i.MaxAttempts,
		&i.RunAt,
		&i.LockedBy,
		&i.LockedAt,
		&i.LastError,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const enqueueJob = `
INSERT INTO jobs (job_type, queue, payload, max_attempts)
VALUES ($1, $2, $3, $4)
RETURNING ` + jobColumns

type EnqueueJobParams struct {
	JobType     string
	Queue       string
	Payload     []byte
	MaxAttempts int32
}

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, enqueueJob, arg.JobType, arg.Queue, arg.Payload, arg.MaxAttempts))
}

// ClaimNextJob returns pgx.ErrNoRows when no job is due. Concurrent workers
// never claim the same row.
const claimNextJob = `
UPDATE jobs
SET status = 'running', locked_by = $1, locked_at = NOW(), attempts = attempts + 1, updated_at = NOW()
WHERE id = (
    SELECT id FROM jobs
    WHERE queue = $2 AND status = 'pending' AND run_at <= NOW()
    ORDER BY run_at, created_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns

type ClaimNextJobParams struct {
	WorkerID string
	Queue    string
}

func (q *Queries) ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, claimNextJob, arg.WorkerID, arg.Queue))
}

const completeJob = `
UPDATE jobs
SET status = 'completed', locked_by = NULL, locked_at = NULL, updated_at = NOW()
WHERE id = $1`

func (q *Queries) CompleteJob(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, completeJob, id)
	return err
}

const retryJob = `
UPDATE jobs
SET status = 'pending', run_at = $2, last_error = $3, locked_by = NULL, locked_at = NULL, updated_at = NOW()
WHERE id = $1`

type RetryJobParams struct {
	ID        pgtype.UUID
	RunAt     pgtype.Timestamptz
	LastError pgtype.Text
}

func (q *Queries) RetryJob(ctx context.Context, arg RetryJobParams) error {
	_, err := q.db.Exec(ctx, retryJob, arg.ID, arg.RunAt, arg.LastError)
	return err
}

const failJob = `
UPDATE jobs
SET status = 'failed', last_error = $2, locked_by = NULL, locked_at = NULL, updated_at = NOW()
WHERE id = $1`

type FailJobParams struct {
	ID        pgtype.UUID
	LastError pgtype.Text
}

func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) error {
	_, err := q.db.Exec(ctx, failJob, arg.ID, arg.LastError)
	return err
}

// RequeueStaleJobs releases running jobs locked before the cutoff.
const requeueStaleJobs = `
UPDATE jobs
SET status = 'pending', locked_by = NULL, locked_at = NULL, updated_at = NOW()
WHERE status = 'running' AND locked_at < $1`

func (q *Queries) RequeueStaleJobs(ctx context.Context, lockedBefore pgtype.Timestamptz) (int64, error) {
	tag, err := q.db.Exec(ctx, requeueStaleJobs, lockedBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
