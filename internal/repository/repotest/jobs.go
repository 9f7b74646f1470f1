package repotest

import (
	"context"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Querier) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	unlock, err := q.guard("EnqueueJob")
	defer unlock()
	if err != nil {
		return repository.Job{}, err
	}
	now := q.s.ts()
	j := repository.Job{
		ID:          newID(),
		JobType:     arg.JobType,
		Queue:       arg.Queue,
		Payload:     append([]byte(nil), arg.Payload...),
		Status:      "pending",
		MaxAttempts: arg.MaxAttempts,
		RunAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.st().jobs[j.ID.Bytes] = j
	return j, nil
}

func (q *Querier) ClaimNextJob(ctx context.Context, arg repository.ClaimNextJobParams) (repository.Job, error) {
	unlock, err := q.guard("ClaimNextJob")
	defer unlock()
	if err != nil {
		return repository.Job{}, err
	}
	now := q.s.now()
	var next *repository.Job
	for _, j := range q.st().jobs {
		if j.Queue != arg.Queue || j.Status != "pending" || j.RunAt.Time.After(now) {
			continue
		}
		if next == nil || before(j.RunAt, next.RunAt) {
			j := j
			next = &j
		}
	}
	if next == nil {
		return repository.Job{}, errNoRows
	}
	next.Status = "running"
	next.LockedBy = text(arg.WorkerID)
	next.LockedAt = q.s.ts()
	next.Attempts++
	next.UpdatedAt = next.LockedAt
	q.st().jobs[next.ID.Bytes] = *next
	return *next, nil
}

func (q *Querier) updateJob(id pgtype.UUID, fn func(*repository.Job)) error {
	j, ok := q.st().jobs[id.Bytes]
	if !ok {
		return nil
	}
	fn(&j)
	j.LockedBy = pgtype.Text{}
	j.LockedAt = pgtype.Timestamptz{}
	j.UpdatedAt = q.s.ts()
	q.st().jobs[id.Bytes] = j
	return nil
}

func (q *Querier) CompleteJob(ctx context.Context, id pgtype.UUID) error {
	unlock, err := q.guard("CompleteJob")
	defer unlock()
	if err != nil {
		return err
	}
	return q.updateJob(id, func(j *repository.Job) { j.Status = "completed" })
}

func (q *Querier) RetryJob(ctx context.Context, arg repository.RetryJobParams) error {
	unlock, err := q.guard("RetryJob")
	defer unlock()
	if err != nil {
		return err
	}
	return q.updateJob(arg.ID, func(j *repository.Job) {
		j.Status = "pending"
		j.RunAt = arg.RunAt
		j.LastError = arg.LastError
	})
}

func (q *Querier) FailJob(ctx context.Context, arg repository.FailJobParams) error {
	unlock, err := q.guard("FailJob")
	defer unlock()
	if err != nil {
		return err
	}
	return q.updateJob(arg.ID, func(j *repository.Job) {
		j.Status = "failed"
		j.LastError = arg.LastError
	})
}

func (q *Querier) RequeueStaleJobs(ctx context.Context, lockedBefore pgtype.Timestamptz) (int64, error) {
	unlock, err := q.guard("RequeueStaleJobs")
	defer unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for id, j := range q.st().jobs {
		if j.Status == "running" && j.LockedAt.Valid && before(j.LockedAt, lockedBefore) {
			j.Status = "pending"
			j.LockedBy = pgtype.Text{}
			j.LockedAt = pgtype.Timestamptz{}
			q.st().jobs[id] = j
			n++
		}
	}
	return n, nil
}
