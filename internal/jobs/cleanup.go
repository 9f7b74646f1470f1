package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/quartz/internal/repository"
)

// CleanupResult holds the result of a cleanup pass
type CleanupResult struct {
	JobsRequeued int64 `json:"jobs_requeued"`
}

// RequeueStale returns jobs whose worker died mid-run to the pending state.
// A job is stale once it has been locked for longer than lockTimeout.
func RequeueStale(ctx context.Context, q repository.Querier, lockTimeout time.Duration) (*CleanupResult, error) {
	cutoff := pgtype.Timestamptz{Time: time.Now().Add(-lockTimeout), Valid: true}

	n, err := q.RequeueStaleJobs(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue stale jobs: %w", err)
	}
	return &CleanupResult{JobsRequeued: n}, nil
}
