package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/quartz/internal/jobs"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/repository/repotest"
)

func TestEnqueueOrderPlaced(t *testing.T) {
	store := repotest.NewStore()
	payload := jobs.OrderPlacedPayload{
		OrderID:       uuid.New(),
		OrderNumber:   "QOABC12345",
		PaymentMethod: "cod",
		CustomerName:  "Asha Rao",
		Email:         "asha@example.com",
		Items: []jobs.OrderItemData{
			{ProductName: "Ruby Ring", Variant: "7 Gold", Quantity: 2, UnitPrice: decimal.RequireFromString("500.00")},
		},
		Subtotal: decimal.RequireFromString("1000.00"),
		Shipping: decimal.Zero,
		Total:    decimal.RequireFromString("1000.00"),
	}

	job, err := jobs.EnqueueOrderPlaced(context.Background(), store, payload)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobTypeOrderPlaced, job.JobType)
	assert.Equal(t, jobs.QueueNotifications, job.Queue)
	assert.Equal(t, int32(5), job.MaxAttempts)

	decoded, err := jobs.DecodeOrderPlaced(job)
	require.NoError(t, err)
	assert.Equal(t, payload.OrderNumber, decoded.OrderNumber)
	assert.Equal(t, payload.OrderID, decoded.OrderID)
	assert.True(t, payload.Total.Equal(decoded.Total))
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, "7 Gold", decoded.Items[0].Variant)
}

func TestEnqueueOrderPlaced_StoreError(t *testing.T) {
	store := repotest.NewStore()
	store.Fail("EnqueueJob", errors.New("connection reset"))

	_, err := jobs.EnqueueOrderPlaced(context.Background(), store, jobs.OrderPlacedPayload{OrderNumber: "QO00000000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order:placed")
	assert.Empty(t, store.Jobs())
}

func TestDecodeOrderPlaced_BadPayload(t *testing.T) {
	_, err := jobs.DecodeOrderPlaced(repository.Job{JobType: jobs.JobTypeOrderPlaced, Payload: []byte("{")})
	assert.Error(t, err)
}

func TestRequeueStale(t *testing.T) {
	store := repotest.NewStore()
	ctx := context.Background()

	_, err := jobs.EnqueueOrderPlaced(ctx, store, jobs.OrderPlacedPayload{OrderNumber: "QO00000001"})
	require.NoError(t, err)
	_, err = store.ClaimNextJob(ctx, repository.ClaimNextJobParams{WorkerID: "w1", Queue: jobs.QueueNotifications})
	require.NoError(t, err)

	// A fresh lock is not stale.
	res, err := jobs.RequeueStale(ctx, store, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, res.JobsRequeued)

	time.Sleep(5 * time.Millisecond)
	res, err = jobs.RequeueStale(ctx, store, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.JobsRequeued)
	assert.Equal(t, "pending", store.Jobs()[0].Status)
}
