package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/telemetry"
)

// Job type constants for order notifications
const (
	JobTypeOrderPlaced = "order:placed"
)

// QueueNotifications is the queue the notification worker polls.
const QueueNotifications = "notifications"

const orderPlacedMaxAttempts = 5

// OrderPlacedPayload is everything a notifier needs to describe a new order
// without reading the database again.
type OrderPlacedPayload struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customer_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	ShippingAddr  AddressData     `json:"shipping_address"`
	Items         []OrderItemData `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Shipping      decimal.Decimal `json:"shipping"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	PlacedAt      time.Time       `json:"placed_at"`
	Guest         bool            `json:"guest"`
}

// OrderItemData is one immutable order line.
type OrderItemData struct {
	ProductName string          `json:"product_name"`
	Variant     string          `json:"variant"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// AddressData is the shipping snapshot.
type AddressData struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
}

// EnqueueOrderPlaced enqueues the order-placed notification job.
func EnqueueOrderPlaced(ctx context.Context, q repository.Querier, payload OrderPlacedPayload) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job, err := q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:     JobTypeOrderPlaced,
		Queue:       QueueNotifications,
		Payload:     payloadJSON,
		MaxAttempts: orderPlacedMaxAttempts,
	})
	if err != nil {
		return repository.Job{}, fmt.Errorf("failed to enqueue %s job: %w", JobTypeOrderPlaced, err)
	}

	if telemetry.Business != nil {
		telemetry.Business.JobsEnqueued.WithLabelValues(JobTypeOrderPlaced).Inc()
	}
	return job, nil
}

// DecodeOrderPlaced unmarshals an order-placed job payload.
func DecodeOrderPlaced(job repository.Job) (OrderPlacedPayload, error) {
	var payload OrderPlacedPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal %s payload: %w", job.JobType, err)
	}
	return payload, nil
}
