package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/quartz/internal/jobs"
)

// EventOrderPlaced is the event type published for new orders.
const EventOrderPlaced = "order.placed"

// Publisher writes a keyed message to a broker.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// OrderEvent is the envelope published to the broker.
type OrderEvent struct {
	Type       string                  `json:"type"`
	OccurredAt time.Time               `json:"occurred_at"`
	Order      jobs.OrderPlacedPayload `json:"order"`
}

// EventNotifier publishes an order.placed event keyed by order number, so
// consumers can drop redeliveries.
type EventNotifier struct {
	publisher Publisher
	name      string
}

func NewEventNotifier(name string, publisher Publisher) *EventNotifier {
	return &EventNotifier{publisher: publisher, name: name}
}

func (n *EventNotifier) Name() string { return n.name }

func (n *EventNotifier) Notify(ctx context.Context, order jobs.OrderPlacedPayload) error {
	occurred := order.PlacedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	value, err := json.Marshal(OrderEvent{Type: EventOrderPlaced, OccurredAt: occurred, Order: order})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return n.publisher.Publish(ctx, order.OrderNumber, value)
}
