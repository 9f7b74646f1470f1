package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/quartz/internal/email"
	"github.com/dukerupert/quartz/internal/jobs"
	"github.com/dukerupert/quartz/internal/notify"
	"github.com/dukerupert/quartz/internal/repository"
)

type fakeNotifier struct {
	name  string
	err   error
	calls int
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(ctx context.Context, order jobs.OrderPlacedPayload) error {
	f.calls++
	return f.err
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	keys     []string
	messages [][]byte
}

func (p *fakePublisher) Publish(ctx context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.messages = append(p.messages, value)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func sampleOrder(method string) jobs.OrderPlacedPayload {
	return jobs.OrderPlacedPayload{
		OrderID:       uuid.New(),
		OrderNumber:   "QO7Q2WXK9M",
		PaymentMethod: method,
		Status:        "placed",
		CustomerName:  "Meera Iyer",
		Email:         "meera@example.com",
		Phone:         "9820000000",
		ShippingAddr: jobs.AddressData{
			FullName: "Meera Iyer", AddressLine: "4 Church Street", City: "Bengaluru", State: "KA", Pincode: "560001",
		},
		Items: []jobs.OrderItemData{{
			ProductName: "Pearl Studs",
			Variant:     "One Size White",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("100.00"),
			LineTotal:   decimal.RequireFromString("100.00"),
		}},
		Subtotal: decimal.RequireFromString("100.00"),
		Shipping: decimal.RequireFromString("50.00"),
		Total:    decimal.RequireFromString("150.00"),
		PlacedAt: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func newEmailService(t *testing.T) (*email.Service, *email.MockSender) {
	t.Helper()
	sender := &email.MockSender{}
	svc, err := email.NewService(sender, "orders@quartz.test", "Quartz")
	require.NoError(t, err)
	return svc, sender
}

func TestDispatcher_RunsEveryNotifier(t *testing.T) {
	ok := &fakeNotifier{name: "ok"}
	broken := &fakeNotifier{name: "broken", err: errors.New("smtp down")}
	skipped := &fakeNotifier{name: "skipped", err: notify.ErrSkipped}
	last := &fakeNotifier{name: "last"}

	d := notify.NewDispatcher(nil, ok, broken, skipped, last)
	err := d.Dispatch(context.Background(), sampleOrder("cod"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: smtp down")
	assert.NotContains(t, err.Error(), "skipped")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, skipped.calls)
	assert.Equal(t, 1, last.calls)
	assert.Equal(t, []string{"ok", "broken", "skipped", "last"}, d.Notifiers())
}

func TestDispatcher_AllSucceed(t *testing.T) {
	d := notify.NewDispatcher(nil, &fakeNotifier{name: "a"}, &fakeNotifier{name: "b", err: notify.ErrSkipped})
	assert.NoError(t, d.Dispatch(context.Background(), sampleOrder("cod")))
}

func TestDispatcher_HandleJob(t *testing.T) {
	n := &fakeNotifier{name: "n"}
	d := notify.NewDispatcher(nil, n)

	payload, err := json.Marshal(sampleOrder("gateway"))
	require.NoError(t, err)

	err = d.HandleJob(context.Background(), repository.Job{JobType: jobs.JobTypeOrderPlaced, Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, 1, n.calls)

	err = d.HandleJob(context.Background(), repository.Job{JobType: "cleanup:tokens", Payload: payload})
	assert.Error(t, err)
	assert.Equal(t, 1, n.calls)

	err = d.HandleJob(context.Background(), repository.Job{JobType: jobs.JobTypeOrderPlaced, Payload: []byte("not json")})
	assert.Error(t, err)
}

func TestOrderEmailNotifier(t *testing.T) {
	svc, sender := newEmailService(t)
	n := notify.NewOrderEmailNotifier(svc)

	require.NoError(t, n.Notify(context.Background(), sampleOrder("cod")))
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"meera@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].TextBody, "QO7Q2WXK9M")
	assert.Contains(t, sent[0].TextBody, "Shipping: 50.00")
	assert.Contains(t, sent[0].TextBody, "Total: 150.00")
	assert.Contains(t, sent[0].TextBody, "pay when your order is delivered")
}

func TestOrderEmailNotifier_SkipsWithoutEmail(t *testing.T) {
	svc, sender := newEmailService(t)
	order := sampleOrder("cod")
	order.Email = ""

	err := notify.NewOrderEmailNotifier(svc).Notify(context.Background(), order)
	assert.ErrorIs(t, err, notify.ErrSkipped)
	assert.Empty(t, sender.Sent())
}

func TestStaffAlertNotifier(t *testing.T) {
	svc, sender := newEmailService(t)
	n := notify.NewStaffAlertNotifier(svc, "owner@quartz.test")

	assert.ErrorIs(t, n.Notify(context.Background(), sampleOrder("cod")), notify.ErrSkipped)
	assert.ErrorIs(t, n.Notify(context.Background(), sampleOrder("gateway")), notify.ErrSkipped)
	assert.Empty(t, sender.Sent())

	require.NoError(t, n.Notify(context.Background(), sampleOrder("message")))
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"owner@quartz.test"}, sent[0].To)
	assert.Equal(t, "meera@example.com", sent[0].ReplyTo)
	assert.Contains(t, sent[0].TextBody, "9820000000")
}

func TestStaffAlertNotifier_NoInbox(t *testing.T) {
	svc, _ := newEmailService(t)
	err := notify.NewStaffAlertNotifier(svc, "").Notify(context.Background(), sampleOrder("message"))
	assert.ErrorIs(t, err, notify.ErrSkipped)
}

func TestEventNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := notify.NewEventNotifier("kafka", pub)
	assert.Equal(t, "kafka", n.Name())

	order := sampleOrder("cod")
	require.NoError(t, n.Notify(context.Background(), order))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, []string{"QO7Q2WXK9M"}, pub.keys)

	var event notify.OrderEvent
	require.NoError(t, json.Unmarshal(pub.messages[0], &event))
	assert.Equal(t, notify.EventOrderPlaced, event.Type)
	assert.True(t, event.OccurredAt.Equal(order.PlacedAt))
	assert.Equal(t, order.OrderNumber, event.Order.OrderNumber)
	assert.True(t, event.Order.Total.Equal(order.Total))
}

func TestEventNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("leader not available")}
	err := notify.NewEventNotifier("nats", pub).Notify(context.Background(), sampleOrder("cod"))
	assert.ErrorContains(t, err, "leader not available")
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, notify.ParseBrokers(" k1:9092, ,k2:9092 "))
	assert.Empty(t, notify.ParseBrokers(""))
}

func TestNewKafkaPublisher(t *testing.T) {
	_, err := notify.NewKafkaPublisher(" , ", "orders.placed")
	assert.ErrorIs(t, err, notify.ErrNoBrokers)

	_, err = notify.NewKafkaPublisher("localhost:9092", "")
	assert.Error(t, err)

	p, err := notify.NewKafkaPublisher("localhost:9092", "orders.placed")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
