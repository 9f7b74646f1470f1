// Package notify fans a placed order out to every configured notifier.
// Delivery is at-least-once: a job retried after a partial failure runs
// every notifier again.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/quartz/internal/jobs"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/telemetry"
)

// Notifier delivers one kind of out-of-band message about a placed order.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, order jobs.OrderPlacedPayload) error
}

// ErrSkipped is returned by notifiers that have nothing to do for an order.
// The dispatcher counts it separately and does not treat it as a failure.
var ErrSkipped = errors.New("notify: skipped")

// Dispatcher runs every notifier for an order and joins their failures.
type Dispatcher struct {
	notifiers []Notifier
	logger    *slog.Logger
}

func NewDispatcher(logger *slog.Logger, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Notifiers returns the configured notifier names.
func (d *Dispatcher) Notifiers() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Dispatch calls every notifier even when an earlier one fails.
func (d *Dispatcher) Dispatch(ctx context.Context, order jobs.OrderPlacedPayload) error {
	var errs []error
	for _, n := range d.notifiers {
		err := n.Notify(ctx, order)
		outcome := "sent"
		switch {
		case errors.Is(err, ErrSkipped):
			outcome = "skipped"
		case err != nil:
			outcome = "failed"
			d.logger.Warn("notifier failed",
				"notifier", n.Name(),
				"order_number", order.OrderNumber,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		default:
			d.logger.Debug("notification sent", "notifier", n.Name(), "order_number", order.OrderNumber)
		}
		if telemetry.Business != nil {
			telemetry.Business.NotificationsSent.WithLabelValues(n.Name(), outcome).Inc()
		}
	}
	return errors.Join(errs...)
}

// HandleJob decodes an order-placed job and dispatches it.
func (d *Dispatcher) HandleJob(ctx context.Context, job repository.Job) error {
	if job.JobType != jobs.JobTypeOrderPlaced {
		return fmt.Errorf("notify: unexpected job type %q", job.JobType)
	}
	order, err := jobs.DecodeOrderPlaced(job)
	if err != nil {
		return err
	}
	return d.Dispatch(ctx, order)
}
