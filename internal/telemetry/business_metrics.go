package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the order core.
type BusinessMetrics struct {
	// Cart
	CartItemsAdded *prometheus.CounterVec
	CartsMerged    *prometheus.CounterVec

	// Checkout
	OrdersCreated    *prometheus.CounterVec
	OrderValue       *prometheus.HistogramVec
	OrderItemCount   *prometheus.HistogramVec
	CheckoutFailures *prometheus.CounterVec
	StockConflicts   *prometheus.CounterVec

	// Payments
	PaymentIntents  *prometheus.CounterVec
	PaymentCallback *prometheus.CounterVec
	WebhookReceived *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec

	// Notifications and background jobs
	JobsEnqueued          *prometheus.CounterVec
	JobsProcessed         *prometheus.CounterVec
	JobDuration           *prometheus.HistogramVec
	NotificationsSent     *prometheus.CounterVec
	PostCommitTaskFailure *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics with reg.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "quartz"
	}
	subsystem := "business"
	factory := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &BusinessMetrics{
		CartItemsAdded: counter("cart_items_added_total", "Units added to carts", "outcome"), // outcome: added, out_of_stock, insufficient
		CartsMerged:    counter("carts_merged_total", "Session carts merged into user carts on login", "outcome"),

		OrdersCreated: counter("orders_created_total", "Orders committed", "payment_method"),
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Order total in store currency",
				Buckets:   []float64{250, 500, 999, 2500, 5000, 10000, 25000, 50000, 100000},
			},
			[]string{"payment_method"},
		),
		OrderItemCount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Units per order",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"payment_method"},
		),
		CheckoutFailures: counter("checkout_failures_total", "Checkouts rolled back", "reason"),
		StockConflicts:   counter("stock_conflicts_total", "Requests rejected for lack of stock", "stage"), // stage: cart, checkout

		PaymentIntents:  counter("payment_intents_total", "Gateway payment intents requested", "outcome"), // outcome: created, reused, failed
		PaymentCallback: counter("payment_callbacks_total", "Payment callback verifications", "result"),   // result: paid, already_verified, mismatch
		WebhookReceived: counter("webhooks_received_total", "Gateway webhooks received", "event_type"),
		GatewayLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gateway_api_duration_seconds",
				Help:      "Payment gateway API call duration",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		JobsEnqueued:  counter("jobs_enqueued_total", "Background jobs enqueued", "job_type"),
		JobsProcessed: counter("jobs_processed_total", "Background jobs processed", "job_type", "status"), // status: completed, retry, failed
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Background job processing duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job_type"},
		),
		NotificationsSent:     counter("notifications_total", "Notifier deliveries", "notifier", "outcome"),
		PostCommitTaskFailure: counter("post_commit_failures_total", "Best-effort tasks that failed after an order committed", "task"),
	}
}

// Global instance for easy access from services and handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance on the
// default registry.
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace, prometheus.DefaultRegisterer)
	return Business
}
