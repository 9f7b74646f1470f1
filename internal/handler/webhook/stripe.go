package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/quartz/internal/billing"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/middleware"
	"github.com/dukerupert/quartz/internal/telemetry"
)

// maxPayloadBytes matches Stripe's documented upper bound for event bodies.
const maxPayloadBytes = 65536

// PaymentEvents applies authenticated gateway events to payments.
type PaymentEvents interface {
	ApplyGatewayEvent(ctx context.Context, ev *billing.WebhookEvent) error
}

// StripeHandler receives gateway webhooks. The provider authenticates the
// delivery; the payment service applies it.
type StripeHandler struct {
	provider billing.Provider
	payments PaymentEvents
	logger   *slog.Logger
}

// NewStripeHandler creates a new webhook handler
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
//	stripe trigger payment_intent.succeeded
func NewStripeHandler(provider billing.Provider, payments PaymentEvents, logger *slog.Logger) *StripeHandler {
	return &StripeHandler{
		provider: provider,
		payments: payments,
		logger:   logger,
	}
}

// HandleWebhook handles POST /webhooks/stripe. Bad signatures get 401 and
// are not retried by the gateway usefully; failures applying a genuine event
// get 500 so the gateway redelivers it.
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := middleware.GetLogger(r.Context(), h.logger)

	if r.Method != http.MethodPost {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Method not allowed"))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Missing signature"))
		return
	}

	event, err := h.provider.ParseWebhookEvent(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidWebhookPayload) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "Invalid event payload"))
			return
		}
		logger.Warn("webhook signature verification failed", "provider", h.provider.Name(), "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid signature"))
		return
	}

	defer func() {
		if telemetry.Business != nil {
			telemetry.Business.GatewayLatency.WithLabelValues("webhook").Observe(time.Since(start).Seconds())
		}
	}()

	if err := h.payments.ApplyGatewayEvent(r.Context(), event); err != nil {
		logger.Error("failed to apply webhook event",
			"event_id", event.ID,
			"event_type", event.RawType,
			"error", err,
		)
		handler.InternalErrorResponse(w, r, err)
		return
	}

	logger.Info("webhook processed",
		"event_id", event.ID,
		"event_type", event.RawType,
		"intent_id", event.IntentID,
	)
	handler.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
