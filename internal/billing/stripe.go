package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/quartz/internal/telemetry"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeProvider implements Provider using Stripe PaymentIntents.
type StripeProvider struct {
	config StripeConfig
}

// NewStripeProvider configures the global Stripe backend and returns a
// provider. Call it once at startup.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	stripe.Key = cfg.SecretKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
	}))

	return &StripeProvider{config: cfg}, nil
}

func (s *StripeProvider) Name() string { return "stripe" }

func (s *StripeProvider) PublicKey() string { return s.config.PublishableKey }

func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	p := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountMinor),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	p.Context = ctx
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	if params.CustomerEmail != "" {
		p.ReceiptEmail = stripe.String(params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.CustomerName != "" {
		p.AddMetadata("customer_name", params.CustomerName)
	}
	if params.CustomerPhone != "" {
		p.AddMetadata("customer_phone", params.CustomerPhone)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	start := time.Now()
	pi, err := paymentintent.New(p)
	if telemetry.Business != nil {
		telemetry.Business.GatewayLatency.WithLabelValues("create_payment_intent").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
		CreatedAt:    time.Unix(pi.Created, 0),
	}, nil
}

func (s *StripeProvider) ParseWebhookEvent(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, RawType: string(event.Type), Type: EventIgnored}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		out.Type = EventPaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		out.Type = EventPaymentFailed
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if event.Data == nil {
		return nil, ErrInvalidWebhookPayload
	}
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}
	out.IntentID = pi.ID
	out.PaymentID = pi.ID
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		out.PaymentID = pi.LatestCharge.ID
	}
	return out, nil
}

var _ Provider = (*StripeProvider)(nil)
