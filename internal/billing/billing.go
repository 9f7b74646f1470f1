// Package billing talks to the online payment gateway: it creates payment
// intents, verifies browser callbacks and parses gateway webhooks.
package billing

import (
	"context"
	"time"
)

// Provider is an online payment gateway.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// PublicKey is the publishable key the browser checkout widget needs.
	PublicKey() string

	// CreatePaymentIntent asks the gateway to start collecting a payment.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// ParseWebhookEvent authenticates a webhook delivery and extracts the
	// payment outcome it reports.
	ParseWebhookEvent(payload []byte, signatureHeader string) (*WebhookEvent, error)
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountMinor is the amount in the smallest currency unit (paise for INR).
	AmountMinor int64

	// Currency code (ISO 4217, lower case), e.g. "inr".
	Currency string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	// Description appears in the gateway dashboard.
	Description string

	// Metadata always carries the order number.
	Metadata map[string]string

	// IdempotencyKey prevents duplicate intents for the same order.
	IdempotencyKey string
}

// PaymentIntent is the gateway's handle for one pending payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Status       string
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Webhook outcomes the order core acts on.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventIgnored          = "ignored"
)

// WebhookEvent is a provider-neutral view of a gateway webhook.
type WebhookEvent struct {
	// ID is the gateway's event id.
	ID string
	// Type is one of the Event* constants.
	Type string
	// RawType is the provider's own event type.
	RawType string

	IntentID  string
	PaymentID string
}
