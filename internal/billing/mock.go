package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a billing provider for development and tests.
// It simulates the gateway without network calls.
type MockProvider struct {
	// CreatePaymentIntentFunc allows customizing payment intent creation behavior
	CreatePaymentIntentFunc func(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// WebhookSecret signs mock webhook payloads. See SignWebhook.
	WebhookSecret string

	mu sync.Mutex

	// PaymentIntents stores created payment intents for retrieval
	PaymentIntents map[string]*PaymentIntent

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider(webhookSecret string) *MockProvider {
	return &MockProvider{
		WebhookSecret:  webhookSecret,
		PaymentIntents: make(map[string]*PaymentIntent),
		CallLog:        []string{},
	}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) PublicKey() string { return "pk_mock" }

// CreatePaymentIntent creates a mock payment intent.
func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatePaymentIntent(%d, %s)", params.AmountMinor, params.Currency))
	m.mu.Unlock()

	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, params)
	}

	pi := &PaymentIntent{
		ID:           "pi_mock_" + uuid.New().String(),
		ClientSecret: "pi_mock_secret_" + uuid.New().String(),
		AmountMinor:  params.AmountMinor,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     params.Metadata,
		CreatedAt:    time.Now(),
	}

	m.mu.Lock()
	m.PaymentIntents[pi.ID] = pi
	m.mu.Unlock()
	return pi, nil
}

// Calls returns how many calls were logged.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CallLog)
}

// mockWebhook is the JSON body the mock gateway posts.
type mockWebhook struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	IntentID  string `json:"intent_id"`
	PaymentID string `json:"payment_id"`
}

// SignWebhook returns the signature header for a mock webhook payload.
func (m *MockProvider) SignWebhook(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(m.WebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhookEvent accepts payloads signed with SignWebhook. Event types
// are already provider-neutral.
func (m *MockProvider) ParseWebhookEvent(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	if !hmac.Equal([]byte(m.SignWebhook(payload)), []byte(signatureHeader)) {
		return nil, ErrInvalidWebhookSignature
	}
	var body mockWebhook
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}
	ev := &WebhookEvent{
		ID:        body.ID,
		RawType:   body.Type,
		Type:      EventIgnored,
		IntentID:  body.IntentID,
		PaymentID: body.PaymentID,
	}
	switch body.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		ev.Type = body.Type
	}
	return ev, nil
}

var _ Provider = (*MockProvider)(nil)
