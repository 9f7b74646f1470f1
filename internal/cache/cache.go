// Package cache stores replayable responses for idempotent requests.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInFlight is returned by Begin while another request holds the key.
var ErrInFlight = errors.New("cache: request with this key is in flight")

// pendingTTL bounds how long a claimed key blocks retries if the holder dies
// before calling Complete or Release.
const pendingTTL = time.Minute

// Response is a stored HTTP response.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	// Fingerprint identifies the request body the response belongs to.
	Fingerprint string `json:"fingerprint"`
}

// IdempotencyStore claims request keys and remembers their responses.
type IdempotencyStore interface {
	// Begin claims key. It returns the stored response when the key has
	// already completed, nil when the caller now owns the key, and
	// ErrInFlight when another request is still running under it.
	Begin(ctx context.Context, key string) (*Response, error)
	// Complete stores resp under key for ttl.
	Complete(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Release drops a claim without storing a response so the key can be retried.
	Release(ctx context.Context, key string) error
}

// GenerateKey namespaces a key by service and operation.
func GenerateKey(service, operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", service, operation, key)
}
