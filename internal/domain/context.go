// Package domain provides the order core's shared types, errors and
// request-scoped context helpers.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// buyerContextKey stores the buyer identity in context.
	buyerContextKey contextKey = iota

	// adminContextKey marks requests authenticated with the admin token.
	adminContextKey

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// Buyer identifies who is shopping. Guests have only a session key; signed-in
// buyers have a user id and usually a session key from before they logged in.
type Buyer struct {
	UserID     uuid.UUID
	SessionKey string
}

// IsGuest reports whether the buyer has not signed in.
func (b Buyer) IsGuest() bool {
	return b.UserID == uuid.Nil
}

// --- Buyer Context Helpers ---

// NewContextWithBuyer returns a new context with the buyer attached.
func NewContextWithBuyer(ctx context.Context, buyer Buyer) context.Context {
	return context.WithValue(ctx, buyerContextKey, buyer)
}

// BuyerFromContext retrieves the buyer from context.
// The second result is false if no buyer is present.
func BuyerFromContext(ctx context.Context) (Buyer, bool) {
	buyer, ok := ctx.Value(buyerContextKey).(Buyer)
	return buyer, ok
}

// UserIDFromContext retrieves the signed-in user ID from context.
// Returns uuid.Nil for guests and anonymous requests.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	buyer, _ := BuyerFromContext(ctx)
	return buyer.UserID
}

// IsAuthenticated returns true if a signed-in buyer is in context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != uuid.Nil
}

// --- Admin Context Helpers ---

// NewContextWithAdmin marks ctx as carrying an authenticated admin.
func NewContextWithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminContextKey, true)
}

func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(adminContextKey).(bool)
	return ok
}

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
