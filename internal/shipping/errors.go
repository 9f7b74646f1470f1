package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// These constants mirror domain error codes to avoid circular imports.
// The handler layer maps these to HTTP status codes.
const (
	codeInvalid = "invalid"
)

// ShippingError represents a shipping-specific error with a code and message.
type ShippingError struct {
	Code    string
	Message string
}

func (e *ShippingError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *ShippingError) ErrorCode() string {
	return e.Code
}

// ErrInvalidAmount creates an error for a negative policy amount.
func ErrInvalidAmount(field string, amount decimal.Decimal) error {
	return &ShippingError{
		Code:    codeInvalid,
		Message: fmt.Sprintf("Invalid shipping %s %s: must not be negative", field, amount.StringFixed(2)),
	}
}
