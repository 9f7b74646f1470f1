package shipping

import "github.com/shopspring/decimal"

// Default flat-rate values for the storefront, in rupees.
var (
	DefaultFreeThreshold = decimal.NewFromInt(999)
	DefaultFlatFee       = decimal.NewFromInt(50)
)

// FlatRatePolicy charges a fixed fee below a subtotal threshold and ships
// free at or above it.
type FlatRatePolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// NewFlatRatePolicy creates a flat-rate policy. Negative values are rejected.
func NewFlatRatePolicy(freeThreshold, flatFee decimal.Decimal) (FlatRatePolicy, error) {
	if freeThreshold.IsNegative() {
		return FlatRatePolicy{}, ErrInvalidAmount("free threshold", freeThreshold)
	}
	if flatFee.IsNegative() {
		return FlatRatePolicy{}, ErrInvalidAmount("flat fee", flatFee)
	}
	return FlatRatePolicy{FreeThreshold: freeThreshold, FlatFee: flatFee}, nil
}

// DefaultFlatRatePolicy returns the 999 / 50 storefront policy.
func DefaultFlatRatePolicy() FlatRatePolicy {
	return FlatRatePolicy{FreeThreshold: DefaultFreeThreshold, FlatFee: DefaultFlatFee}
}

func (p FlatRatePolicy) Quote(subtotal decimal.Decimal) Quote {
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return Quote{Amount: decimal.Zero, ServiceName: "Free Shipping", Free: true}
	}
	return Quote{Amount: p.FlatFee.Round(2), ServiceName: "Standard Shipping"}
}
