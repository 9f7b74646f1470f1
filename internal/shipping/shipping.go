// Package shipping decides what a buyer pays to have an order delivered.
package shipping

import "github.com/shopspring/decimal"

// Policy quotes the shipping charge for a cart subtotal.
// Implementations must be pure: the same subtotal always yields the same quote.
type Policy interface {
	Quote(subtotal decimal.Decimal) Quote
}

// Quote is the shipping charge for one order.
type Quote struct {
	Amount      decimal.Decimal
	ServiceName string
	Free        bool
}
