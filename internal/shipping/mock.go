package shipping

import "github.com/shopspring/decimal"

// FixedPolicy charges the same amount regardless of subtotal. Useful in tests.
type FixedPolicy struct {
	Amount decimal.Decimal
}

func (p FixedPolicy) Quote(decimal.Decimal) Quote {
	return Quote{Amount: p.Amount, ServiceName: "Fixed", Free: p.Amount.IsZero()}
}
