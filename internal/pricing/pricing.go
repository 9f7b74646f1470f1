// Package pricing computes order totals from cart lines.
package pricing

import (
	"github.com/dukerupert/quartz/internal/shipping"
	"github.com/shopspring/decimal"
)

// Line is one priced cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns unit price times quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds the money figures for one order.
// Total always equals Subtotal plus Shipping.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	FreeShipping bool            `json:"free_shipping"`
	ItemCount    int             `json:"item_count"`
}

// Calculate sums lines and applies the shipping policy. It has no side effects.
func Calculate(lines []Line, policy shipping.Policy) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
		count += l.Quantity
	}
	subtotal = subtotal.Round(2)

	quote := policy.Quote(subtotal)
	ship := quote.Amount.Round(2)

	return Totals{
		Subtotal:     subtotal,
		Shipping:     ship,
		Total:        subtotal.Add(ship),
		FreeShipping: quote.Free,
		ItemCount:    count,
	}
}

// MinorUnits converts an amount to the smallest currency unit (paise, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
