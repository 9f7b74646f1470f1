// Package inventory guards per-variant stock. Every check that can sell a
// unit runs here: add-to-cart validation, checkout re-validation under row
// locks, the conditional decrement and restock on cancellation.
package inventory

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/telemetry"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DefaultMaxPerLine caps how many units of one variant a cart line may hold.
const DefaultMaxPerLine = 10

// Level is a variant's sellable state at a point in time.
type Level struct {
	VariantID   pgtype.UUID
	ProductName string
	Descriptor  string
	Price       decimal.Decimal
	Stock       int
	Active      bool
}

// LevelOf builds a Level from a joined variant row. A variant is only
// active when its product is too.
func LevelOf(v repository.VariantStock) Level {
	return Level{
		VariantID:   v.ID,
		ProductName: v.ProductName,
		Descriptor:  Descriptor(v.Size, v.Color),
		Price:       v.ProductPrice,
		Stock:       int(v.StockQuantity),
		Active:      v.IsActive && v.ProductIsActive,
	}
}

// Descriptor renders a variant as "size color", skipping empty parts.
func Descriptor(size, color string) string {
	switch {
	case size == "":
		return color
	case color == "":
		return size
	}
	return size + " " + color
}

// Clamp bounds requested to [1, max].
func Clamp(requested, max int) int {
	if max <= 0 {
		max = DefaultMaxPerLine
	}
	if requested < 1 {
		return 1
	}
	if requested > max {
		return max
	}
	return requested
}

// Validate clamps requested to [1, maxPerLine] and checks it against level.
// It returns the clamped quantity.
func Validate(op string, level Level, requested, maxPerLine int) (int, error) {
	if !level.Active || level.Stock <= 0 {
		return 0, domain.OutOfStock(op, level.ProductName)
	}
	qty := Clamp(requested, maxPerLine)
	if qty > level.Stock {
		return 0, domain.InsufficientStock(op, level.ProductName, level.Stock)
	}
	return qty, nil
}

// Check re-validates an exact quantity without clamping. Checkout uses it
// on locked rows, so a buyer who lost the last unit to a concurrent order
// sees InsufficientStock.
func Check(op string, level Level, qty int) error {
	if !level.Active {
		return domain.OutOfStock(op, level.ProductName)
	}
	if qty > level.Stock {
		return domain.InsufficientStock(op, level.ProductName, level.Stock)
	}
	return nil
}

// SortedIDs de-duplicates ids and sorts them ascending by their bytes, the
// order Postgres compares uuids in.
func SortedIDs(ids []pgtype.UUID) []pgtype.UUID {
	seen := make(map[[16]byte]struct{}, len(ids))
	out := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		if !id.Valid {
			continue
		}
		if _, ok := seen[id.Bytes]; ok {
			continue
		}
		seen[id.Bytes] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes[:], out[j].Bytes[:]) < 0
	})
	return out
}

// Lock takes row locks on every variant in ids, in ascending id order, and
// returns their levels keyed by id bytes. Must be called inside a transaction.
// A missing variant is reported as ErrVariantNotFound.
func Lock(ctx context.Context, q repository.Querier, ids []pgtype.UUID) (map[[16]byte]Level, error) {
	sorted := SortedIDs(ids)
	if len(sorted) == 0 {
		return map[[16]byte]Level{}, nil
	}

	rows, err := q.LockVariantsForUpdate(ctx, sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to lock variants: %w", err)
	}

	levels := make(map[[16]byte]Level, len(rows))
	for _, row := range rows {
		levels[row.ID.Bytes] = LevelOf(row)
	}
	if len(levels) != len(sorted) {
		return nil, domain.ErrVariantNotFound
	}
	return levels, nil
}

// Decrement removes qty units from a locked variant. Zero rows updated means
// the stock could not cover qty.
func Decrement(ctx context.Context, q repository.Querier, level Level, qty int) error {
	n, err := q.DecrementVariantStock(ctx, repository.DecrementVariantStockParams{
		ID:       level.VariantID,
		Quantity: int32(qty),
	})
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if n == 0 {
		RecordConflict("checkout")
		return domain.InsufficientStock("inventory.decrement", level.ProductName, level.Stock)
	}
	return nil
}

// Restock returns qty units to a variant, e.g. when an order is cancelled.
// Variants deleted since the order was placed are skipped.
func Restock(ctx context.Context, q repository.Querier, variantID pgtype.UUID, qty int) error {
	if !variantID.Valid || qty <= 0 {
		return nil
	}
	if _, err := q.IncrementVariantStock(ctx, repository.IncrementVariantStockParams{
		ID:       variantID,
		Quantity: int32(qty),
	}); err != nil {
		return fmt.Errorf("failed to restock variant: %w", err)
	}
	return nil
}

// Set overwrites a variant's stock. Used by the admin stock endpoint.
func Set(ctx context.Context, q repository.Querier, variantID pgtype.UUID, qty int) (repository.ProductVariant, error) {
	if qty < 0 {
		return repository.ProductVariant{}, domain.Invalid("inventory.set", "Stock quantity cannot be negative")
	}
	v, err := q.SetVariantStock(ctx, repository.SetVariantStockParams{
		ID:            variantID,
		StockQuantity: int32(qty),
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return repository.ProductVariant{}, domain.ErrVariantNotFound
		}
		return repository.ProductVariant{}, fmt.Errorf("failed to set stock: %w", err)
	}
	return v, nil
}

// RecordConflict counts a stock rejection at the given stage.
func RecordConflict(stage string) {
	if telemetry.Business != nil {
		telemetry.Business.StockConflicts.WithLabelValues(stage).Inc()
	}
}
