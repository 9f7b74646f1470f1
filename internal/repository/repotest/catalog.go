package repotest

import (
	"context"
	"sort"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Querier) variantStock(v repository.ProductVariant) repository.VariantStock {
	p := q.st().products[v.ProductID.Bytes]
	return repository.VariantStock{
		ID:              v.ID,
		ProductID:       v.ProductID,
		Sku:             v.Sku,
		Size:            v.Size,
		Color:           v.Color,
		StockQuantity:   v.StockQuantity,
		IsActive:        v.IsActive,
		ProductName:     p.Name,
		ProductPrice:    p.Price,
		ProductIsActive: p.IsActive,
	}
}

func (q *Querier) GetVariantStock(ctx context.Context, id pgtype.UUID) (repository.VariantStock, error) {
	unlock, err := q.guard("GetVariantStock")
	defer unlock()
	if err != nil {
		return repository.VariantStock{}, err
	}
	v, ok := q.st().variants[id.Bytes]
	if !ok {
		return repository.VariantStock{}, errNoRows
	}
	return q.variantStock(v), nil
}

func (q *Querier) LockVariantsForUpdate(ctx context.Context, ids []pgtype.UUID) ([]repository.VariantStock, error) {
	unlock, err := q.guard("LockVariantsForUpdate")
	defer unlock()
	if err != nil {
		return nil, err
	}
	q.s.LockLog = append(q.s.LockLog, append([]pgtype.UUID(nil), ids...))

	var out []repository.VariantStock
	for _, id := range ids {
		if v, ok := q.st().variants[id.Bytes]; ok {
			out = append(out, q.variantStock(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return compareIDs(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

func (q *Querier) DecrementVariantStock(ctx context.Context, arg repository.DecrementVariantStockParams) (int64, error) {
	unlock, err := q.guard("DecrementVariantStock")
	defer unlock()
	if err != nil {
		return 0, err
	}
	v, ok := q.st().variants[arg.ID.Bytes]
	if !ok || v.StockQuantity < arg.Quantity {
		return 0, nil
	}
	v.StockQuantity -= arg.Quantity
	v.UpdatedAt = q.s.ts()
	q.st().variants[arg.ID.Bytes] = v
	return 1, nil
}

func (q *Querier) IncrementVariantStock(ctx context.Context, arg repository.IncrementVariantStockParams) (int64, error) {
	unlock, err := q.guard("IncrementVariantStock")
	defer unlock()
	if err != nil {
		return 0, err
	}
	v, ok := q.st().variants[arg.ID.Bytes]
	if !ok {
		return 0, nil
	}
	v.StockQuantity += arg.Quantity
	if v.StockQuantity < 0 {
		return 0, ErrCheckViolation
	}
	v.UpdatedAt = q.s.ts()
	q.st().variants[arg.ID.Bytes] = v
	return 1, nil
}

func (q *Querier) SetVariantStock(ctx context.Context, arg repository.SetVariantStockParams) (repository.ProductVariant, error) {
	unlock, err := q.guard("SetVariantStock")
	defer unlock()
	if err != nil {
		return repository.ProductVariant{}, err
	}
	if arg.StockQuantity < 0 {
		return repository.ProductVariant{}, ErrCheckViolation
	}
	v, ok := q.st().variants[arg.ID.Bytes]
	if !ok {
		return repository.ProductVariant{}, errNoRows
	}
	v.StockQuantity = arg.StockQuantity
	v.UpdatedAt = q.s.ts()
	q.st().variants[arg.ID.Bytes] = v
	return v, nil
}
