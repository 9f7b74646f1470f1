package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const variantStockColumns = `
    v.id, v.product_id, v.sku, v.size, v.color, v.stock_quantity, v.is_active,
    p.name, p.price, p.is_active
FROM product_variants v
JOIN products p ON p.id = v.product_id`

func scanVariantStock(row pgx.Row) (VariantStock, error) {
	var i VariantStock
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.Sku,
		&i.Size,
		&i.Color,
		&i.StockQuantity,
		&i.IsActive,
		&i.ProductName,
		&i.ProductPrice,
		&i.ProductIsActive,
	)
	return i, err
}

const getVariantStock = `SELECT` + variantStockColumns + `
WHERE v.id = $1`

func (q *Queries) GetVariantStock(ctx context.Context, id pgtype.UUID) (VariantStock, error) {
	return scanVariantStock(q.db.QueryRow(ctx, getVariantStock, id))
}

// Rows come back, and are locked, in ascending id order.
const lockVariantsForUpdate = `SELECT` + variantStockColumns + `
WHERE v.id = ANY($1::uuid[])
ORDER BY v.id
FOR UPDATE OF v`

func (q *Queries) LockVariantsForUpdate(ctx context.Context, ids []pgtype.UUID) ([]VariantStock, error) {
	rows, err := q.db.Query(ctx, lockVariantsForUpdate, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []VariantStock
	for rows.Next() {
		i, err := scanVariantStock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const decrementVariantStock = `
UPDATE product_variants
SET stock_quantity = stock_quantity - $2, updated_at = NOW()
WHERE id = $1 AND stock_quantity >= $2`

type DecrementVariantStockParams struct {
	ID       pgtype.UUID
	Quantity int32
}

// DecrementVariantStock returns the number of rows updated; zero means the
// variant did not hold enough stock.
func (q *Queries) DecrementVariantStock(ctx context.Context, arg DecrementVariantStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx, decrementVariantStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const incrementVariantStock = `
UPDATE product_variants
SET stock_quantity = stock_quantity + $2, updated_at = NOW()
WHERE id = $1`

type IncrementVariantStockParams struct {
	ID       pgtype.UUID
	Quantity int32
}

func (q *Queries) IncrementVariantStock(ctx context.Context, arg IncrementVariantStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx, incrementVariantStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const setVariantStock = `
UPDATE product_variants
SET stock_quantity = $2, updated_at = NOW()
WHERE id = $1
RETURNING id, product_id, sku, size, color, stock_quantity, is_active, created_at, updated_at`

type SetVariantStockParams struct {
	ID            pgtype.UUID
	StockQuantity int32
}

func (q *Queries) SetVariantStock(ctx context.Context, arg SetVariantStockParams) (ProductVariant, error) {
	row := q.db.QueryRow(ctx, setVariantStock, arg.ID, arg.StockQuantity)
	var i ProductVariant
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.Sku,
		&i.Size,
		&i.Color,
		&i.StockQuantity,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
