package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const cartColumns = `id, user_id, session_key, status, created_at, updated_at`

func scanCart(row pgx.Row) (Cart, error) {
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.SessionKey,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getActiveCartByUser = `SELECT ` + cartColumns + `
FROM carts
WHERE user_id = $1 AND status = 'active'`

func (q *Queries) GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, getActiveCartByUser, userID))
}

const getActiveCartBySession = `SELECT ` + cartColumns + `
FROM carts
WHERE session_key = $1 AND status = 'active'`

func (q *Queries) GetActiveCartBySession(ctx context.Context, sessionKey string) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, getActiveCartBySession, sessionKey))
}

// CreateUserCart returns pgx.ErrNoRows when another request created the
// user's active cart first.
const createUserCart = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) WHERE status = 'active' AND user_id IS NOT NULL DO NOTHING
RETURNING ` + cartColumns

func (q *Queries) CreateUserCart(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, createUserCart, userID))
}

const createSessionCart = `
INSERT INTO carts (session_key)
VALUES ($1)
ON CONFLICT (session_key) WHERE status = 'active' AND session_key IS NOT NULL DO NOTHING
RETURNING ` + cartColumns

func (q *Queries) CreateSessionCart(ctx context.Context, sessionKey string) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, createSessionCart, sessionKey))
}

const lockCart = `SELECT ` + cartColumns + `
FROM carts
WHERE id = $1
FOR UPDATE`

func (q *Queries) LockCart(ctx context.Context, id pgtype.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, lockCart, id))
}

const updateCartStatus = `
UPDATE carts
SET status = $2, updated_at = NOW()
WHERE id = $1`

type UpdateCartStatusParams struct {
	ID     pgtype.UUID
	Status string
}

func (q *Queries) UpdateCartStatus(ctx context.Context, arg UpdateCartStatusParams) error {
	_, err := q.db.Exec(ctx, updateCartStatus, arg.ID, arg.Status)
	return err
}

const listCartLines = `
SELECT ci.variant_id, ci.quantity, ci.unit_price, v.sku, v.size, v.color, p.name
FROM cart_items ci
JOIN product_variants v ON v.id = ci.variant_id
JOIN products p ON p.id = v.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.id`

func (q *Queries) ListCartLines(ctx context.Context, cartID pgtype.UUID) ([]CartLine, error) {
	rows, err := q.db.Query(ctx, listCartLines, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartLine
	for rows.Next() {
		var i CartLine
		if err := rows.Scan(
			&i.VariantID,
			&i.Quantity,
			&i.UnitPrice,
			&i.Sku,
			&i.Size,
			&i.Color,
			&i.ProductName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const cartItemColumns = `id, cart_id, variant_id, quantity, unit_price, created_at, updated_at`

func scanCartItem(row pgx.Row) (CartItem, error) {
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.VariantID,
		&i.Quantity,
		&i.UnitPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCartItem = `SELECT ` + cartItemColumns + `
FROM cart_items
WHERE cart_id = $1 AND variant_id = $2`

type GetCartItemParams struct {
	CartID    pgtype.UUID
	VariantID pgtype.UUID
}

func (q *Queries) GetCartItem(ctx context.Context, arg GetCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, getCartItem, arg.CartID, arg.VariantID))
}

const upsertCartItem = `
INSERT INTO cart_items (cart_id, variant_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, variant_id) DO UPDATE
SET quantity = EXCLUDED.quantity,
    unit_price = EXCLUDED.unit_price,
    updated_at = NOW()
RETURNING ` + cartItemColumns

type UpsertCartItemParams struct {
	CartID    pgtype.UUID
	VariantID pgtype.UUID
	Quantity  int32
	UnitPrice decimal.Decimal
}

func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, upsertCartItem, arg.CartID, arg.VariantID, arg.Quantity, arg.UnitPrice))
}

const deleteCartItem = `
DELETE FROM cart_items
WHERE cart_id = $1 AND variant_id = $2`

type DeleteCartItemParams struct {
	CartID    pgtype.UUID
	VariantID pgtype.UUID
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCartItem, arg.CartID, arg.VariantID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteCartItems = `DELETE FROM cart_items WHERE cart_id = $1`

func (q *Queries) DeleteCartItems(ctx context.Context, cartID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCartItems, cartID)
	return err
}
