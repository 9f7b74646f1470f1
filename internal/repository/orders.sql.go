package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, user_id, guest_session_key, status, subtotal, shipping, total,
    address_id, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.UserID,
		&i.GuestSessionKey,
		&i.Status,
		&i.Subtotal,
		&i.Shipping,
		&i.Total,
		&i.AddressID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

// CreateOrder returns pgx.ErrNoRows when the order number is already taken.
const createOrder = `
INSERT INTO orders (order_number, user_id, guest_session_key, status, subtotal, shipping, total, address_id)
VALUES ($1, $2, $3, 'placed', $4, $5, $6, $7)
ON CONFLICT (order_number) DO NOTHING
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber     string
	UserID          pgtype.UUID
	GuestSessionKey pgtype.Text
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	AddressID       pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.UserID,
		arg.GuestSessionKey,
		arg.Subtotal,
		arg.Shipping,
		arg.Total,
		arg.AddressID,
	))
}

const getOrderByNumber = `SELECT ` + orderColumns + `
FROM orders
WHERE order_number = $1`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

const lockOrderByNumber = getOrderByNumber + `
FOR UPDATE`

func (q *Queries) LockOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, lockOrderByNumber, orderNumber))
}

const getOrder = `SELECT ` + orderColumns + `
FROM orders
WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const lockOrder = getOrder + `
FOR UPDATE`

func (q *Queries) LockOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, lockOrder, id))
}

const listOrdersByUser = `SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListOrdersByUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = NOW()
WHERE id = $1`

type UpdateOrderStatusParams struct {
	ID     pgtype.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) error {
	_, err := q.db.Exec(ctx, updateOrderStatus, arg.ID, arg.Status)
	return err
}

const confirmPlacedOrder = `
UPDATE orders
SET status = 'confirmed', updated_at = NOW()
WHERE id = $1 AND status = 'placed'`

// ConfirmPlacedOrder moves a placed order to confirmed and is a no-op for
// any other status.
func (q *Queries) ConfirmPlacedOrder(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, confirmPlacedOrder, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const orderItemColumns = `id, order_id, variant_id, product_name, variant_descriptor, unit_price, quantity, created_at`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.VariantID,
		&i.ProductName,
		&i.VariantDescriptor,
		&i.UnitPrice,
		&i.Quantity,
		&i.CreatedAt,
	)
	return i, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, variant_id, product_name, variant_descriptor, unit_price, quantity)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID           pgtype.UUID
	VariantID         pgtype.UUID
	ProductName       string
	VariantDescriptor string
	UnitPrice         decimal.Decimal
	Quantity          int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.VariantID,
		arg.ProductName,
		arg.VariantDescriptor,
		arg.UnitPrice,
		arg.Quantity,
	))
}

const listOrderItems = `SELECT ` + orderItemColumns + `
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
