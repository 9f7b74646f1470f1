package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, order_id, method, status, amount, intent_id, external_payment_id, signature,
    processed_at, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Method,
		&i.Status,
		&i.Amount,
		&i.IntentID,
		&i.ExternalPaymentID,
		&i.Signature,
		&i.ProcessedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPayment = `
INSERT INTO payments (order_id, method, status, amount)
VALUES ($1, $2, 'pending', $3)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID pgtype.UUID
	Method  string
	Amount  decimal.Decimal
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.Method, arg.Amount))
}

const getPaymentByOrder = `SELECT ` + paymentColumns + `
FROM payments
WHERE order_id = $1`

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByOrder, orderID))
}

const lockPaymentByOrder = getPaymentByOrder + `
FOR UPDATE`

func (q *Queries) LockPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, lockPaymentByOrder, orderID))
}

const lockPaymentByIntent = `SELECT ` + paymentColumns + `
FROM payments
WHERE intent_id = $1
FOR UPDATE`

func (q *Queries) LockPaymentByIntent(ctx context.Context, intentID string) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, lockPaymentByIntent, intentID))
}

const setPaymentIntent = `
UPDATE payments
SET intent_id = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + paymentColumns

type SetPaymentIntentParams struct {
	ID       pgtype.UUID
	IntentID string
}

func (q *Queries) SetPaymentIntent(ctx context.Context, arg SetPaymentIntentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, setPaymentIntent, arg.ID, arg.IntentID))
}

const markPaymentPaid = `
UPDATE payments
SET status = 'paid', external_payment_id = $2, signature = $3, processed_at = NOW(), updated_at = NOW()
WHERE id = $1
RETURNING ` + paymentColumns

type MarkPaymentPaidParams struct {
	ID                pgtype.UUID
	ExternalPaymentID pgtype.Text
	Signature         pgtype.Text
}

func (q *Queries) MarkPaymentPaid(ctx context.Context, arg MarkPaymentPaidParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, markPaymentPaid, arg.ID, arg.ExternalPaymentID, arg.Signature))
}

// A paid payment is never downgraded.
const markPaymentFailed = `
UPDATE payments
SET status = 'failed', updated_at = NOW()
WHERE id = $1 AND status <> 'paid'`

func (q *Queries) MarkPaymentFailed(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markPaymentFailed, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
