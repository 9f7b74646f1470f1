package repotest

import (
	"context"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Querier) CreatePayment(ctx context.Context, arg repository.CreatePaymentParams) (repository.Payment, error) {
	unlock, err := q.guard("CreatePayment")
	defer unlock()
	if err != nil {
		return repository.Payment{}, err
	}
	for _, p := range q.st().payments {
		if p.OrderID.Bytes == arg.OrderID.Bytes {
			return repository.Payment{}, uniqueViolation("payments_order_id_key")
		}
	}
	p := repository.Payment{
		ID:        newID(),
		OrderID:   arg.OrderID,
		Method:    arg.Method,
		Status:    "pending",
		Amount:    arg.Amount,
		CreatedAt: q.s.ts(),
	}
	p.UpdatedAt = p.CreatedAt
	q.st().payments[p.ID.Bytes] = p
	return p, nil
}

func (q *Querier) paymentWhere(match func(repository.Payment) bool) (repository.Payment, error) {
	for _, p := range q.st().payments {
		if match(p) {
			return p, nil
		}
	}
	return repository.Payment{}, errNoRows
}

func (q *Querier) GetPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (repository.Payment, error) {
	unlock, err := q.guard("GetPaymentByOrder")
	defer unlock()
	if err != nil {
		return repository.Payment{}, err
	}
	return q.paymentWhere(func(p repository.Payment) bool { return p.OrderID.Bytes == orderID.Bytes })
}

func (q *Querier) LockPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (repository.Payment, error) {
	unlock, err := q.guard("LockPaymentByOrder")
	defer unlock()
	if err != nil {
		return repository.Payment{}, err
	}
	return q.paymentWhere(func(p repository.Payment) bool { return p.OrderID.Bytes == orderID.Bytes })
}

func (q *Querier) LockPaymentByIntent(ctx context.Context, intentID string) (repository.Payment, error) {
	unlock, err := q.guard("LockPaymentByIntent")
	defer unlock()
	if err != nil {
		return repository.Payment{}, err
	}
	return q.paymentWhere(func(p repository.Payment) bool { return p.IntentID.Valid && p.IntentID.String == intentID })
}

func (q *Querier) updatePayment(id pgtype.UUID, fn func(*repository.Payment)) (repository.Payment, error) {
	p, ok := q.st().payments[id.Bytes]
	if !ok {
		return repository.Payment{}, errNoRows
	}
	fn(&p)
	p.UpdatedAt = q.s.ts()
	q.st().payments[id.Bytes] = p
	return p, nil
}

func (q *Querier) SetPaymentIntent(ctx context.Context, arg repository.SetPaymentIntentParams) (repository.Payment, error) {
	unlock, err := q.guard("SetPaymentIntent")
	defer unlock()
	if err != nil {
		return repository.Payment{}, err
	}
	if _, err := q.paymentWhere(func(p repository.Payment) bool {
		return p.IntentID.Valid && p.IntentID.String == arg.IntentID && p.ID.Bytes != arg.ID.Bytes
	}); err == nil {
		return repository.Payment{}, uniqueViolation("payments_intent_id_key")
	}
	return q.updatePayment(arg.ID, func(p *repository.Payment) {
		p.IntentID = text(arg.IntentID)
	})
}

func (q *Querier) MarkPaymentPaid(ctx context.Context, arg repository.MarkPaymentPaidParams) (repository.Payment, error) {
	unlock, err := q.guard("MarkPaymentPaid")
	defer unlock()
	if err != nil {
		return repository.Payment{}, err
	}
	return q.updatePayment(arg.ID, func(p *repository.Payment) {
		p.Status = "paid"
		p.ExternalPaymentID = arg.ExternalPaymentID
		p.Signature = arg.Signature
		p.ProcessedAt = q.s.ts()
	})
}

func (q *Querier) MarkPaymentFailed(ctx context.Context, id pgtype.UUID) (int64, error) {
	unlock, err := q.guard("MarkPaymentFailed")
	defer unlock()
	if err != nil {
		return 0, err
	}
	p, ok := q.st().payments[id.Bytes]
	if !ok || p.Status == "paid" {
		return 0, nil
	}
	p.Status = "failed"
	p.UpdatedAt = q.s.ts()
	q.st().payments[id.Bytes] = p
	return 1, nil
}
