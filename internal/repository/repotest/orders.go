package repotest

import (
	"context"

	"github.com/dukerupert/quartz/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Querier) CreateOrder(ctx context.Context, arg repository.CreateOrderParams) (repository.Order, error) {
	unlock, err := q.guard("CreateOrder")
	defer unlock()
	if err != nil {
		return repository.Order{}, err
	}
	for _, o := range q.st().orders {
		if o.OrderNumber == arg.OrderNumber {
			return repository.Order{}, errNoRows
		}
	}
	if !arg.Total.Equal(arg.Subtotal.Add(arg.Shipping)) || arg.Total.IsNegative() {
		return repository.Order{}, ErrCheckViolation
	}
	if _, ok := q.st().addresses[arg.AddressID.Bytes]; !ok {
		return repository.Order{}, ErrCheckViolation
	}
	o := repository.Order{
		ID:              newID(),
		OrderNumber:     arg.OrderNumber,
		UserID:          arg.UserID,
		GuestSessionKey: arg.GuestSessionKey,
		Status:          "placed",
		Subtotal:        arg.Subtotal,
		Shipping:        arg.Shipping,
		Total:           arg.Total,
		AddressID:       arg.AddressID,
		CreatedAt:       q.s.ts(),
	}
	o.UpdatedAt = o.CreatedAt
	q.st().orders[o.ID.Bytes] = o
	return o, nil
}

func (q *Querier) GetOrder(ctx context.Context, id pgtype.UUID) (repository.Order, error) {
	unlock, err := q.guard("GetOrder")
	defer unlock()
	if err != nil {
		return repository.Order{}, err
	}
	o, ok := q.st().orders[id.Bytes]
	if !ok {
		return repository.Order{}, errNoRows
	}
	return o, nil
}

func (q *Querier) LockOrder(ctx context.Context, id pgtype.UUID) (repository.Order, error) {
	unlock, err := q.guard("LockOrder")
	defer unlock()
	if err != nil {
		return repository.Order{}, err
	}
	o, ok := q.st().orders[id.Bytes]
	if !ok {
		return repository.Order{}, errNoRows
	}
	return o, nil
}

func (q *Querier) orderByNumber(n string) (repository.Order, error) {
	for _, o := range q.st().orders {
		if o.OrderNumber == n {
			return o, nil
		}
	}
	return repository.Order{}, errNoRows
}

func (q *Querier) GetOrderByNumber(ctx context.Context, orderNumber string) (repository.Order, error) {
	unlock, err := q.guard("GetOrderByNumber")
	defer unlock()
	if err != nil {
		return repository.Order{}, err
	}
	return q.orderByNumber(orderNumber)
}

func (q *Querier) LockOrderByNumber(ctx context.Context, orderNumber string) (repository.Order, error) {
	unlock, err := q.guard("LockOrderByNumber")
	defer unlock()
	if err != nil {
		return repository.Order{}, err
	}
	return q.orderByNumber(orderNumber)
}

func (q *Querier) ListOrdersByUser(ctx context.Context, arg repository.ListOrdersByUserParams) ([]repository.Order, error) {
	unlock, err := q.guard("ListOrdersByUser")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var all []repository.Order
	for _, o := range q.st().orders {
		if o.UserID.Valid && o.UserID.Bytes == arg.UserID.Bytes {
			all = append(all, o)
		}
	}
	sortByCreated(all, func(o repository.Order) pgtype.Timestamptz { return o.CreatedAt })
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	start := int(arg.Offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(arg.Limit)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (q *Querier) UpdateOrderStatus(ctx context.Context, arg repository.UpdateOrderStatusParams) error {
	unlock, err := q.guard("UpdateOrderStatus")
	defer unlock()
	if err != nil {
		return err
	}
	o, ok := q.st().orders[arg.ID.Bytes]
	if !ok {
		return nil
	}
	o.Status = arg.Status
	o.UpdatedAt = q.s.ts()
	q.st().orders[arg.ID.Bytes] = o
	return nil
}

func (q *Querier) ConfirmPlacedOrder(ctx context.Context, id pgtype.UUID) (int64, error) {
	unlock, err := q.guard("ConfirmPlacedOrder")
	defer unlock()
	if err != nil {
		return 0, err
	}
	o, ok := q.st().orders[id.Bytes]
	if !ok || o.Status != "placed" {
		return 0, nil
	}
	o.Status = "confirmed"
	o.UpdatedAt = q.s.ts()
	q.st().orders[id.Bytes] = o
	return 1, nil
}

func (q *Querier) CreateOrderItem(ctx context.Context, arg repository.CreateOrderItemParams) (repository.OrderItem, error) {
	unlock, err := q.guard("CreateOrderItem")
	defer unlock()
	if err != nil {
		return repository.OrderItem{}, err
	}
	if arg.Quantity < 1 || arg.UnitPrice.IsNegative() {
		return repository.OrderItem{}, ErrCheckViolation
	}
	if _, ok := q.st().orders[arg.OrderID.Bytes]; !ok {
		return repository.OrderItem{}, ErrCheckViolation
	}
	oi := repository.OrderItem{
		ID:                newID(),
		OrderID:           arg.OrderID,
		VariantID:         arg.VariantID,
		ProductName:       arg.ProductName,
		VariantDescriptor: arg.VariantDescriptor,
		UnitPrice:         arg.UnitPrice,
		Quantity:          arg.Quantity,
		CreatedAt:         q.s.ts(),
	}
	q.st().orderItems[oi.ID.Bytes] = oi
	return oi, nil
}

func (q *Querier) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]repository.OrderItem, error) {
	unlock, err := q.guard("ListOrderItems")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []repository.OrderItem
	for _, oi := range q.st().orderItems {
		if oi.OrderID.Bytes == orderID.Bytes {
			out = append(out, oi)
		}
	}
	sortByCreated(out, func(oi repository.OrderItem) pgtype.Timestamptz { return oi.CreatedAt })
	return out, nil
}
