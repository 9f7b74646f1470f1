package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/inventory"
	"github.com/dukerupert/quartz/internal/jobs"
	"github.com/dukerupert/quartz/internal/pricing"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/shipping"
	"github.com/dukerupert/quartz/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	defaultOrderNumberAttempts = 5
	defaultOrderListLimit      = 20
	maxOrderListLimit          = 100
)

// OrderConfig holds the checkout rules that come from configuration.
type OrderConfig struct {
	NumberPrefix   string
	NumberAttempts int
	PriceDrift     domain.PriceDriftPolicy
	Currency       string
}

// IntentCreator starts an online payment for a committed order.
type IntentCreator interface {
	CreateIntent(ctx context.Context, orderNumber string) (*IntentResponse, error)
}

// PlaceOrderParams is a checkout request. Exactly one of SavedAddressID and
// Address should be set.
type PlaceOrderParams struct {
	Owner          CartOwner
	SavedAddressID uuid.UUID
	Address        *address.Fields
	PaymentMethod  domain.PaymentMethod
}

// PlacedOrder is the result of a successful checkout.
type PlacedOrder struct {
	Order  *OrderDetail            `json:"order"`
	Action domain.PostCommitAction `json:"next_action"`
	// Intent is set for gateway orders when the intent could be created
	// right after commit. The buyer can request it again otherwise.
	Intent *IntentResponse `json:"payment_intent,omitempty"`
}

// OrderItem is one immutable order line.
type OrderItem struct {
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	Variant     string          `json:"variant"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PaymentView is the buyer-facing state of an order's payment.
type PaymentView struct {
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	Amount      string     `json:"amount"`
	IntentID    string     `json:"intent_id,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// OrderDetail is an order with its lines, address snapshot and payment.
type OrderDetail struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Shipping    decimal.Decimal `json:"shipping"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Guest       bool            `json:"guest"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderItem     `json:"items"`
	Address     Address         `json:"shipping_address"`
	Payment     *PaymentView    `json:"payment,omitempty"`
}

// OrderSummary is one row of a buyer's order history.
type OrderSummary struct {
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderService turns carts into orders and administers them afterwards.
type OrderService struct {
	store     repository.Store
	policy    shipping.Policy
	validator address.Validator
	intents   IntentCreator
	cfg       OrderConfig
	logger    *slog.Logger

	newNumber func(prefix string) (string, error)
}

func NewOrderService(
	store repository.Store,
	policy shipping.Policy,
	validator address.Validator,
	intents IntentCreator,
	cfg OrderConfig,
	logger *slog.Logger,
) *OrderService {
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = DefaultOrderNumberPrefix
	}
	if cfg.NumberAttempts <= 0 {
		cfg.NumberAttempts = defaultOrderNumberAttempts
	}
	if cfg.PriceDrift == "" {
		cfg.PriceDrift = domain.PriceDriftIgnore
	}
	return &OrderService{
		store:     store,
		policy:    policy,
		validator: validator,
		intents:   intents,
		cfg:       cfg,
		logger:    logger,
		newNumber: GenerateOrderNumber,
	}
}

// lockedLine is a cart line re-validated under its variant's row lock.
type lockedLine struct {
	level     inventory.Level
	quantity  int
	unitPrice decimal.Decimal
}

// PlaceOrder converts the owner's active cart into an order in one
// transaction: stock is re-checked under row locks and decremented, the
// address is snapshotted, and the cart is closed. Nothing is written if any
// step fails. Notification and payment intent creation happen after commit
// and never fail the checkout.
func (s *OrderService) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*PlacedOrder, error) {
	const op = "order.place"

	if _, err := domain.ParsePaymentMethod(string(params.PaymentMethod)); err != nil {
		return nil, err
	}
	if params.Owner.IsZero() {
		return nil, domain.ErrNoCartOwner
	}

	// Raw address fields are validated before any lock is taken.
	var fields address.Fields
	switch {
	case params.SavedAddressID != uuid.Nil:
		if params.Owner.UserID == uuid.Nil {
			return nil, domain.ErrAddressNotFound
		}
	case params.Address != nil:
		var err error
		fields, err = s.validator.Validate(ctx, *params.Address)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.ErrAddressRequired
	}

	var (
		order   repository.Order
		items   []repository.OrderItem
		snap    repository.Address
		payment repository.Payment
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		cart, err := findCart(ctx, q, params.Owner, false)
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if _, err := lockActiveCart(ctx, q, cart.ID); err != nil {
			return err
		}

		rows, err := q.ListCartLines(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("failed to list cart lines: %w", err)
		}
		if len(rows) == 0 {
			return domain.ErrEmptyCart
		}

		lines, err := s.lockLines(ctx, q, op, rows)
		if err != nil {
			return err
		}

		if params.SavedAddressID != uuid.Nil {
			snap, err = snapshotSaved(ctx, q, params.Owner.UserID, params.SavedAddressID)
		} else {
			snap, err = snapshotFields(ctx, q, params.Owner.UserID, fields)
		}
		if err != nil {
			return err
		}

		priced := make([]pricing.Line, len(lines))
		for i, l := range lines {
			priced[i] = pricing.Line{UnitPrice: l.unitPrice, Quantity: l.quantity}
		}
		totals := pricing.Calculate(priced, s.policy)

		order, err = s.createOrder(ctx, q, op, repository.CreateOrderParams{
			UserID:    toPgUUID(params.Owner.UserID),
			Subtotal:  totals.Subtotal,
			Shipping:  totals.Shipping,
			Total:     totals.Total,
			AddressID: snap.ID,
		}, params.Owner)
		if err != nil {
			return err
		}

		items = make([]repository.OrderItem, 0, len(lines))
		for _, l := range lines {
			item, err := q.CreateOrderItem(ctx, repository.CreateOrderItemParams{
				OrderID:           order.ID,
				VariantID:         l.level.VariantID,
				ProductName:       l.level.ProductName,
				VariantDescriptor: l.level.Descriptor,
				UnitPrice:         l.unitPrice,
				Quantity:          int32(l.quantity),
			})
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			items = append(items, item)

			if err := inventory.Decrement(ctx, q, l.level, l.quantity); err != nil {
				return err
			}
		}

		payment, err = q.CreatePayment(ctx, repository.CreatePaymentParams{
			OrderID: order.ID,
			Method:  string(params.PaymentMethod),
			Amount:  order.Total,
		})
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if err := q.UpdateCartStatus(ctx, repository.UpdateCartStatusParams{
			ID:     cart.ID,
			Status: string(domain.CartOrdered),
		}); err != nil {
			return fmt.Errorf("failed to close cart: %w", err)
		}
		if err := q.DeleteCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		recordCheckoutFailure(err)
		if domain.ErrorCode(err) == domain.EINTERNAL {
			s.logger.Error("checkout failed", "error", err, "user_id", params.Owner.UserID)
		}
		return nil, err
	}

	detail := s.detailOf(order, items, snap, &payment)
	s.recordPlaced(detail, params.PaymentMethod)
	s.logger.Info("order placed",
		"order_number", order.OrderNumber,
		"payment_method", params.PaymentMethod,
		"total", order.Total.StringFixed(2),
		"guest", detail.Guest,
	)

	placed := &PlacedOrder{
		Order:  detail,
		Action: domain.PostCommitActionFor(params.PaymentMethod),
	}
	s.afterCommit(ctx, placed, snap, params.PaymentMethod)
	return placed, nil
}

// lockLines locks every variant in the cart in ascending id order and
// re-validates each line against the locked stock and price.
func (s *OrderService) lockLines(ctx context.Context, q repository.Querier, op string, rows []repository.CartLine) ([]lockedLine, error) {
	ids := make([]pgtype.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.VariantID
	}
	levels, err := inventory.Lock(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]lockedLine, 0, len(rows))
	for _, r := range rows {
		level := levels[r.VariantID.Bytes]
		qty := int(r.Quantity)
		if err := inventory.Check(op, level, qty); err != nil {
			inventory.RecordConflict("checkout")
			return nil, err
		}

		unit := r.UnitPrice
		if !unit.Equal(level.Price) {
			switch s.cfg.PriceDrift {
			case domain.PriceDriftReject:
				return nil, domain.PriceChanged(op, level.ProductName)
			case domain.PriceDriftRefresh:
				unit = level.Price
			}
		}
		lines = append(lines, lockedLine{level: level, quantity: qty, unitPrice: unit})
	}
	return lines, nil
}

// createOrder inserts the order under a fresh random number, retrying when
// the number is already taken.
func (s *OrderService) createOrder(ctx context.Context, q repository.Querier, op string, arg repository.CreateOrderParams, owner CartOwner) (repository.Order, error) {
	if owner.UserID == uuid.Nil {
		arg.GuestSessionKey = pgText(owner.SessionKey)
	}
	for attempt := 1; attempt <= s.cfg.NumberAttempts; attempt++ {
		number, err := s.newNumber(s.cfg.NumberPrefix)
		if err != nil {
			return repository.Order{}, err
		}
		arg.OrderNumber = number

		order, err := q.CreateOrder(ctx, arg)
		if err == nil {
			return order, nil
		}
		if !repository.IsNotFound(err) {
			return repository.Order{}, fmt.Errorf("failed to create order: %w", err)
		}
		s.logger.Warn("order number collision", "order_number", number, "attempt", attempt)
	}
	return repository.Order{}, domain.Wrapf(domain.ErrOrderNumberCollision, op,
		"Could not allocate an order number after %d attempts", s.cfg.NumberAttempts)
}

// afterCommit runs the best-effort tasks of a committed order. Failures are
// logged and counted, never returned.
func (s *OrderService) afterCommit(ctx context.Context, placed *PlacedOrder, snap repository.Address, method domain.PaymentMethod) {
	detail := placed.Order

	if _, err := jobs.EnqueueOrderPlaced(ctx, s.store, orderPlacedPayload(detail, snap, method)); err != nil {
		recordPostCommitFailure("enqueue_notification")
		s.logger.Error("failed to enqueue order notification",
			"order_number", detail.OrderNumber,
			"error", err,
		)
		telemetry.CaptureError(err, map[string]interface{}{"order_number": detail.OrderNumber})
	}

	if placed.Action != domain.ActionCreateIntent || s.intents == nil {
		return
	}
	intent, err := s.intents.CreateIntent(ctx, detail.OrderNumber)
	if err != nil {
		recordPostCommitFailure("create_intent")
		s.logger.Error("failed to create payment intent",
			"order_number", detail.OrderNumber,
			"error", err,
		)
		return
	}
	placed.Intent = intent
	if detail.Payment != nil {
		detail.Payment.IntentID = intent.IntentID
	}
}

func orderPlacedPayload(detail *OrderDetail, snap repository.Address, method domain.PaymentMethod) jobs.OrderPlacedPayload {
	items := make([]jobs.OrderItemData, len(detail.Items))
	for i, it := range detail.Items {
		items[i] = jobs.OrderItemData{
			ProductName: it.ProductName,
			Variant:     it.Variant,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
	}
	return jobs.OrderPlacedPayload{
		OrderID:       detail.ID,
		OrderNumber:   detail.OrderNumber,
		PaymentMethod: string(method),
		Status:        detail.Status,
		CustomerName:  snap.FullName,
		Email:         snap.Email,
		Phone:         snap.Phone,
		ShippingAddr: jobs.AddressData{
			FullName:    snap.FullName,
			AddressLine: snap.AddressLine,
			City:        snap.City,
			State:       snap.State,
			Pincode:     snap.Pincode,
		},
		Items:    items,
		Subtotal: detail.Subtotal,
		Shipping: detail.Shipping,
		Total:    detail.Total,
		Currency: detail.Currency,
		PlacedAt: detail.CreatedAt,
		Guest:    detail.Guest,
	}
}

// GetOrder returns an order visible to owner: the signed-in user who placed
// it, or the session that placed it as a guest. Anything else is not found.
func (s *OrderService) GetOrder(ctx context.Context, owner CartOwner, orderNumber string) (*OrderDetail, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !canView(order, owner) {
		return nil, domain.ErrOrderNotFound
	}
	return s.loadDetail(ctx, s.store, order)
}

func canView(order repository.Order, owner CartOwner) bool {
	if order.UserID.Valid && owner.UserID != uuid.Nil && fromPgUUID(order.UserID) == owner.UserID {
		return true
	}
	return order.GuestSessionKey.Valid && owner.SessionKey != "" && order.GuestSessionKey.String == owner.SessionKey
}

// ListOrders returns a signed-in user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]OrderSummary, error) {
	if userID == uuid.Nil {
		return nil, domain.Unauthorized("order.list", "Sign in to see your orders")
	}
	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	if limit > maxOrderListLimit {
		limit = maxOrderListLimit
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.store.ListOrdersByUser(ctx, repository.ListOrdersByUserParams{
		UserID: toPgUUID(userID),
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	out := make([]OrderSummary, len(orders))
	for i, o := range orders {
		out[i] = OrderSummary{
			OrderNumber: o.OrderNumber,
			Status:      o.Status,
			Total:       o.Total,
			CreatedAt:   o.CreatedAt.Time,
		}
	}
	return out, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling returns every
// line's units to stock in the same transaction, locking variants in
// ascending id order. Setting the current status again is a no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber string, next domain.OrderStatus) (*OrderDetail, error) {
	const op = "order.update_status"

	var detail *OrderDetail
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		order, err := q.LockOrderByNumber(ctx, orderNumber)
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		current := domain.OrderStatus(order.Status)
		if current != next {
			if !current.CanTransition(next) {
				return domain.Wrapf(domain.ErrInvalidTransition, op,
					"Order %s cannot move from %s to %s", order.OrderNumber, current, next)
			}
			if next == domain.OrderCancelled {
				if err := restockOrder(ctx, q, order.ID); err != nil {
					return err
				}
			}
			if err := q.UpdateOrderStatus(ctx, repository.UpdateOrderStatusParams{
				ID:     order.ID,
				Status: string(next),
			}); err != nil {
				return fmt.Errorf("failed to update order status: %w", err)
			}
			order.Status = string(next)
		}

		detail, err = s.loadDetail(ctx, q, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated", "order_number", orderNumber, "status", next)
	return detail, nil
}

// restockOrder returns an order's units to its variants. Lines whose variant
// has since been deleted are skipped.
func restockOrder(ctx context.Context, q repository.Querier, orderID pgtype.UUID) error {
	items, err := q.ListOrderItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to list order items: %w", err)
	}

	qty := make(map[[16]byte]int, len(items))
	ids := make([]pgtype.UUID, 0, len(items))
	for _, it := range items {
		if !it.VariantID.Valid {
			continue
		}
		qty[it.VariantID.Bytes] += int(it.Quantity)
		ids = append(ids, it.VariantID)
	}

	sorted := inventory.SortedIDs(ids)
	if _, err := inventory.Lock(ctx, q, sorted); err != nil {
		return err
	}
	for _, id := range sorted {
		if err := inventory.Restock(ctx, q, id, qty[id.Bytes]); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) loadDetail(ctx context.Context, q repository.Querier, order repository.Order) (*OrderDetail, error) {
	items, err := q.ListOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	addr, err := q.GetAddress(ctx, order.AddressID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order address: %w", err)
	}

	var payment *repository.Payment
	p, err := q.GetPaymentByOrder(ctx, order.ID)
	switch {
	case err == nil:
		payment = &p
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return s.detailOf(order, items, addr, payment), nil
}

func (s *OrderService) detailOf(order repository.Order, items []repository.OrderItem, addr repository.Address, payment *repository.Payment) *OrderDetail {
	d := &OrderDetail{
		ID:          fromPgUUID(order.ID),
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Subtotal:    order.Subtotal,
		Shipping:    order.Shipping,
		Total:       order.Total,
		Currency:    s.cfg.Currency,
		Guest:       !order.UserID.Valid,
		CreatedAt:   order.CreatedAt.Time,
		Items:       make([]OrderItem, len(items)),
		Address:     addressOf(addr),
	}
	for i, it := range items {
		line := pricing.Line{UnitPrice: it.UnitPrice, Quantity: int(it.Quantity)}
		d.Items[i] = OrderItem{
			ProductName: it.ProductName,
			Variant:     it.VariantDescriptor,
			Quantity:    int(it.Quantity),
			UnitPrice:   it.UnitPrice,
			LineTotal:   line.LineTotal(),
		}
		if it.VariantID.Valid {
			id := fromPgUUID(it.VariantID)
			d.Items[i].VariantID = &id
		}
	}
	if payment != nil {
		d.Payment = paymentViewOf(*payment)
	}
	return d
}

func paymentViewOf(p repository.Payment) *PaymentView {
	v := &PaymentView{
		Method:   p.Method,
		Status:   p.Status,
		Amount:   p.Amount.StringFixed(2),
		IntentID: p.IntentID.String,
	}
	if p.ProcessedAt.Valid {
		t := p.ProcessedAt.Time
		v.ProcessedAt = &t
	}
	return v
}

func (s *OrderService) recordPlaced(detail *OrderDetail, method domain.PaymentMethod) {
	if telemetry.Business == nil {
		return
	}
	units := 0
	for _, it := range detail.Items {
		units += it.Quantity
	}
	label := string(method)
	telemetry.Business.OrdersCreated.WithLabelValues(label).Inc()
	telemetry.Business.OrderValue.WithLabelValues(label).Observe(detail.Total.InexactFloat64())
	telemetry.Business.OrderItemCount.WithLabelValues(label).Observe(float64(units))
}

func recordCheckoutFailure(err error) {
	if telemetry.Business == nil {
		return
	}
	reason := "internal"
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		reason = "empty_cart"
	case errors.Is(err, domain.ErrOutOfStock):
		reason = "out_of_stock"
	case errors.Is(err, domain.ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, domain.ErrPriceChanged):
		reason = "price_changed"
	case errors.Is(err, domain.ErrAddressNotFound):
		reason = "address"
	case domain.ErrorCode(err) != domain.EINTERNAL:
		reason = domain.ErrorCode(err)
	}
	telemetry.Business.CheckoutFailures.WithLabelValues(reason).Inc()
}

func recordPostCommitFailure(task string) {
	if telemetry.Business != nil {
		telemetry.Business.PostCommitTaskFailure.WithLabelValues(task).Inc()
	}
}
