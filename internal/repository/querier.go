package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	// catalog
	GetVariantStock(ctx context.Context, id pgtype.UUID) (VariantStock, error)
	LockVariantsForUpdate(ctx context.Context, ids []pgtype.UUID) ([]VariantStock, error)
	DecrementVariantStock(ctx context.Context, arg DecrementVariantStockParams) (int64, error)
	IncrementVariantStock(ctx context.Context, arg IncrementVariantStockParams) (int64, error)
	SetVariantStock(ctx context.Context, arg SetVariantStockParams) (ProductVariant, error)

	// carts
	GetActiveCartByUser(ctx context.Context, userID pgtype.UUID) (Cart, error)
	GetActiveCartBySession(ctx context.Context, sessionKey string) (Cart, error)
	CreateUserCart(ctx context.Context, userID pgtype.UUID) (Cart, error)
	CreateSessionCart(ctx context.Context, sessionKey string) (Cart, error)
	LockCart(ctx context.Context, id pgtype.UUID) (Cart, error)
	UpdateCartStatus(ctx context.Context, arg UpdateCartStatusParams) error
	ListCartLines(ctx context.Context, cartID pgtype.UUID) ([]CartLine, error)
	GetCartItem(ctx context.Context, arg GetCartItemParams) (CartItem, error)
	UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error)
	DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error)
	DeleteCartItems(ctx context.Context, cartID pgtype.UUID) error

	// addresses
	GetAddress(ctx context.Context, id pgtype.UUID) (Address, error)
	GetSavedAddress(ctx context.Context, arg GetSavedAddressParams) (Address, error)
	CreateAddress(ctx context.Context, arg CreateAddressParams) (Address, error)
	UpdateSavedAddress(ctx context.Context, arg UpdateSavedAddressParams) (Address, error)
	DeleteSavedAddress(ctx context.Context, arg DeleteSavedAddressParams) (int64, error)
	ListSavedAddresses(ctx context.Context, userID pgtype.UUID) ([]Address, error)
	ClearDefaultAddress(ctx context.Context, userID pgtype.UUID) error
	SetDefaultAddress(ctx context.Context, arg SetDefaultAddressParams) (int64, error)

	// orders
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	GetOrder(ctx context.Context, id pgtype.UUID) (Order, error)
	LockOrder(ctx context.Context, id pgtype.UUID) (Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error)
	LockOrderByNumber(ctx context.Context, orderNumber string) (Order, error)
	ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) error
	ConfirmPlacedOrder(ctx context.Context, id pgtype.UUID) (int64, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error)

	// payments
	CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (Payment, error)
	LockPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (Payment, error)
	LockPaymentByIntent(ctx context.Context, intentID string) (Payment, error)
	SetPaymentIntent(ctx context.Context, arg SetPaymentIntentParams) (Payment, error)
	MarkPaymentPaid(ctx context.Context, arg MarkPaymentPaidParams) (Payment, error)
	MarkPaymentFailed(ctx context.Context, id pgtype.UUID) (int64, error)

	// jobs
	EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error)
	ClaimNextJob(ctx context.Context, arg ClaimNextJobParams) (Job, error)
	CompleteJob(ctx context.Context, id pgtype.UUID) error
	RetryJob(ctx context.Context, arg RetryJobParams) error
	FailJob(ctx context.Context, arg FailJobParams) error
	RequeueStaleJobs(ctx context.Context, lockedBefore pgtype.Timestamptz) (int64, error)
}

var _ Querier = (*Queries)(nil)
