package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID        pgtype.UUID
	Name      string
	Slug      string
	Price     decimal.Decimal
	IsActive  bool
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type ProductVariant struct {
	ID            pgtype.UUID
	ProductID     pgtype.UUID
	Sku           string
	Size          string
	Color         string
	StockQuantity int32
	IsActive      bool
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

// VariantStock joins a variant with the product fields checkout needs.
type VariantStock struct {
	ID              pgtype.UUID
	ProductID       pgtype.UUID
	Sku             string
	Size            string
	Color           string
	StockQuantity   int32
	IsActive        bool
	ProductName     string
	ProductPrice    decimal.Decimal
	ProductIsActive bool
}

type Cart struct {
	ID         pgtype.UUID
	UserID     pgtype.UUID
	SessionKey pgtype.Text
	Status     string
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

type CartItem struct {
	ID        pgtype.UUID
	CartID    pgtype.UUID
	VariantID pgtype.UUID
	Quantity  int32
	UnitPrice decimal.Decimal
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// CartLine is a cart item joined with its variant and product.
type CartLine struct {
	VariantID   pgtype.UUID
	Quantity    int32
	UnitPrice   decimal.Decimal
	Sku         string
	Size        string
	Color       string
	ProductName string
}

type Address struct {
	ID          pgtype.UUID
	UserID      pgtype.UUID
	FullName    string
	Phone       string
	Email       string
	AddressLine string
	City        string
	State       string
	Pincode     string
	IsDefault   bool
	IsSnapshot  bool
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type Order struct {
	ID              pgtype.UUID
	OrderNumber     string
	UserID          pgtype.UUID
	GuestSessionKey pgtype.Text
	Status          string
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	AddressID       pgtype.UUID
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

type OrderItem struct {
	ID                pgtype.UUID
	OrderID           pgtype.UUID
	VariantID         pgtype.UUID
	ProductName       string
	VariantDescriptor string
	UnitPrice         decimal.Decimal
	Quantity          int32
	CreatedAt         pgtype.Timestamptz
}

type Payment struct {
	ID                pgtype.UUID
	OrderID           pgtype.UUID
	Method            string
	Status            string
	Amount            decimal.Decimal
	IntentID          pgtype.Text
	ExternalPaymentID pgtype.Text
	Signature         pgtype.Text
	ProcessedAt       pgtype.Timestamptz
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

type Job struct {
	ID          pgtype.UUID
	JobType     string
	Queue       string
	Payload     []byte
	Status      string
	Attempts    int32
	MaxAttempts int32
	RunAt       pgtype.Timestamptz
	LockedBy    pgtype.Text
	LockedAt    pgtype.Timestamptz
	LastError   pgtype.Text
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}
