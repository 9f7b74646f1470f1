package email

import "time"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// OrderConfirmationEmail is sent to the buyer once an order is placed.
type OrderConfirmationEmail struct {
	StoreName     string
	OrderNumber   string
	CustomerName  string
	Email         string
	PlacedAt      time.Time
	PaymentMethod string
	PaymentNote   string // what the buyer should expect next, by payment method
	Items         []OrderItem
	Subtotal      string
	Shipping      string
	Total         string
	FreeShipping  bool
	ShippingAddr  Address
}

func (e OrderConfirmationEmail) Subject() string {
	return "Order Confirmation - " + e.OrderNumber
}

func (e OrderConfirmationEmail) TemplateName() string {
	return "order_confirmation.html"
}

// StaffAlertEmail tells the store inbox that an order needs a human to
// contact the buyer about payment.
type StaffAlertEmail struct {
	OrderNumber   string
	CustomerName  string
	Email         string
	Phone         string
	PaymentMethod string
	Total         string
	Items         []OrderItem
	ShippingAddr  Address
}

func (e StaffAlertEmail) Subject() string {
	return "Action needed: contact buyer for order " + e.OrderNumber
}

func (e StaffAlertEmail) TemplateName() string {
	return "staff_alert.html"
}

// OrderItem represents a line item in an order
type OrderItem struct {
	ProductName string
	Variant     string // e.g. "7 Gold"
	Quantity    int
	UnitPrice   string
	LineTotal   string
}

// Address represents a shipping address
type Address struct {
	Name        string
	AddressLine string
	City        string
	State       string
	Pincode     string
}
