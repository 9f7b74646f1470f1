package domain

import "fmt"

// Order-related domain errors.
var (
	ErrEmptyCart            = &Error{Code: EINVALID, Message: "Your cart is empty"}
	ErrAddressNotFound      = &Error{Code: ENOTFOUND, Message: "Selected address was not found, please choose another"}
	ErrAddressRequired      = &Error{Code: EINVALID, Message: "A shipping address is required"}
	ErrOrderNotFound        = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrOrderNumberCollision = &Error{Code: EINTERNAL, Message: "Could not allocate an order number"}
	ErrPriceChanged         = &Error{Code: ECONFLICT, Message: "Prices in your cart have changed"}
	ErrInvalidTransition    = &Error{Code: ECONFLICT, Message: "Order status cannot be changed that way"}
	ErrInvalidPaymentMethod = &Error{Code: EINVALID, Message: "Unknown payment method"}
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPlaced:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payable reports whether an order in status s may still take a payment.
func (s OrderStatus) Payable() bool {
	return s == OrderPlaced || s == OrderConfirmed
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderPlaced, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return st, nil
	}
	return "", Errorf(EINVALID, "order.status", "unknown order status %q", s)
}

// PriceDriftPolicy decides what checkout does when a cart line's captured
// price no longer matches the live product price.
type PriceDriftPolicy string

const (
	// PriceDriftIgnore keeps the captured cart price.
	PriceDriftIgnore PriceDriftPolicy = "ignore"
	// PriceDriftReject fails checkout so the buyer can review the new price.
	PriceDriftReject PriceDriftPolicy = "reject"
	// PriceDriftRefresh charges the live price.
	PriceDriftRefresh PriceDriftPolicy = "refresh"
)

func ParsePriceDriftPolicy(s string) (PriceDriftPolicy, error) {
	switch p := PriceDriftPolicy(s); p {
	case PriceDriftIgnore, PriceDriftReject, PriceDriftRefresh:
		return p, nil
	}
	return "", fmt.Errorf("unknown price drift policy %q (want ignore, reject or refresh)", s)
}

// PriceChanged names the product whose price moved.
func PriceChanged(op, productName string) error {
	return Wrapf(ErrPriceChanged, op, "The price of %s has changed, please review your cart", productName)
}
