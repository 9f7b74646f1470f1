package domain

// Cart-related domain errors.
var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrVariantNotFound  = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrNoCartOwner      = &Error{Code: EINVALID, Message: "A session or signed-in user is required"}
	ErrCartNotActive    = &Error{Code: ECONFLICT, Message: "Cart has already been checked out"}

	// ErrOutOfStock means the variant cannot be sold at all right now.
	ErrOutOfStock = &Error{Code: ECONFLICT, Message: "Item is out of stock"}

	// ErrInsufficientStock means fewer units are available than requested.
	ErrInsufficientStock = &Error{Code: ECONFLICT, Message: "Insufficient stock for one or more items"}
)

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartActive    CartStatus = "active"
	CartOrdered   CartStatus = "ordered"
	CartAbandoned CartStatus = "abandoned"
)

// OutOfStock names the product that cannot be sold.
func OutOfStock(op, productName string) error {
	return Wrapf(ErrOutOfStock, op, "%s is out of stock", productName)
}

// InsufficientStock names the product and how many units remain.
func InsufficientStock(op, productName string, available int) error {
	if available <= 0 {
		return Wrapf(ErrInsufficientStock, op, "%s is no longer available", productName)
	}
	return Wrapf(ErrInsufficientStock, op, "Only %d of %s left in stock", available, productName)
}
