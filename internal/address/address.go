// Package address validates the shipping address a buyer enters at checkout
// or saves to their address book.
package address

import "context"

// Validator checks an address and returns it normalised.
type Validator interface {
	Validate(ctx context.Context, addr Fields) (Fields, error)
}

// Fields are the buyer-entered parts of an address.
type Fields struct {
	FullName    string `json:"full_name" validate:"required,max=120"`
	Phone       string `json:"phone" validate:"required,max=20,phone"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`
	AddressLine string `json:"address_line" validate:"required,max=500"`
	City        string `json:"city" validate:"required,max=80"`
	State       string `json:"state" validate:"required,max=80"`
	Pincode     string `json:"pincode" validate:"required,max=10,alphanum"`
}
