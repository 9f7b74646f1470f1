// Package storefront serves the buyer-facing JSON API: cart, checkout,
// orders, payments and the address book.
package storefront

import (
	"net/http"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
)

// ownerFromRequest returns the cart owner set by the identity middleware.
func ownerFromRequest(r *http.Request) service.CartOwner {
	buyer, _ := domain.BuyerFromContext(r.Context())
	return service.OwnerOf(buyer)
}

// parseBodyID parses an id supplied in a request body. Unlike path ids a
// malformed value here is the client's mistake, so it is a validation error.
func parseBodyID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, domain.NewValidationError("", field, "must be a valid id")
	}
	return id, nil
}
