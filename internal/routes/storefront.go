package routes

import (
	"github.com/dukerupert/quartz/internal/middleware"
	"github.com/dukerupert/quartz/internal/router"
)

// RegisterStorefrontRoutes registers all buyer-facing API routes.
//
// r must already carry the identity middleware: every handler reads the
// buyer (session key and optional user id) from the request context.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	small := middleware.MaxBodySize(middleware.SmallMaxBodySize)

	// Cart
	r.Get("/cart", deps.Cart.View)
	r.Post("/cart/items", deps.Cart.Add, small)
	r.Patch("/cart/items/{variantID}", deps.Cart.Update, small)
	r.Delete("/cart/items/{variantID}", deps.Cart.Remove)
	r.Post("/cart/merge", deps.Cart.Merge, middleware.RequireUser)

	// Checkout and payment
	r.Post("/checkout", deps.Checkout.ServeHTTP, deps.PaymentLimit, small, deps.Idempotency)
	r.Post("/orders/{orderNumber}/payment-intent", deps.Orders.CreateIntent, deps.PaymentLimit)
	r.Post("/payments/verify", deps.Payments.Verify, deps.PaymentLimit, small)

	// Orders. Guests may view orders placed from their session.
	r.Get("/orders/{orderNumber}", deps.Orders.Show)

	// Account routes (require a signed-in buyer)
	account := r.Group(middleware.RequireUser)
	account.Get("/orders", deps.Orders.List)
	account.Get("/account/addresses", deps.Address.List)
	account.Post("/account/addresses", deps.Address.Create, small)
	account.Put("/account/addresses/{id}", deps.Address.Update, small)
	account.Delete("/account/addresses/{id}", deps.Address.Delete)
	account.Post("/account/addresses/{id}/default", deps.Address.SetDefault)
}
