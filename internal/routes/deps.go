package routes

import (
	"net/http"

	"github.com/dukerupert/quartz/internal/handler/admin"
	"github.com/dukerupert/quartz/internal/handler/storefront"
	"github.com/dukerupert/quartz/internal/router"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	Cart     *storefront.CartHandler
	Checkout *storefront.CheckoutHandler
	Orders   *storefront.OrderHandler
	Payments *storefront.PaymentHandler
	Address  *storefront.AddressHandler

	// Idempotency replays retried checkout requests that carry an
	// Idempotency-Key header.
	Idempotency router.Middleware

	// PaymentLimit throttles checkout and payment calls per buyer.
	PaymentLimit router.Middleware
}

// AdminDeps contains dependencies for admin routes
type AdminDeps struct {
	// Token is the shared operator token. Empty disables every admin route.
	Token string

	OrderStatus *admin.OrderStatusHandler
	Stock       *admin.StockHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains the operational endpoints
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
