package routes

import (
	"github.com/dukerupert/quartz/internal/middleware"
	"github.com/dukerupert/quartz/internal/router"
)

// RegisterAdminRoutes registers the operator API under /admin. Every route
// requires the X-Admin-Token header.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	admin := r.Group(middleware.AdminToken(deps.Token))

	admin.Patch("/admin/orders/{orderNumber}/status", deps.OrderStatus.ServeHTTP)
	admin.Put("/admin/variants/{id}/stock", deps.Stock.ServeHTTP)
}
