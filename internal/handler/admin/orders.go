// Package admin serves the operator API: order status changes and stock
// takes. Routes are guarded by the admin token middleware.
package admin

import (
	"context"
	"net/http"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/middleware"
	"github.com/dukerupert/quartz/internal/service"
)

// OrderStatusUpdater moves orders through their lifecycle.
type OrderStatusUpdater interface {
	UpdateStatus(ctx context.Context, orderNumber string, next domain.OrderStatus) (*service.OrderDetail, error)
}

// OrderStatusHandler handles PATCH /admin/orders/{orderNumber}/status
type OrderStatusHandler struct {
	orders OrderStatusUpdater
}

// NewOrderStatusHandler creates a new order status handler
func NewOrderStatusHandler(orders OrderStatusUpdater) *OrderStatusHandler {
	return &OrderStatusHandler{orders: orders}
}

type statusRequest struct {
	Status string `json:"status"`
}

// ServeHTTP applies the transition. Cancelling restocks the order's units.
func (h *OrderStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	orderNumber := r.PathValue("orderNumber")
	order, err := h.orders.UpdateStatus(r.Context(), orderNumber, next)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("admin updated order status",
		"order_number", orderNumber,
		"status", next,
	)
	handler.WriteJSON(w, http.StatusOK, order)
}
