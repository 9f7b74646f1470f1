package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
)

// OrderReader loads orders for their owner.
type OrderReader interface {
	GetOrder(ctx context.Context, owner service.CartOwner, orderNumber string) (*service.OrderDetail, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]service.OrderSummary, error)
}

// IntentCreator starts or resumes an online payment for an order.
type IntentCreator interface {
	CreateIntent(ctx context.Context, orderNumber string) (*service.IntentResponse, error)
}

// OrderHandler serves order history, order detail and payment intents.
type OrderHandler struct {
	orders   OrderReader
	payments IntentCreator
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderReader, payments IntentCreator) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments}
}

// List handles GET /orders?limit=&offset=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner.UserID == uuid.Nil {
		handler.UnauthorizedResponse(w, r)
		return
	}
	limit, err := handler.QueryInt(r, "limit", 0)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	offset, err := handler.QueryInt(r, "offset", 0)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), owner.UserID, limit, offset)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if orders == nil {
		orders = []service.OrderSummary{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Show handles GET /orders/{orderNumber}
func (h *OrderHandler) Show(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), ownerFromRequest(r), r.PathValue("orderNumber"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}

// CreateIntent handles POST /orders/{orderNumber}/payment-intent. The order
// is loaded through the owner check first so buyers can only pay for their
// own orders.
func (h *OrderHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), ownerFromRequest(r), r.PathValue("orderNumber"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), order.OrderNumber)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, intent)
}
