package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/middleware"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
)

// OrderPlacer turns the buyer's cart into an order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, params service.PlaceOrderParams) (*service.PlacedOrder, error)
}

// CheckoutHandler handles POST /checkout
type CheckoutHandler struct {
	orders OrderPlacer
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(orders OrderPlacer) *CheckoutHandler {
	return &CheckoutHandler{orders: orders}
}

// checkoutRequest carries either a saved address id (signed-in buyers) or a
// full address.
type checkoutRequest struct {
	AddressID     string          `json:"address_id"`
	Address       *address.Fields `json:"address"`
	PaymentMethod string          `json:"payment_method"`
}

func (req checkoutRequest) params(owner service.CartOwner) (service.PlaceOrderParams, error) {
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return service.PlaceOrderParams{}, err
	}
	params := service.PlaceOrderParams{
		Owner:         owner,
		Address:       req.Address,
		PaymentMethod: method,
	}
	switch {
	case req.AddressID != "" && req.Address != nil:
		return params, domain.Invalid("", "Send either address_id or address, not both")
	case req.AddressID != "":
		if owner.UserID == uuid.Nil {
			return params, domain.ErrAddressNotFound
		}
		id, err := parseBodyID("address_id", req.AddressID)
		if err != nil {
			return params, err
		}
		params.SavedAddressID = id
	case req.Address == nil:
		return params, domain.ErrAddressRequired
	}
	return params, nil
}

// ServeHTTP places the order. The response tells the client what to do next:
// show the confirmation, hand off to messaging, or start the gateway payment.
func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	owner := ownerFromRequest(r)
	params, err := req.params(owner)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	placed, err := h.orders.PlaceOrder(r.Context(), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("checkout completed",
		"order_number", placed.Order.OrderNumber,
		"payment_method", params.PaymentMethod,
		"next_action", placed.Action,
	)
	handler.WriteJSON(w, http.StatusCreated, placed)
}
