package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
)

// CartService is the cart behaviour the handlers need.
type CartService interface {
	GetCartSummary(ctx context.Context, owner service.CartOwner) (*service.CartSummary, error)
	AddItem(ctx context.Context, owner service.CartOwner, variantID uuid.UUID, qty int) (*service.CartSummary, error)
	UpdateItemQuantity(ctx context.Context, owner service.CartOwner, variantID uuid.UUID, qty int) (*service.CartSummary, error)
	RemoveItem(ctx context.Context, owner service.CartOwner, variantID uuid.UUID) (*service.CartSummary, error)
	MergeOnLogin(ctx context.Context, userID uuid.UUID, sessionKey string) (*service.MergeResult, error)
}

// CartHandler handles all cart-related storefront routes
type CartHandler struct {
	carts CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	summary, err := h.carts.GetCartSummary(r.Context(), ownerFromRequest(r))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// Add handles POST /cart/items
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	variantID, err := parseBodyID("variant_id", req.VariantID)
	if err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}
	if req.Quantity < 1 {
		handler.ErrorResponse(w, r, domain.ErrInvalidQuantity)
		return
	}

	summary, err := h.carts.AddItem(r.Context(), ownerFromRequest(r), variantID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// Update handles PATCH /cart/items/{variantID}. A quantity of zero removes
// the line.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	variantID, err := service.ParseID("cart.update", "Cart item", r.PathValue("variantID"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req updateItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Quantity < 0 {
		handler.ErrorResponse(w, r, domain.ErrInvalidQuantity)
		return
	}

	summary, err := h.carts.UpdateItemQuantity(r.Context(), ownerFromRequest(r), variantID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// Remove handles DELETE /cart/items/{variantID}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	variantID, err := service.ParseID("cart.remove", "Cart item", r.PathValue("variantID"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary, err := h.carts.RemoveItem(r.Context(), ownerFromRequest(r), variantID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// Merge handles POST /cart/merge. It folds the session's guest cart into the
// signed-in user's cart; lines that no longer have stock are reported back.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner.UserID == uuid.Nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	result, err := h.carts.MergeOnLogin(r.Context(), owner.UserID, owner.SessionKey)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, result)
}
