package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
)

// AddressBook manages a signed-in buyer's saved addresses.
type AddressBook interface {
	List(ctx context.Context, userID uuid.UUID) ([]service.Address, error)
	Create(ctx context.Context, userID uuid.UUID, fields address.Fields, makeDefault bool) (*service.Address, error)
	Update(ctx context.Context, userID, id uuid.UUID, fields address.Fields) (*service.Address, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
}

// AddressHandler serves /account/addresses. Every route requires a
// signed-in buyer.
type AddressHandler struct {
	addresses AddressBook
}

// NewAddressHandler creates a new address book handler
func NewAddressHandler(addresses AddressBook) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

type createAddressRequest struct {
	address.Fields
	IsDefault bool `json:"is_default"`
}

// List handles GET /account/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.addresses.List(r.Context(), ownerFromRequest(r).UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []service.Address{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"addresses": list})
}

// Create handles POST /account/addresses
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAddressRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	created, err := h.addresses.Create(r.Context(), ownerFromRequest(r).UserID, req.Fields, req.IsDefault)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /account/addresses/{id}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID("address.update", "Address", r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var fields address.Fields
	if err := handler.DecodeJSON(r, &fields); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	updated, err := h.addresses.Update(r.Context(), ownerFromRequest(r).UserID, id, fields)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /account/addresses/{id}
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID("address.delete", "Address", r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.addresses.Delete(r.Context(), ownerFromRequest(r).UserID, id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefault handles POST /account/addresses/{id}/default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID("address.set_default", "Address", r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.addresses.SetDefault(r.Context(), ownerFromRequest(r).UserID, id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
