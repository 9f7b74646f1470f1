package admin

import (
	"context"
	"net/http"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/handler"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
)

// StockSetter records stock takes.
type StockSetter interface {
	SetStock(ctx context.Context, variantID uuid.UUID, qty int) (*service.StockLevel, error)
}

// StockHandler handles PUT /admin/variants/{id}/stock
type StockHandler struct {
	stock StockSetter
}

// NewStockHandler creates a new stock handler
func NewStockHandler(stock StockSetter) *StockHandler {
	return &StockHandler{stock: stock}
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

func (h *StockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	variantID, err := service.ParseID("admin.set_stock", "Variant", r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req stockRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Stock == nil {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("admin.set_stock", "stock", "is required"))
		return
	}

	level, err := h.stock.SetStock(r.Context(), variantID, *req.Stock)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, level)
}
