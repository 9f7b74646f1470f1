package service

import (
	"context"
	"log/slog"

	"github.com/dukerupert/quartz/internal/inventory"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/google/uuid"
)

// StockLevel is a variant's stock as reported to admins.
type StockLevel struct {
	VariantID uuid.UUID `json:"variant_id"`
	Sku       string    `json:"sku"`
	Stock     int       `json:"stock"`
	Active    bool      `json:"active"`
}

// StockService is the admin's view of the inventory ledger.
type StockService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewStockService(store repository.Store, logger *slog.Logger) *StockService {
	return &StockService{store: store, logger: logger}
}

// SetStock overwrites a variant's stock after a stock take.
func (s *StockService) SetStock(ctx context.Context, variantID uuid.UUID, qty int) (*StockLevel, error) {
	var v repository.ProductVariant
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		v, err = inventory.Set(ctx, q, toPgUUID(variantID), qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock set", "variant_id", variantID, "sku", v.Sku, "stock", v.StockQuantity)
	return &StockLevel{
		VariantID: fromPgUUID(v.ID),
		Sku:       v.Sku,
		Stock:     int(v.StockQuantity),
		Active:    v.IsActive,
	}, nil
}
