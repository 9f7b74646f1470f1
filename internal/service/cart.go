package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/inventory"
	"github.com/dukerupert/quartz/internal/pricing"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/shipping"
	"github.com/dukerupert/quartz/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// createCartAttempts bounds the get-or-create loop. A lost insert race is
// resolved by the next read, so two attempts are always enough in practice.
const createCartAttempts = 3

// CartOwner identifies whose cart to use. A signed-in user takes precedence
// over the anonymous session key.
type CartOwner struct {
	UserID     uuid.UUID
	SessionKey string
}

// OwnerOf builds a CartOwner from the request's buyer.
func OwnerOf(b domain.Buyer) CartOwner {
	return CartOwner{UserID: b.UserID, SessionKey: b.SessionKey}
}

func (o CartOwner) IsZero() bool {
	return o.UserID == uuid.Nil && o.SessionKey == ""
}

// CartLine is one cart line as shown to the buyer.
type CartLine struct {
	VariantID   uuid.UUID       `json:"variant_id"`
	ProductName string          `json:"product_name"`
	Sku         string          `json:"sku"`
	Variant     string          `json:"variant"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartSummary is a cart with its computed totals.
type CartSummary struct {
	CartID uuid.UUID      `json:"cart_id"`
	Lines  []CartLine     `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

// SkippedLine is a session cart line that could not be merged.
type SkippedLine struct {
	VariantID   uuid.UUID `json:"variant_id"`
	ProductName string    `json:"product_name"`
	Reason      string    `json:"reason"`
}

// MergeResult reports what a login merge did.
type MergeResult struct {
	Merged  int           `json:"merged"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
	Summary *CartSummary  `json:"cart"`
}

// CartService manages active carts.
type CartService struct {
	store      repository.Store
	policy     shipping.Policy
	maxPerLine int
	logger     *slog.Logger
}

func NewCartService(store repository.Store, policy shipping.Policy, maxPerLine int, logger *slog.Logger) *CartService {
	if maxPerLine <= 0 {
		maxPerLine = inventory.DefaultMaxPerLine
	}
	return &CartService{
		store:      store,
		policy:     policy,
		maxPerLine: maxPerLine,
		logger:     logger,
	}
}

// findCart returns the owner's active cart. With create set, a missing cart
// is created; a concurrent creator winning the race is resolved by re-reading.
func findCart(ctx context.Context, q repository.Querier, owner CartOwner, create bool) (repository.Cart, error) {
	if owner.IsZero() {
		return repository.Cart{}, domain.ErrNoCartOwner
	}

	for attempt := 0; attempt < createCartAttempts; attempt++ {
		var cart repository.Cart
		var err error
		if owner.UserID != uuid.Nil {
			cart, err = q.GetActiveCartByUser(ctx, toPgUUID(owner.UserID))
		} else {
			cart, err = q.GetActiveCartBySession(ctx, owner.SessionKey)
		}
		if err == nil {
			return cart, nil
		}
		if !repository.IsNotFound(err) {
			return repository.Cart{}, fmt.Errorf("failed to get cart: %w", err)
		}
		if !create {
			return repository.Cart{}, domain.ErrCartNotFound
		}

		if owner.UserID != uuid.Nil {
			cart, err = q.CreateUserCart(ctx, toPgUUID(owner.UserID))
		} else {
			cart, err = q.CreateSessionCart(ctx, owner.SessionKey)
		}
		if err == nil {
			return cart, nil
		}
		if !repository.IsNotFound(err) {
			return repository.Cart{}, fmt.Errorf("failed to create cart: %w", err)
		}
	}
	return repository.Cart{}, fmt.Errorf("failed to create cart after %d attempts", createCartAttempts)
}

// lockActiveCart takes the cart row lock and re-checks that the cart is
// still active, since a concurrent checkout may have converted it.
func lockActiveCart(ctx context.Context, q repository.Querier, cartID pgtype.UUID) (repository.Cart, error) {
	cart, err := q.LockCart(ctx, cartID)
	if err != nil {
		if repository.IsNotFound(err) {
			return repository.Cart{}, domain.ErrCartNotFound
		}
		return repository.Cart{}, fmt.Errorf("failed to lock cart: %w", err)
	}
	if cart.Status != string(domain.CartActive) {
		return repository.Cart{}, domain.ErrCartNotActive
	}
	return cart, nil
}

// GetOrCreateCart returns the owner's active cart, creating it if needed.
func (s *CartService) GetOrCreateCart(ctx context.Context, owner CartOwner) (repository.Cart, error) {
	return findCart(ctx, s.store, owner, true)
}

// GetCartSummary returns the owner's cart with totals. An owner without a
// cart gets an empty summary; no cart is created on read.
func (s *CartService) GetCartSummary(ctx context.Context, owner CartOwner) (*CartSummary, error) {
	cart, err := findCart(ctx, s.store, owner, false)
	if errors.Is(err, domain.ErrCartNotFound) {
		return s.summarize(nil, uuid.Nil), nil
	}
	if err != nil {
		return nil, err
	}
	return s.summaryOf(ctx, s.store, cart.ID)
}

// AddItem adds qty units of a variant to the owner's cart. An existing line
// grows to at most the per-line cap.
func (s *CartService) AddItem(ctx context.Context, owner CartOwner, variantID uuid.UUID, qty int) (*CartSummary, error) {
	var summary *CartSummary
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		cart, err := findCart(ctx, q, owner, true)
		if err != nil {
			return err
		}
		if _, err := lockActiveCart(ctx, q, cart.ID); err != nil {
			return err
		}
		if err := s.addLine(ctx, q, "cart.add", cart.ID, toPgUUID(variantID), qty); err != nil {
			return err
		}
		summary, err = s.summaryOf(ctx, q, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// UpdateItemQuantity sets a line's quantity. Zero or less removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, owner CartOwner, variantID uuid.UUID, qty int) (*CartSummary, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, owner, variantID)
	}

	const op = "cart.update"
	var summary *CartSummary
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		cart, err := findCart(ctx, q, owner, false)
		if err != nil {
			return err
		}
		if _, err := lockActiveCart(ctx, q, cart.ID); err != nil {
			return err
		}

		vid := toPgUUID(variantID)
		if _, err := q.GetCartItem(ctx, repository.GetCartItemParams{CartID: cart.ID, VariantID: vid}); err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrCartItemNotFound
			}
			return fmt.Errorf("failed to get cart item: %w", err)
		}

		level, err := variantLevel(ctx, q, vid)
		if err != nil {
			return err
		}
		qty, err := inventory.Validate(op, level, qty, s.maxPerLine)
		if err != nil {
			recordCartAdd(err)
			return err
		}
		if _, err := q.UpsertCartItem(ctx, repository.UpsertCartItemParams{
			CartID:    cart.ID,
			VariantID: vid,
			Quantity:  int32(qty),
			UnitPrice: level.Price,
		}); err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}

		summary, err = s.summaryOf(ctx, q, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RemoveItem deletes a line from the owner's cart.
func (s *CartService) RemoveItem(ctx context.Context, owner CartOwner, variantID uuid.UUID) (*CartSummary, error) {
	var summary *CartSummary
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		cart, err := findCart(ctx, q, owner, false)
		if err != nil {
			return err
		}
		if _, err := lockActiveCart(ctx, q, cart.ID); err != nil {
			return err
		}
		n, err := q.DeleteCartItem(ctx, repository.DeleteCartItemParams{CartID: cart.ID, VariantID: toPgUUID(variantID)})
		if err != nil {
			return fmt.Errorf("failed to delete cart item: %w", err)
		}
		if n == 0 {
			return domain.ErrCartItemNotFound
		}
		summary, err = s.summaryOf(ctx, q, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// MergeOnLogin replays the session cart's lines into the user's cart through
// the same validation as AddItem, then abandons the session cart. Lines that
// fail stock validation are skipped and reported rather than failing login.
func (s *CartService) MergeOnLogin(ctx context.Context, userID uuid.UUID, sessionKey string) (*MergeResult, error) {
	if userID == uuid.Nil || sessionKey == "" {
		return nil, domain.ErrNoCartOwner
	}

	const op = "cart.merge"
	result := &MergeResult{}
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		userCart, err := findCart(ctx, q, CartOwner{UserID: userID}, true)
		if err != nil {
			return err
		}

		sessionCart, err := findCart(ctx, q, CartOwner{SessionKey: sessionKey}, false)
		if errors.Is(err, domain.ErrCartNotFound) {
			result.Summary, err = s.summaryOf(ctx, q, userCart.ID)
			return err
		}
		if err != nil {
			return err
		}

		for _, id := range inventory.SortedIDs([]pgtype.UUID{userCart.ID, sessionCart.ID}) {
			if _, err := lockActiveCart(ctx, q, id); err != nil {
				return err
			}
		}

		lines, err := q.ListCartLines(ctx, sessionCart.ID)
		if err != nil {
			return fmt.Errorf("failed to list session cart: %w", err)
		}
		for _, line := range lines {
			err := s.addLine(ctx, q, op, userCart.ID, line.VariantID, int(line.Quantity))
			if err == nil {
				result.Merged++
				continue
			}
			if !isStockError(err) {
				return err
			}
			result.Skipped = append(result.Skipped, SkippedLine{
				VariantID:   fromPgUUID(line.VariantID),
				ProductName: line.ProductName,
				Reason:      domain.ErrorMessage(err),
			})
		}

		if err := q.UpdateCartStatus(ctx, repository.UpdateCartStatusParams{
			ID:     sessionCart.ID,
			Status: string(domain.CartAbandoned),
		}); err != nil {
			return fmt.Errorf("failed to abandon session cart: %w", err)
		}

		result.Summary, err = s.summaryOf(ctx, q, userCart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.CartsMerged.WithLabelValues("merged").Inc()
	}
	if len(result.Skipped) > 0 {
		s.logger.Info("cart merge skipped lines",
			"user_id", userID,
			"merged", result.Merged,
			"skipped", len(result.Skipped),
		)
	}
	return result, nil
}

// addLine applies the add-item rules: reject unavailable variants, clamp to
// [1, max], merge with an existing line up to max, and re-capture the price.
func (s *CartService) addLine(ctx context.Context, q repository.Querier, op string, cartID, variantID pgtype.UUID, requested int) error {
	level, err := variantLevel(ctx, q, variantID)
	if err != nil {
		return err
	}
	qty, err := inventory.Validate(op, level, requested, s.maxPerLine)
	if err != nil {
		recordCartAdd(err)
		return err
	}

	existing, err := q.GetCartItem(ctx, repository.GetCartItemParams{CartID: cartID, VariantID: variantID})
	switch {
	case err == nil:
		qty = min(int(existing.Quantity)+qty, s.maxPerLine)
		if qty > level.Stock {
			err := domain.InsufficientStock(op, level.ProductName, level.Stock)
			recordCartAdd(err)
			return err
		}
	case !repository.IsNotFound(err):
		return fmt.Errorf("failed to get cart item: %w", err)
	}

	if _, err := q.UpsertCartItem(ctx, repository.UpsertCartItemParams{
		CartID:    cartID,
		VariantID: variantID,
		Quantity:  int32(qty),
		UnitPrice: level.Price,
	}); err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	recordCartAdd(nil)
	return nil
}

func variantLevel(ctx context.Context, q repository.Querier, variantID pgtype.UUID) (inventory.Level, error) {
	v, err := q.GetVariantStock(ctx, variantID)
	if err != nil {
		if repository.IsNotFound(err) {
			return inventory.Level{}, domain.ErrVariantNotFound
		}
		return inventory.Level{}, fmt.Errorf("failed to get variant: %w", err)
	}
	return inventory.LevelOf(v), nil
}

func (s *CartService) summaryOf(ctx context.Context, q repository.Querier, cartID pgtype.UUID) (*CartSummary, error) {
	rows, err := q.ListCartLines(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	return s.summarize(rows, fromPgUUID(cartID)), nil
}

func (s *CartService) summarize(rows []repository.CartLine, cartID uuid.UUID) *CartSummary {
	lines := make([]CartLine, 0, len(rows))
	priced := make([]pricing.Line, 0, len(rows))
	for _, r := range rows {
		pl := pricing.Line{UnitPrice: r.UnitPrice, Quantity: int(r.Quantity)}
		priced = append(priced, pl)
		lines = append(lines, CartLine{
			VariantID:   fromPgUUID(r.VariantID),
			ProductName: r.ProductName,
			Sku:         r.Sku,
			Variant:     inventory.Descriptor(r.Size, r.Color),
			Quantity:    int(r.Quantity),
			UnitPrice:   r.UnitPrice,
			LineTotal:   pl.LineTotal(),
		})
	}
	return &CartSummary{
		CartID: cartID,
		Lines:  lines,
		Totals: pricing.Calculate(priced, s.policy),
	}
}

func isStockError(err error) bool {
	return errors.Is(err, domain.ErrOutOfStock) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrVariantNotFound)
}

func recordCartAdd(err error) {
	outcome := "added"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOutOfStock):
		outcome = "out_of_stock"
		inventory.RecordConflict("cart")
	case errors.Is(err, domain.ErrInsufficientStock):
		outcome = "insufficient"
		inventory.RecordConflict("cart")
	default:
		return
	}
	if telemetry.Business != nil {
		telemetry.Business.CartItemsAdded.WithLabelValues(outcome).Inc()
	}
}
