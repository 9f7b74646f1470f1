package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_GetOrCreateCart(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := guest()

	first, err := env.carts.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	second, err := env.carts.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = env.carts.GetOrCreateCart(ctx, CartOwner{})
	assert.ErrorIs(t, err, domain.ErrNoCartOwner)
}

func TestCartService_GetOrCreateCart_UserTakesPrecedence(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := member()

	cart, err := env.carts.GetOrCreateCart(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, cart.UserID.Valid)
	assert.False(t, cart.SessionKey.Valid)
}

func TestCartService_GetCartSummary_NoCart(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)

	summary, err := env.carts.GetCartSummary(context.Background(), guest())
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, summary.CartID)
	assert.Empty(t, summary.Lines)
	assert.True(t, summary.Totals.Subtotal.IsZero())
}

func TestCartService_AddItem(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)

	summary := env.add(t, owner, v, 2)

	require.Len(t, summary.Lines, 1)
	line := summary.Lines[0]
	assert.Equal(t, "Ruby Ring", line.ProductName)
	assert.Equal(t, "7 Gold", line.Variant)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, decimal.RequireFromString("1000").Equal(line.LineTotal))
	assert.True(t, decimal.RequireFromString("1000").Equal(summary.Totals.Total))
	assert.True(t, summary.Totals.FreeShipping)
}

func TestCartService_AddItem_MergesAndCaps(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Pearl Studs", "100.00", 50)

	env.add(t, owner, v, 6)
	summary := env.add(t, owner, v, 6)

	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 10, summary.Lines[0].Quantity, "merged line is capped at the per-line maximum")
}

func TestCartService_AddItem_RecapturesPrice(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Opal Pendant", "300.00", 5)

	env.add(t, owner, v, 1)
	env.store.SetProductPrice(v.ProductID, "350.00")
	summary := env.add(t, owner, v, 1)

	assert.True(t, decimal.RequireFromString("350").Equal(summary.Lines[0].UnitPrice))
	assert.Equal(t, 2, summary.Lines[0].Quantity)
}

func TestCartService_AddItem_StockErrors(t *testing.T) {
	tests := []struct {
		name    string
		stock   int
		active  bool
		already int
		qty     int
		wantErr error
	}{
		{"zero stock", 0, true, 0, 1, domain.ErrOutOfStock},
		{"inactive variant", 5, false, 0, 1, domain.ErrOutOfStock},
		{"exceeds stock", 2, true, 0, 3, domain.ErrInsufficientStock},
		{"merged exceeds stock", 3, true, 2, 2, domain.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, domain.PriceDriftIgnore)
			owner := guest()
			v := env.seedVariant(t, "Ruby Ring", "500.00", tt.stock)
			if tt.already > 0 {
				env.add(t, owner, v, tt.already)
			}
			env.store.SetVariantActive(v.ID, tt.active)

			_, err := env.carts.AddItem(context.Background(), owner, fromPgUUID(v.ID), tt.qty)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, domain.ErrorMessage(err), "Ruby Ring")
		})
	}
}

func TestCartService_AddItem_UnknownVariant(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)

	_, err := env.carts.AddItem(context.Background(), guest(), uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	summary, err := env.carts.UpdateItemQuantity(ctx, owner, fromPgUUID(v.ID), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Lines[0].Quantity)

	_, err = env.carts.UpdateItemQuantity(ctx, owner, fromPgUUID(v.ID), 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	summary, err = env.carts.UpdateItemQuantity(ctx, owner, fromPgUUID(v.ID), 0)
	require.NoError(t, err)
	assert.Empty(t, summary.Lines, "zero quantity removes the line")
}

func TestCartService_UpdateItemQuantity_MissingLine(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	other := env.seedVariant(t, "Pearl Studs", "100.00", 5)
	env.add(t, owner, v, 1)

	_, err := env.carts.UpdateItemQuantity(context.Background(), owner, fromPgUUID(other.ID), 2)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
}

func TestCartService_RemoveItem(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	summary, err := env.carts.RemoveItem(ctx, owner, fromPgUUID(v.ID))
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)

	_, err = env.carts.RemoveItem(ctx, owner, fromPgUUID(v.ID))
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)

	_, err = env.carts.RemoveItem(ctx, guest(), fromPgUUID(v.ID))
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestCartService_MergeOnLogin(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	userID := uuid.New()
	sessionKey := "sess-merge"

	ring := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	studs := env.seedVariant(t, "Pearl Studs", "100.00", 2)
	bangle := env.seedVariant(t, "Gold Bangle", "900.00", 4)

	env.add(t, CartOwner{UserID: userID}, ring, 2)
	sessionCart := env.add(t, CartOwner{SessionKey: sessionKey}, ring, 2)
	env.add(t, CartOwner{SessionKey: sessionKey}, studs, 2)
	env.add(t, CartOwner{SessionKey: sessionKey}, bangle, 1)

	// Studs sell out before the buyer signs in.
	env.store.SetStock(studs.ID, 0)

	result, err := env.carts.MergeOnLogin(ctx, userID, sessionKey)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Merged)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "Pearl Studs", result.Skipped[0].ProductName)

	quantities := map[string]int{}
	for _, l := range result.Summary.Lines {
		quantities[l.ProductName] = l.Quantity
	}
	assert.Equal(t, map[string]int{"Ruby Ring": 4, "Gold Bangle": 1}, quantities)

	cart, ok := env.store.Cart(toPgUUID(sessionCart.CartID))
	require.True(t, ok)
	assert.Equal(t, string(domain.CartAbandoned), cart.Status)
}

func TestCartService_MergeOnLogin_NoSessionCart(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	userID := uuid.New()

	result, err := env.carts.MergeOnLogin(context.Background(), userID, "sess-none")
	require.NoError(t, err)
	assert.Zero(t, result.Merged)
	assert.Empty(t, result.Summary.Lines)
	assert.NotEqual(t, uuid.Nil, result.Summary.CartID)
}

func TestCartService_MergeOnLogin_RequiresBothOwners(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)

	_, err := env.carts.MergeOnLogin(context.Background(), uuid.Nil, "sess")
	assert.ErrorIs(t, err, domain.ErrNoCartOwner)
	_, err = env.carts.MergeOnLogin(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, domain.ErrNoCartOwner)
}

func TestCartService_MergeOnLogin_InfraErrorRollsBack(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	userID := uuid.New()
	ring := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	sessionCart := env.add(t, CartOwner{SessionKey: "sess"}, ring, 1)

	boom := errors.New("connection reset")
	env.store.Fail("UpdateCartStatus", boom)

	_, err := env.carts.MergeOnLogin(context.Background(), userID, "sess")
	assert.ErrorIs(t, err, boom)

	cart, ok := env.store.Cart(toPgUUID(sessionCart.CartID))
	require.True(t, ok)
	assert.Equal(t, string(domain.CartActive), cart.Status)
}

func TestCartService_CheckedOutCartIsReplaced(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)

	first := env.add(t, owner, v, 1)
	env.place(t, owner, domain.PaymentCOD)

	second := env.add(t, owner, v, 1)
	assert.NotEqual(t, first.CartID, second.CartID)
}
