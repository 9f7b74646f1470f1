package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/billing"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/repository"
	"github.com/dukerupert/quartz/internal/repository/repotest"
	"github.com/dukerupert/quartz/internal/shipping"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testCallbackSecret = "test-callback-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires every service over one in-memory store.
type testEnv struct {
	store     *repotest.Store
	provider  *billing.MockProvider
	verifier  *billing.CallbackVerifier
	carts     *CartService
	orders    *OrderService
	payments  *PaymentService
	addresses *AddressService
}

func newTestEnv(t *testing.T, drift domain.PriceDriftPolicy) *testEnv {
	t.Helper()
	store := repotest.NewStore()
	logger := testLogger()
	policy := shipping.DefaultFlatRatePolicy()
	validator := &address.MockValidator{}
	provider := billing.NewMockProvider("whsec_test")
	verifier := billing.NewCallbackVerifier(testCallbackSecret)

	payments := NewPaymentService(store, provider, verifier, "inr", logger)
	return &testEnv{
		store:     store,
		provider:  provider,
		verifier:  verifier,
		carts:     NewCartService(store, policy, 10, logger),
		orders:    NewOrderService(store, policy, validator, payments, OrderConfig{PriceDrift: drift, Currency: "inr"}, logger),
		payments:  payments,
		addresses: NewAddressService(store, validator, logger),
	}
}

func guest() CartOwner {
	return CartOwner{SessionKey: "sess-" + uuid.NewString()}
}

func member() CartOwner {
	return CartOwner{UserID: uuid.New(), SessionKey: "sess-" + uuid.NewString()}
}

func shippingFields() *address.Fields {
	return &address.Fields{
		FullName:    "Asha Rao",
		Phone:       "+91 98765 43210",
		Email:       "asha@example.com",
		AddressLine: "12 MG Road",
		City:        "Bengaluru",
		State:       "Karnataka",
		Pincode:     "560001",
	}
}

// seedVariant adds a product at price with one variant holding stock units.
func (e *testEnv) seedVariant(t *testing.T, name, price string, stock int) repository.ProductVariant {
	t.Helper()
	p := e.store.AddProduct(name, price)
	return e.store.AddVariant(p, name+"-SKU", "7", "Gold", stock)
}

func (e *testEnv) add(t *testing.T, owner CartOwner, v repository.ProductVariant, qty int) *CartSummary {
	t.Helper()
	summary, err := e.carts.AddItem(context.Background(), owner, fromPgUUID(v.ID), qty)
	require.NoError(t, err)
	return summary
}

func (e *testEnv) place(t *testing.T, owner CartOwner, method domain.PaymentMethod) *PlacedOrder {
	t.Helper()
	placed, err := e.orders.PlaceOrder(context.Background(), PlaceOrderParams{
		Owner:         owner,
		Address:       shippingFields(),
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return placed
}
