package storefront

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/service"
	"github.com/google/uuid"
)

// mockCartService implements CartService for testing
type mockCartService struct {
	getCartSummaryFunc     func(ctx context.Context, owner service.CartOwner) (*service.CartSummary, error)
	addItemFunc            func(ctx context.Context, owner service.CartOwner, variantID uuid.UUID, qty int) (*service.CartSummary, error)
	updateItemQuantityFunc func(ctx context.Context, owner service.CartOwner, variantID uuid.UUID, qty int) (*service.CartSummary, error)
	removeItemFunc         func(ctx context.Context, owner service.CartOwner, variantID uuid.UUID) (*service.CartSummary, error)
	mergeOnLoginFunc       func(ctx context.Context, userID uuid.UUID, sessionKey string) (*service.MergeResult, error)
}

func (m *mockCartService) GetCartSummary(ctx context.Context, owner service.CartOwner) (*service.CartSummary, error) {
	if m.getCartSummaryFunc != nil {
		return m.getCartSummaryFunc(ctx, owner)
	}
	return &service.CartSummary{}, nil
}

func (m *mockCartService) AddItem(ctx context.Context, owner service.CartOwner, variantID uuid.UUID, qty int) (*service.CartSummary, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, owner, variantID, qty)
	}
	return &service.CartSummary{}, nil
}

func (m *mockCartService) UpdateItemQuantity(ctx context.Context, owner service.CartOwner, variantID uuid.UUID, qty int) (*service.CartSummary, error) {
	if m.updateItemQuantityFunc != nil {
		return m.updateItemQuantityFunc(ctx, owner, variantID, qty)
	}
	return &service.CartSummary{}, nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, owner service.CartOwner, variantID uuid.UUID) (*service.CartSummary, error) {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, owner, variantID)
	}
	return &service.CartSummary{}, nil
}

func (m *mockCartService) MergeOnLogin(ctx context.Context, userID uuid.UUID, sessionKey string) (*service.MergeResult, error) {
	if m.mergeOnLoginFunc != nil {
		return m.mergeOnLoginFunc(ctx, userID, sessionKey)
	}
	return &service.MergeResult{Summary: &service.CartSummary{}}, nil
}

// mockOrderService implements OrderPlacer, OrderReader and IntentCreator.
type mockOrderService struct {
	placeOrderFunc   func(ctx context.Context, params service.PlaceOrderParams) (*service.PlacedOrder, error)
	getOrderFunc     func(ctx context.Context, owner service.CartOwner, orderNumber string) (*service.OrderDetail, error)
	listOrdersFunc   func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]service.OrderSummary, error)
	createIntentFunc func(ctx context.Context, orderNumber string) (*service.IntentResponse, error)
	intentCalls      int
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, params service.PlaceOrderParams) (*service.PlacedOrder, error) {
	if m.placeOrderFunc != nil {
		return m.placeOrderFunc(ctx, params)
	}
	return &service.PlacedOrder{Order: &service.OrderDetail{OrderNumber: "QO1"}}, nil
}

func (m *mockOrderService) GetOrder(ctx context.Context, owner service.CartOwner, orderNumber string) (*service.OrderDetail, error) {
	if m.getOrderFunc != nil {
		return m.getOrderFunc(ctx, owner, orderNumber)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderService) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]service.OrderSummary, error) {
	if m.listOrdersFunc != nil {
		return m.listOrdersFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *mockOrderService) CreateIntent(ctx context.Context, orderNumber string) (*service.IntentResponse, error) {
	m.intentCalls++
	if m.createIntentFunc != nil {
		return m.createIntentFunc(ctx, orderNumber)
	}
	return &service.IntentResponse{OrderNumber: orderNumber, IntentID: "pi_1"}, nil
}

// mockVerifier implements CallbackVerifier
type mockVerifier struct {
	verifyCallbackFunc func(ctx context.Context, intentID, paymentID, signature string) (*service.VerifyResult, error)
}

func (m *mockVerifier) VerifyCallback(ctx context.Context, intentID, paymentID, signature string) (*service.VerifyResult, error) {
	return m.verifyCallbackFunc(ctx, intentID, paymentID, signature)
}

// mockAddressBook implements AddressBook
type mockAddressBook struct {
	listFunc       func(ctx context.Context, userID uuid.UUID) ([]service.Address, error)
	createFunc     func(ctx context.Context, userID uuid.UUID, fields address.Fields, makeDefault bool) (*service.Address, error)
	updateFunc     func(ctx context.Context, userID, id uuid.UUID, fields address.Fields) (*service.Address, error)
	deleteFunc     func(ctx context.Context, userID, id uuid.UUID) error
	setDefaultFunc func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockAddressBook) List(ctx context.Context, userID uuid.UUID) ([]service.Address, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockAddressBook) Create(ctx context.Context, userID uuid.UUID, fields address.Fields, makeDefault bool) (*service.Address, error) {
	return m.createFunc(ctx, userID, fields, makeDefault)
}

func (m *mockAddressBook) Update(ctx context.Context, userID, id uuid.UUID, fields address.Fields) (*service.Address, error) {
	return m.updateFunc(ctx, userID, id, fields)
}

func (m *mockAddressBook) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.deleteFunc(ctx, userID, id)
}

func (m *mockAddressBook) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	return m.setDefaultFunc(ctx, userID, id)
}

// newRequest builds a request carrying buyer, the way the identity
// middleware would.
func newRequest(method, target, body string, buyer domain.Buyer) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(domain.NewContextWithBuyer(req.Context(), buyer))
}

func guestBuyer() domain.Buyer {
	return domain.Buyer{SessionKey: "sess-1"}
}

func signedInBuyer() domain.Buyer {
	return domain.Buyer{UserID: uuid.MustParse("6f1b3c44-1d8c-4d7e-9b57-3a8f0c2d9e10"), SessionKey: "sess-1"}
}
