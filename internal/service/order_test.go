package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dukerupert/quartz/internal/address"
	"github.com/dukerupert/quartz/internal/billing"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/jobs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPlaceOrder_FreeShippingAtThreshold(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 2)

	placed := env.place(t, owner, domain.PaymentCOD)
	order := placed.Order

	assert.True(t, dec("1000.00").Equal(order.Subtotal))
	assert.True(t, order.Shipping.IsZero())
	assert.True(t, dec("1000.00").Equal(order.Total))
	assert.Equal(t, string(domain.OrderPlaced), order.Status)
	assert.Equal(t, domain.ActionNone, placed.Action)
	assert.True(t, order.Guest)
	assert.Regexp(t, `^QO[A-Z0-9]{8}$`, order.OrderNumber)
	assert.Equal(t, 3, env.store.StockOf(v.ID))
}

func TestPlaceOrder_FlatFeeBelowThreshold(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := member()
	v := env.seedVariant(t, "Silver Chain", "100.00", 5)
	env.add(t, owner, v, 1)

	order := env.place(t, owner, domain.PaymentMessage).Order

	assert.True(t, dec("100.00").Equal(order.Subtotal))
	assert.True(t, dec("50.00").Equal(order.Shipping))
	assert.True(t, dec("150.00").Equal(order.Total))
	assert.False(t, order.Guest)
}

func TestPlaceOrder_WritesOrderItemsPaymentAndClosesCart(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	ring := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	studs := env.seedVariant(t, "Pearl Studs", "120.50", 5)
	summary := env.add(t, owner, ring, 1)
	env.add(t, owner, studs, 3)

	placed := env.place(t, owner, domain.PaymentCOD)
	order := placed.Order

	require.Len(t, order.Items, 2)
	assert.Equal(t, "Ruby Ring", order.Items[0].ProductName)
	assert.Equal(t, "7 Gold", order.Items[0].Variant)
	assert.True(t, dec("361.50").Equal(order.Items[1].LineTotal))

	require.NotNil(t, order.Payment)
	assert.Equal(t, "cod", order.Payment.Method)
	assert.Equal(t, "pending", order.Payment.Status)
	assert.Equal(t, "911.50", order.Payment.Amount)

	assert.Equal(t, "Asha Rao", order.Address.FullName)

	cart, ok := env.store.Cart(toPgUUID(summary.CartID))
	require.True(t, ok)
	assert.Equal(t, string(domain.CartOrdered), cart.Status)

	after, err := env.carts.GetCartSummary(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, after.Lines)
}

func TestPlaceOrder_TotalsInvariant(t *testing.T) {
	prices := []string{"0.01", "49.99", "333.33", "998.99", "999.00", "1500.75"}
	for _, price := range prices {
		for qty := 1; qty <= 3; qty++ {
			t.Run(fmt.Sprintf("%s x%d", price, qty), func(t *testing.T) {
				env := newTestEnv(t, domain.PriceDriftIgnore)
				owner := guest()
				v := env.seedVariant(t, "Charm", price, 10)
				env.add(t, owner, v, qty)

				order := env.place(t, owner, domain.PaymentCOD).Order

				assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Shipping)))
				free := order.Subtotal.GreaterThanOrEqual(dec("999"))
				assert.Equal(t, free, order.Shipping.IsZero())
			})
		}
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := guest()

	_, err := env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: owner, Address: shippingFields(), PaymentMethod: domain.PaymentCOD})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)
	_, err = env.carts.RemoveItem(ctx, owner, fromPgUUID(v.ID))
	require.NoError(t, err)

	_, err = env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: owner, Address: shippingFields(), PaymentMethod: domain.PaymentCOD})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Empty(t, env.store.Orders())
}

func TestPlaceOrder_InputValidation(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()

	_, err := env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: guest(), Address: shippingFields(), PaymentMethod: "bitcoin"})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)

	_, err = env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: guest(), PaymentMethod: domain.PaymentCOD})
	assert.ErrorIs(t, err, domain.ErrAddressRequired)

	_, err = env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: guest(), SavedAddressID: uuid.New(), PaymentMethod: domain.PaymentCOD})
	assert.ErrorIs(t, err, domain.ErrAddressNotFound, "guests have no saved addresses")
}

func TestPlaceOrder_InvalidRawAddress(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	env.orders.validator = address.NewBasicValidator()
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	fields := shippingFields()
	fields.Pincode = ""
	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrderParams{Owner: owner, Address: fields, PaymentMethod: domain.PaymentCOD})

	require.True(t, domain.IsValidationError(err), "got %v", err)
	assert.Contains(t, domain.GetValidationFields(err), "pincode")
	assert.Equal(t, 5, env.store.StockOf(v.ID))
}

func TestPlaceOrder_AtomicOnStockFailure(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	ring := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	studs := env.seedVariant(t, "Pearl Studs", "100.00", 5)
	summary := env.add(t, owner, ring, 2)
	env.add(t, owner, studs, 3)
	addressesBefore := env.store.AddressCount()

	// Another buyer takes most of the studs after they were carted.
	env.store.SetStock(studs.ID, 1)

	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrderParams{
		Owner:         owner,
		Address:       shippingFields(),
		PaymentMethod: domain.PaymentCOD,
	})

	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "Only 1 of Pearl Studs left in stock", domain.ErrorMessage(err))
	assert.Empty(t, env.store.Orders())
	assert.Zero(t, env.store.OrderItemCount())
	assert.Zero(t, env.store.PaymentCount())
	assert.Equal(t, addressesBefore, env.store.AddressCount())
	assert.Equal(t, 5, env.store.StockOf(ring.ID))
	assert.Equal(t, 1, env.store.StockOf(studs.ID))

	cart, ok := env.store.Cart(toPgUUID(summary.CartID))
	require.True(t, ok)
	assert.Equal(t, string(domain.CartActive), cart.Status)
}

func TestPlaceOrder_AtomicOnInfrastructureFailure(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 2)

	boom := errors.New("connection reset by peer")
	env.store.Fail("CreatePayment", boom)

	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrderParams{
		Owner:         owner,
		Address:       shippingFields(),
		PaymentMethod: domain.PaymentCOD,
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Empty(t, env.store.Orders())
	assert.Zero(t, env.store.OrderItemCount())
	assert.Equal(t, 5, env.store.StockOf(v.ID))
	assert.Empty(t, env.store.Jobs())
}

func TestPlaceOrder_InactiveVariantAtCheckout(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)
	env.store.SetVariantActive(v.ID, false)

	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrderParams{Owner: owner, Address: shippingFields(), PaymentMethod: domain.PaymentCOD})
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	v := env.seedVariant(t, "One-off Brooch", "2500.00", 1)
	buyers := []CartOwner{guest(), guest()}
	for _, b := range buyers {
		env.add(t, b, v, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b CartOwner) {
			defer wg.Done()
			_, errs[i] = env.orders.PlaceOrder(context.Background(), PlaceOrderParams{
				Owner:         b,
				Address:       shippingFields(),
				PaymentMethod: domain.PaymentCOD,
			})
		}(i, b)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, env.store.StockOf(v.ID))
	assert.Len(t, env.store.Orders(), 1)
}

func TestPlaceOrder_NeverOversells(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	const stock = 5
	v := env.seedVariant(t, "Charm", "100.00", stock)

	buyers := make([]CartOwner, 8)
	for i := range buyers {
		buyers[i] = guest()
		env.add(t, buyers[i], v, 1+i%3)
	}

	var wg sync.WaitGroup
	for _, b := range buyers {
		wg.Add(1)
		go func(b CartOwner) {
			defer wg.Done()
			_, _ = env.orders.PlaceOrder(context.Background(), PlaceOrderParams{
				Owner:         b,
				Address:       shippingFields(),
				PaymentMethod: domain.PaymentCOD,
			})
		}(b)
	}
	wg.Wait()

	sold := 0
	for _, o := range env.store.Orders() {
		detail, err := env.orders.loadDetail(context.Background(), env.store, o)
		require.NoError(t, err)
		for _, it := range detail.Items {
			sold += it.Quantity
		}
	}
	assert.LessOrEqual(t, sold, stock)
	assert.Equal(t, stock-sold, env.store.StockOf(v.ID))
	assert.GreaterOrEqual(t, env.store.StockOf(v.ID), 0)
}

func TestPlaceOrder_LocksVariantsInAscendingOrder(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	for i := 0; i < 4; i++ {
		env.add(t, owner, env.seedVariant(t, fmt.Sprintf("Charm %d", i), "100.00", 5), 1)
	}

	env.place(t, owner, domain.PaymentCOD)

	require.NotEmpty(t, env.store.LockLog)
	ids := env.store.LockLog[len(env.store.LockLog)-1]
	require.Len(t, ids, 4)
	for i := 1; i < len(ids); i++ {
		assert.Negative(t, compareUUID(ids[i-1].Bytes, ids[i].Bytes), "lock order must ascend")
	}
}

func compareUUID(a, b [16]byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func TestPlaceOrder_SavedAddressSnapshot(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := member()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	saved, err := env.addresses.Create(ctx, owner.UserID, *shippingFields(), false)
	require.NoError(t, err)

	placed, err := env.orders.PlaceOrder(ctx, PlaceOrderParams{
		Owner:          owner,
		SavedAddressID: saved.ID,
		PaymentMethod:  domain.PaymentCOD,
	})
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, placed.Order.Address.ID, "order references a snapshot, not the saved row")

	edited := *shippingFields()
	edited.AddressLine = "99 Brigade Road"
	_, err = env.addresses.Update(ctx, owner.UserID, saved.ID, edited)
	require.NoError(t, err)

	order, err := env.orders.GetOrder(ctx, owner, placed.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "12 MG Road", order.Address.AddressLine)

	saved2, err := env.addresses.List(ctx, owner.UserID)
	require.NoError(t, err)
	require.Len(t, saved2, 1, "snapshots never show up in the address book")
}

func TestPlaceOrder_DeletedSavedAddressKeepsOrderAddress(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := member()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	saved, err := env.addresses.Create(ctx, owner.UserID, *shippingFields(), true)
	require.NoError(t, err)
	placed, err := env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: owner, SavedAddressID: saved.ID, PaymentMethod: domain.PaymentCOD})
	require.NoError(t, err)

	require.NoError(t, env.addresses.Delete(ctx, owner.UserID, saved.ID))

	order, err := env.orders.GetOrder(ctx, owner, placed.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", order.Address.FullName)
	assert.Equal(t, "12 MG Road", order.Address.AddressLine)

	// The deleted address can no longer be selected.
	env.add(t, owner, v, 1)
	_, err = env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: owner, SavedAddressID: saved.ID, PaymentMethod: domain.PaymentCOD})
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
}

func TestPlaceOrder_ForeignSavedAddress(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := member()
	stranger := member()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	theirs, err := env.addresses.Create(ctx, stranger.UserID, *shippingFields(), false)
	require.NoError(t, err)

	_, err = env.orders.PlaceOrder(ctx, PlaceOrderParams{Owner: owner, SavedAddressID: theirs.ID, PaymentMethod: domain.PaymentCOD})
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	assert.Equal(t, 5, env.store.StockOf(v.ID))
}

func TestPlaceOrder_OrderNumberCollisionRetries(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	v := env.seedVariant(t, "Ruby Ring", "500.00", 10)

	numbers := []string{"QOTAKEN001", "QOTAKEN001", "QOTAKEN001", "QOFRESH002"}
	calls := 0
	env.orders.newNumber = func(prefix string) (string, error) {
		n := numbers[calls]
		calls++
		return n, nil
	}

	first := guest()
	env.add(t, first, v, 1)
	assert.Equal(t, "QOTAKEN001", env.place(t, first, domain.PaymentCOD).Order.OrderNumber)

	second := guest()
	env.add(t, second, v, 1)
	assert.Equal(t, "QOFRESH002", env.place(t, second, domain.PaymentCOD).Order.OrderNumber)
	assert.Equal(t, 4, calls)
}

func TestPlaceOrder_OrderNumberCollisionExhausted(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	v := env.seedVariant(t, "Ruby Ring", "500.00", 10)
	env.orders.newNumber = func(prefix string) (string, error) { return prefix + "SAMESAME", nil }

	first := guest()
	env.add(t, first, v, 1)
	env.place(t, first, domain.PaymentCOD)

	second := guest()
	env.add(t, second, v, 1)
	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrderParams{Owner: second, Address: shippingFields(), PaymentMethod: domain.PaymentCOD})

	assert.ErrorIs(t, err, domain.ErrOrderNumberCollision)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Len(t, env.store.Orders(), 1)
	assert.Equal(t, 9, env.store.StockOf(v.ID))
}

func TestPlaceOrder_PriceDrift(t *testing.T) {
	tests := []struct {
		policy    domain.PriceDriftPolicy
		wantErr   error
		wantTotal string
	}{
		{domain.PriceDriftIgnore, nil, "450.00"},
		{domain.PriceDriftReject, domain.ErrPriceChanged, ""},
		{domain.PriceDriftRefresh, nil, "550.00"},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			env := newTestEnv(t, tt.policy)
			owner := guest()
			v := env.seedVariant(t, "Opal Pendant", "400.00", 5)
			env.add(t, owner, v, 1)
			env.store.SetProductPrice(v.ProductID, "500.00")

			placed, err := env.orders.PlaceOrder(context.Background(), PlaceOrderParams{
				Owner:         owner,
				Address:       shippingFields(),
				PaymentMethod: domain.PaymentCOD,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, domain.ErrorMessage(err), "Opal Pendant")
				assert.Equal(t, 5, env.store.StockOf(v.ID))
				return
			}
			require.NoError(t, err)
			assert.True(t, dec(tt.wantTotal).Equal(placed.Order.Total), "total %s", placed.Order.Total)
		})
	}
}

func TestPlaceOrder_EnqueuesNotification(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 2)

	placed := env.place(t, owner, domain.PaymentMessage)

	all := env.store.Jobs()
	require.Len(t, all, 1)
	assert.Equal(t, jobs.JobTypeOrderPlaced, all[0].JobType)

	payload, err := jobs.DecodeOrderPlaced(all[0])
	require.NoError(t, err)
	assert.Equal(t, placed.Order.OrderNumber, payload.OrderNumber)
	assert.Equal(t, "message", payload.PaymentMethod)
	assert.Equal(t, "asha@example.com", payload.Email)
	assert.True(t, payload.Guest)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, 2, payload.Items[0].Quantity)
	assert.Equal(t, domain.ActionContactBuyer, placed.Action)
}

func TestPlaceOrder_PostCommitFailuresDoNotFailCheckout(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	env.store.Fail("EnqueueJob", errors.New("jobs table unavailable"))
	env.provider.CreatePaymentIntentFunc = func(ctx context.Context, params billing.CreatePaymentIntentParams) (*billing.PaymentIntent, error) {
		return nil, errors.New("gateway timeout")
	}

	placed := env.place(t, owner, domain.PaymentGateway)

	assert.Nil(t, placed.Intent)
	assert.Equal(t, domain.ActionCreateIntent, placed.Action)
	assert.Len(t, env.store.Orders(), 1)
	assert.Equal(t, 4, env.store.StockOf(v.ID))
}

func TestPlaceOrder_GatewayCreatesIntent(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)

	placed := env.place(t, owner, domain.PaymentGateway)

	require.NotNil(t, placed.Intent)
	assert.Equal(t, int64(55000), placed.Intent.AmountMinor)
	assert.Equal(t, "inr", placed.Intent.Currency)
	assert.Equal(t, placed.Order.OrderNumber, placed.Intent.OrderNumber)
	assert.Equal(t, "pk_mock", placed.Intent.PublicKey)
	assert.Equal(t, placed.Intent.IntentID, placed.Order.Payment.IntentID)
}

func TestGetOrder_Access(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)

	buyer := guest()
	env.add(t, buyer, v, 1)
	guestOrder := env.place(t, buyer, domain.PaymentCOD).Order

	user := member()
	env.add(t, user, v, 1)
	userOrder := env.place(t, user, domain.PaymentCOD).Order

	_, err := env.orders.GetOrder(ctx, buyer, guestOrder.OrderNumber)
	assert.NoError(t, err)
	_, err = env.orders.GetOrder(ctx, CartOwner{UserID: user.UserID}, userOrder.OrderNumber)
	assert.NoError(t, err)

	_, err = env.orders.GetOrder(ctx, guest(), guestOrder.OrderNumber)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = env.orders.GetOrder(ctx, member(), userOrder.OrderNumber)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = env.orders.GetOrder(ctx, buyer, "QONOSUCH00")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 10)
	user := member()

	var numbers []string
	for i := 0; i < 3; i++ {
		env.add(t, user, v, 1)
		numbers = append(numbers, env.place(t, user, domain.PaymentCOD).Order.OrderNumber)
	}

	list, err := env.orders.ListOrders(ctx, user.UserID, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, numbers[2], list[0].OrderNumber, "newest first")

	_, err = env.orders.ListOrders(ctx, uuid.Nil, 10, 0)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestUpdateStatus_Transitions(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := guest()
	v := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	env.add(t, owner, v, 1)
	number := env.place(t, owner, domain.PaymentCOD).Order.OrderNumber

	_, err := env.orders.UpdateStatus(ctx, number, domain.OrderShipped)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	for _, next := range []domain.OrderStatus{domain.OrderConfirmed, domain.OrderShipped, domain.OrderDelivered} {
		detail, err := env.orders.UpdateStatus(ctx, number, next)
		require.NoError(t, err)
		assert.Equal(t, string(next), detail.Status)
	}

	_, err = env.orders.UpdateStatus(ctx, number, domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 4, env.store.StockOf(v.ID), "delivered orders are never restocked")

	_, err = env.orders.UpdateStatus(ctx, "QONOSUCH00", domain.OrderConfirmed)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatus_CancelRestocks(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	ctx := context.Background()
	owner := guest()
	ring := env.seedVariant(t, "Ruby Ring", "500.00", 5)
	studs := env.seedVariant(t, "Pearl Studs", "100.00", 5)
	env.add(t, owner, ring, 2)
	env.add(t, owner, studs, 3)
	number := env.place(t, owner, domain.PaymentCOD).Order.OrderNumber
	require.Equal(t, 3, env.store.StockOf(ring.ID))
	require.Equal(t, 2, env.store.StockOf(studs.ID))

	detail, err := env.orders.UpdateStatus(ctx, number, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderCancelled), detail.Status)
	assert.Equal(t, 5, env.store.StockOf(ring.ID))
	assert.Equal(t, 5, env.store.StockOf(studs.ID))

	// Repeating the cancellation is a no-op and must not restock twice.
	_, err = env.orders.UpdateStatus(ctx, number, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, env.store.StockOf(ring.ID))
}

func TestGenerateOrderNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n, err := GenerateOrderNumber("QO")
		require.NoError(t, err)
		assert.Regexp(t, `^QO[A-Z0-9]{8}$`, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 195)
}
