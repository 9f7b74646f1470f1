package service

import (
	"context"
	"testing"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockService_SetStock(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	stock := NewStockService(env.store, testLogger())
	v := env.seedVariant(t, "Ruby Ring", "500.00", 2)

	level, err := stock.SetStock(context.Background(), fromPgUUID(v.ID), 9)
	require.NoError(t, err)
	assert.Equal(t, 9, level.Stock)
	assert.Equal(t, "Ruby Ring-SKU", level.Sku)
	assert.Equal(t, 9, env.store.StockOf(v.ID))

	_, err = stock.SetStock(context.Background(), fromPgUUID(v.ID), -1)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, 9, env.store.StockOf(v.ID))

	_, err = stock.SetStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)
}

func TestStockService_RestockedUnitIsSellable(t *testing.T) {
	env := newTestEnv(t, domain.PriceDriftIgnore)
	stock := NewStockService(env.store, testLogger())
	v := env.seedVariant(t, "Ruby Ring", "500.00", 0)

	_, err := env.carts.AddItem(context.Background(), guest(), fromPgUUID(v.ID), 1)
	require.ErrorIs(t, err, domain.ErrOutOfStock)

	_, err = stock.SetStock(context.Background(), fromPgUUID(v.ID), 1)
	require.NoError(t, err)
	env.add(t, guest(), v, 1)
}
