package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/quartz/internal/cache"
	"github.com/dukerupert/quartz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idempotentHandler(store cache.IdempotencyStore, status int, calls *int32) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"call":` + strconv.Itoa(int(n)) + `}`))
	})
	return Idempotency(store, time.Hour)(inner)
}

func checkoutRequest(key, body, session string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	ctx := domain.NewContextWithBuyer(req.Context(), domain.Buyer{SessionKey: session})
	return req.WithContext(ctx)
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int32
	h := idempotentHandler(cache.NewMemoryStore(), http.StatusCreated, &calls)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, checkoutRequest("key-1", `{"payment_method":"cod"}`, "s1"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, checkoutRequest("key-1", `{"payment_method":"cod"}`, "s1"))

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayedHeader))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
}

func TestIdempotency_ScopedPerBuyer(t *testing.T) {
	var calls int32
	h := idempotentHandler(cache.NewMemoryStore(), http.StatusCreated, &calls)

	h.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-1", `{}`, "s1"))
	h.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-1", `{}`, "s2"))

	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_RejectsDifferentBody(t *testing.T) {
	var calls int32
	h := idempotentHandler(cache.NewMemoryStore(), http.StatusCreated, &calls)

	h.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-1", `{"payment_method":"cod"}`, "s1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutRequest("key-1", `{"payment_method":"gateway"}`, "s1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int32(1), calls)
}

func TestIdempotency_ServerErrorsAreRetryable(t *testing.T) {
	var calls int32
	h := idempotentHandler(cache.NewMemoryStore(), http.StatusInternalServerError, &calls)

	h.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-1", `{}`, "s1"))
	h.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-1", `{}`, "s1"))

	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	var calls int32
	h := idempotentHandler(cache.NewMemoryStore(), http.StatusCreated, &calls)

	h.ServeHTTP(httptest.NewRecorder(), checkoutRequest("", `{}`, "s1"))
	h.ServeHTTP(httptest.NewRecorder(), checkoutRequest("", `{}`, "s1"))

	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_InFlight(t *testing.T) {
	store := cache.NewMemoryStore()
	var calls int32
	h := idempotentHandler(store, http.StatusCreated, &calls)

	key := cache.GenerateKey("quartz", "POST /checkout", "session:s1:key-1")
	_, err := store.Begin(context.Background(), key)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutRequest("key-1", `{}`, "s1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, calls)
}

type failingStore struct{}

func (failingStore) Begin(ctx context.Context, key string) (*cache.Response, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingStore) Complete(ctx context.Context, key string, resp cache.Response, ttl time.Duration) error {
	return errors.New("redis: connection refused")
}

func (failingStore) Release(ctx context.Context, key string) error { return nil }

func TestIdempotency_StoreDownFailsOpen(t *testing.T) {
	var calls int32
	h := idempotentHandler(failingStore{}, http.StatusCreated, &calls)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutRequest("key-1", `{}`, "s1"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int32(1), calls)
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	store := cache.NewMemoryStore()
	panicking := Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("order service exploded")
	}))

	assert.Panics(t, func() {
		panicking.ServeHTTP(httptest.NewRecorder(), checkoutRequest("key-1", `{}`, "s1"))
	})

	var calls int32
	h := idempotentHandler(store, http.StatusCreated, &calls)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkoutRequest("key-1", `{}`, "s1"))

	assert.Equal(t, http.StatusCreated, rec.Code, "the retry is not stuck in flight")
	assert.Equal(t, int32(1), calls)
}

type completeFailsStore struct {
	*cache.MemoryStore
}

func (s completeFailsStore) Complete(ctx context.Context, key string, resp cache.Response, ttl time.Duration) error {
	return errors.New("redis: write timeout")
}

func TestIdempotency_FailedCompleteReleasesKey(t *testing.T) {
	store := completeFailsStore{cache.NewMemoryStore()}
	var calls int32
	h := idempotentHandler(store, http.StatusCreated, &calls)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, checkoutRequest("key-1", `{}`, "s1"))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, int32(2), calls)
}
