package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dukerupert/quartz/internal/cache"
	"github.com/dukerupert/quartz/internal/domain"
)

const (
	// IdempotencyKeyHeader names a retry-safe request.
	IdempotencyKeyHeader = "Idempotency-Key"

	// IdempotentReplayedHeader marks a response served from the store.
	IdempotentReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the buyer and route. Responses with a 5xx status are
// not stored so the buyer can retry. Requests without the header pass
// through untouched, as do all requests when the store is unreachable.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				respondWithError(w, r, domain.Errorf(domain.EINVALID, "", "Idempotency-Key is too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					respondTooLarge(w, r)
					return
				}
				respondWithError(w, r, domain.Errorf(domain.EINVALID, "", "Could not read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])

			storeKey := cache.GenerateKey("quartz", r.Method+" "+r.URL.Path, buyerScope(r)+":"+key)
			logger := GetLogger(r.Context())

			stored, err := store.Begin(r.Context(), storeKey)
			switch {
			case errors.Is(err, cache.ErrInFlight):
				respondWithError(w, r, domain.Errorf(domain.ECONFLICT, "", "A request with this Idempotency-Key is already in progress"))
				return
			case err != nil:
				logger.Warn("idempotency store unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			case stored != nil:
				if stored.Fingerprint != fingerprint {
					respondWithError(w, r, domain.Errorf(domain.ECONFLICT, "", "Idempotency-Key was already used with a different request"))
					return
				}
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set(IdempotentReplayedHeader, "true")
				w.WriteHeader(stored.Status)
				w.Write(stored.Body)
				return
			}

			// The request context may already be cancelled once the
			// handler returns, so store calls get their own deadline.
			storeCtx := func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
			}

			// The claim is released unless a response is stored, including
			// when the handler panics.
			completed := false
			defer func() {
				if completed {
					return
				}
				ctx, cancel := storeCtx()
				defer cancel()
				if err := store.Release(ctx, storeKey); err != nil {
					logger.Warn("failed to release idempotency key", "error", err)
				}
			}()

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				return
			}
			resp := cache.Response{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				Fingerprint: fingerprint,
			}
			ctx, cancel := storeCtx()
			defer cancel()
			if err := store.Complete(ctx, storeKey, resp, ttl); err != nil {
				logger.Warn("failed to store idempotent response", "error", err)
				return
			}
			completed = true
		})
	}
}

func buyerScope(r *http.Request) string {
	buyer, _ := domain.BuyerFromContext(r.Context())
	if !buyer.IsGuest() {
		return "user:" + buyer.UserID.String()
	}
	return "session:" + buyer.SessionKey
}

// recordingWriter copies the response body while writing it through.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
