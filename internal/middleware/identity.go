package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/dukerupert/quartz/internal/telemetry"
	"github.com/google/uuid"
)

const (
	// SessionCookieName carries the guest session key.
	SessionCookieName = "quartz_session"

	// UserIDHeader is set by the upstream auth gateway for signed-in buyers.
	UserIDHeader = "X-User-ID"

	// AdminTokenHeader authenticates admin requests.
	AdminTokenHeader = "X-Admin-Token"

	sessionMaxAge = 30 * 24 * time.Hour
)

// IdentityConfig configures the buyer identity middleware.
type IdentityConfig struct {
	// Secure marks the session cookie HTTPS-only.
	Secure bool
}

// Identity resolves the buyer for every request and stores it with
// domain.NewContextWithBuyer. A session cookie is issued when the request
// has none, so guests can build a cart from their first request.
func Identity(cfg IdentityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var buyer domain.Buyer

			if c, err := r.Cookie(SessionCookieName); err == nil && validSessionKey(c.Value) {
				buyer.SessionKey = c.Value
			} else {
				buyer.SessionKey = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    buyer.SessionKey,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if raw := r.Header.Get(UserIDHeader); raw != "" {
				userID, err := uuid.Parse(raw)
				if err != nil || userID == uuid.Nil {
					respondUnauthorized(w, r, "Invalid user identity")
					return
				}
				buyer.UserID = userID
			}

			ctx := domain.NewContextWithBuyer(r.Context(), buyer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validSessionKey(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// RequireUser rejects guests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !domain.IsAuthenticated(r.Context()) {
			respondUnauthorized(w, r, "Sign in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminToken guards admin routes with a shared token. An empty configured
// token disables the admin surface.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				respondForbidden(w, r)
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondUnauthorized(w, r, "Admin token required")
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.NewContextWithAdmin(r.Context())))
		})
	}
}

// SentryUser extracts the buyer for SentryContextMiddleware.
func SentryUser(ctx context.Context) *telemetry.UserInfo {
	buyer, ok := domain.BuyerFromContext(ctx)
	if !ok {
		return nil
	}
	if buyer.IsGuest() {
		return &telemetry.UserInfo{SessionKey: buyer.SessionKey}
	}
	return &telemetry.UserInfo{ID: buyer.UserID.String()}
}
