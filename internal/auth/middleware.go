package auth

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/observability"
)

type contextKey struct{}

var userIDKey contextKey

// UserID returns the authenticated user id injected by Middleware, or ""
// when the request did not pass through it.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Middleware gates protected routes on a verifying accessToken cookie and
// injects the token's user id into the request context.
func Middleware(tokens *TokenManager, logger *observability.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AccessCookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			logger.Info("auth_missing_token", map[string]any{"path": r.URL.Path})
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(cookie.Value), TokenTypeAccess)
		if err != nil {
			logger.Info("auth_invalid_token", map[string]any{"path": r.URL.Path})
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
