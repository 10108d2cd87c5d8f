/**
 * @description
 * This file contains custom middleware for the HTTP router. The bearer-auth
 * middleware validates the traveler's session token once per request and makes
 * the resulting session available to handlers via the request context.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - internal/app: Session guard that parses and validates bearer tokens.
 */

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/stayfront/checkout-service/internal/app"
	"github.com/stayfront/checkout-service/internal/domain"
)

// SessionContextKey is a custom type for the context key to avoid collisions.
type SessionContextKey string

const sessionKey SessionContextKey = "checkoutSession"

// BearerAuthMiddleware creates a middleware that validates the traveler's
// bearer token with the session guard. Any failure is answered with the
// session-expired contract so the client runs its single re-login path.
func BearerAuthMiddleware(guard *app.SessionGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeSessionExpired(w)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeSessionExpired(w)
				return
			}

			session, err := guard.ParseToken(tokenString)
			if err != nil {
				writeSessionExpired(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext retrieves the validated session from the request context.
// Handlers should use this to get the authenticated traveler.
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	session, ok := ctx.Value(sessionKey).(domain.Session)
	return session, ok
}
