package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/inkpost/apiserver/internal/services"
	"github.com/inkpost/apiserver/types"
)

// AccessTokenHeader carries the bearer token. The web client sends it under
// this name rather than in Authorization.
const AccessTokenHeader = "x-access-token"

type contextKey string

const contextIdentityKey contextKey = "identity"

// TokenVerifier resolves a bearer token to the caller's identity.
type TokenVerifier interface {
	Verify(token string) (types.Identity, error)
}

// RequireAuth rejects requests without a valid access token and attaches the
// resolved identity to the request context.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(AccessTokenHeader))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			identity, err := tokens.Verify(token)
			if err != nil {
				if errors.Is(err, services.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, "Token expired")
					return
				}
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(types.Identity)
	if !ok || identity.UserID.IsZero() {
		return types.Identity{}, false
	}
	return identity, true
}

// RateLimited answers a request rejected by the rate limiter.
func RateLimited(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
}
