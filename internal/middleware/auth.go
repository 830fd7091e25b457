package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mentorway/mentorway-be/internal/auth"
	"github.com/mentorway/mentorway-be/internal/http/respond"
)

type contextKey string

const identityKey contextKey = "identity"

// RequireAuth verifies the bearer token and stores the caller identity in the
// request context. Requests without a valid token get 401.
func RequireAuth(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respond.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		identity, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// WithIdentity attaches a verified identity to the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom extracts the verified identity placed by RequireAuth.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}
