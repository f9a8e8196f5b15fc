package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

type contextKey struct{}

// Middleware rejects requests without a valid bearer token and stores the claims in the request context
func Middleware(t *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, prefix) {
				httpx.Error(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			claims, err := t.Parse(strings.TrimPrefix(header, prefix))
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
		})
	}
}

// RequireAdmin only lets administrators through, it must run after Middleware
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if claims.Role != user.RoleAdmin {
			httpx.Error(w, http.StatusForbidden, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FromContext returns the claims of the authenticated caller
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// UserID returns the id of the authenticated caller or 0
func UserID(ctx context.Context) int64 {
	if c, ok := FromContext(ctx); ok {
		return c.UserID
	}
	return 0
}
