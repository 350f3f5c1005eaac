package middleware

import (
	"context"
	"net/http"
	"strings"
)

type userIDContextKey struct{}

// UserIDHeader carries the authenticated user id. Session issuance and
// verification happen upstream at the gateway; this service only trusts the
// header it forwards.
const UserIDHeader = "X-User-ID"

// Identity extracts the gateway-verified user id into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
			ctx = context.WithValue(ctx, userIDContextKey{}, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDContextKey{}).(string); ok {
		return v
	}
	return ""
}
