package accounts

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// OwnerFromContext returns the authenticated owner id placed by Middleware.
func OwnerFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint)
	return id, ok
}

// BearerToken pulls a token from the Authorization header or, for websocket
// upgrades where headers are awkward for browser clients, a query parameter.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Middleware rejects requests without a valid token and stashes the owner id
// in the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		ownerID, err := s.Verify(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ownerID)))
	})
}
