package httpapi

import (
	"context"
	"net/http"
	"strings"

	"eraiiz/internal/server/service"
)

type contextKey string

const claimsContextKey contextKey = "claims"

func (r *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		authz := req.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := r.services.Auth.ParseToken(strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(req.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func getClaims(ctx context.Context) service.Claims {
	if v := ctx.Value(claimsContextKey); v != nil {
		if c, ok := v.(service.Claims); ok {
			return c
		}
	}
	return service.Claims{}
}
