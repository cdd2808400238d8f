package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/srishtayal/nalum-sub003/services"
)

type contextKey string

const claimsKey contextKey = "authClaims"

// Auth verifies the bearer token on every request and stashes the verified
// claims in the request context. Requests without a valid credential never
// reach a handler.
func Auth(tokens *services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				http.Error(w, `{"error": "Authentication token required"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				http.Error(w, `{"error": "Authentication failed"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the verified claims bound by Auth.
func ClaimsFrom(r *http.Request) (*services.Claims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*services.Claims)
	return claims, ok
}

// UserID is a convenience accessor for the authenticated user id.
func UserID(r *http.Request) string {
	if claims, ok := ClaimsFrom(r); ok {
		return claims.UserID
	}
	return ""
}
