package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const UserContextKey contextKey = "user"

// APIKeyHeader carries a long-lived account key instead of a session token.
const APIKeyHeader = "X-API-Key"

// KeyLookup resolves an API key to the claims of its owner. It returns
// nil claims for an unknown key.
type KeyLookup func(ctx context.Context, key string) (*Claims, error)

// Middleware authenticates the request with a bearer token, an API key
// header, or an access_token query parameter (browsers cannot set headers
// on websocket upgrades).
func Middleware(secret string, keys KeyLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var claims *Claims

			header := r.Header.Get("Authorization")
			switch {
			case strings.HasPrefix(header, "Bearer "):
				c, err := ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					unauthorized(w, "invalid token")
					return
				}
				claims = c
			case r.Header.Get(APIKeyHeader) != "" && keys != nil:
				c, err := keys(r.Context(), r.Header.Get(APIKeyHeader))
				if err != nil || c == nil {
					unauthorized(w, "invalid api key")
					return
				}
				claims = c
			case r.URL.Query().Get("access_token") != "":
				c, err := ValidateToken(secret, r.URL.Query().Get("access_token"))
				if err != nil {
					unauthorized(w, "invalid token")
					return
				}
				claims = c
			default:
				unauthorized(w, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

func GetUser(ctx context.Context) *Claims {
	claims, _ := ctx.Value(UserContextKey).(*Claims)
	return claims
}

// WithUser returns a context carrying claims, as Middleware would set.
func WithUser(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}
