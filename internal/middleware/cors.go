package middleware

import (
	"net/http"
	"strings"
)

var (
	allowMethods = strings.Join([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}, ", ")
	allowHeaders = strings.Join([]string{"Authorization", "Content-Type", "X-API-Key"}, ", ")
)

// CORS answers preflight requests and tags responses for origin. "*"
// allows any origin.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			switch {
			case origin == "*":
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && r.Header.Get("Origin") == origin:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Expose-Headers", "Content-Disposition")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
