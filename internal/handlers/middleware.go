package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/trailerdeck/trailerdeck/internal/auth"
)

// MiddlewareRequireAuth validates the Bearer token and stores its claims in
// the request context.
func (h *Handler) MiddlewareRequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeJSON(w, http.StatusUnauthorized, &ErrorResponse{Error: "unauthorized"})
			return
		}

		claims, err := h.auth.Parse(strings.TrimSpace(token))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, &ErrorResponse{Error: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// MiddlewareRequireAdmin guards operator endpoints with the shared admin
// token.
func (h *Handler) MiddlewareRequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			writeJSON(w, http.StatusForbidden, &ErrorResponse{Error: "admin endpoints disabled"})
			return
		}
		given := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.adminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, &ErrorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
