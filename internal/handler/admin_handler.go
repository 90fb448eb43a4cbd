package handler

import (
	"net/http"

	"github.com/parisxmas/formdesk/internal/auth"
	"github.com/parisxmas/formdesk/internal/repository"
)

type AdminHandler struct {
	repo *repository.MaintenanceRepo
}

func NewAdminHandler(repo *repository.MaintenanceRepo) *AdminHandler {
	return &AdminHandler{repo: repo}
}

// RequireAdmin rejects callers whose role is not admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := auth.GetUser(r.Context()); c == nil || c.Role != "admin" {
			writeError(w, r, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) ListIndexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := h.repo.ListIndexes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"indexes": indexes})
}

func (h *AdminHandler) Compact(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Compact(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}
