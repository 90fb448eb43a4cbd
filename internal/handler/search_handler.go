package handler

import (
	"net/http"

	"github.com/parisxmas/formdesk/internal/service"
)

type SearchHandler struct {
	svc *service.SubmissionService
}

func NewSearchHandler(svc *service.SubmissionService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search takes {query, limit} and searches all of the caller's forms.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit == 0 {
		req.Limit = 20
	}
	result, err := h.svc.Search(r.Context(), userID(r), req.Query, req.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
