package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/parisxmas/formdesk/internal/middleware"
	"github.com/parisxmas/formdesk/internal/resolver"
	"github.com/parisxmas/formdesk/internal/service"
)

// PublicHandler serves the unauthenticated endpoints respondents use.
type PublicHandler struct {
	forms *service.FormService
	subs  *service.SubmissionService
}

func NewPublicHandler(forms *service.FormService, subs *service.SubmissionService) *PublicHandler {
	return &PublicHandler{forms: forms, subs: subs}
}

func (h *PublicHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.GetPublished(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"id":          form.ID,
		"name":        form.Name,
		"slug":        form.Slug,
		"description": form.Description,
		"fields":      form.Fields,
	})
}

func (h *PublicHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data    resolver.Object `json:"data"`
		Partial bool            `json:"partial"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.subs.Submit(r.Context(), chi.URLParam(r, "formId"), service.SubmitInput{
		Data:      req.Data,
		Partial:   req.Partial,
		IPAddress: mw.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, sub)
}
