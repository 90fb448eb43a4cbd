package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/parisxmas/formdesk/internal/export"
	"github.com/parisxmas/formdesk/internal/service"
)

type SubmissionHandler struct {
	svc *service.SubmissionService
}

func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	page, err := h.svc.List(r.Context(), userID(r), chi.URLParam(r, "formId"), service.ListFilter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (h *SubmissionHandler) Rows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Rows(r.Context(), userID(r), chi.URLParam(r, "subId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rows)
}

func (h *SubmissionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.svc.UpdateStatus(r.Context(), userID(r), chi.URLParam(r, "subId"), req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "subId")
	if err := h.svc.Delete(r.Context(), userID(r), subID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": subID})
}

func (h *SubmissionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	form, subs, err := h.svc.Export(r.Context(), userID(r), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(form, "csv", time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, subs); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("form", form.ID).Msg("write csv export")
	}
}

func (h *SubmissionHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	sub, form, err := h.svc.Get(r.Context(), userID(r), chi.URLParam(r, "subId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// Render fully first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := export.PDF(&buf, form, sub, sub.Rows(form)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sub.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("submission", sub.ID).Msg("write pdf export")
	}
}
