package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/formdesk/internal/live"
	"github.com/parisxmas/formdesk/internal/service"
)

// LiveHandler streams new submissions of a form over a websocket.
type LiveHandler struct {
	forms *service.FormService
	hub   *live.Hub
}

func NewLiveHandler(forms *service.FormService, hub *live.Hub) *LiveHandler {
	return &LiveHandler{forms: forms, hub: hub}
}

func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.Get(r.Context(), userID(r), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.hub.Serve(w, r, form.ID)
}
