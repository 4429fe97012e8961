package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StatusHandler reports daemon runtime state.
type StatusHandler struct {
	deps Deps
}

func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.handleStatus)
}

func (h *StatusHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	d := h.deps
	respondJSON(w, http.StatusOK, map[string]any{
		"profile":  d.Profile,
		"state":    string(d.Machine.Current()),
		"userId":   d.Identity.UserID,
		"userName": d.Identity.Name,
	})
}
