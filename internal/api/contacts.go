package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContactHandler serves directory lookups and email-prefix search.
type ContactHandler struct {
	deps Deps
}

func (h *ContactHandler) RegisterRoutes(r chi.Router) {
	r.Get("/contacts/search", h.handleSearch)
	r.Get("/contacts/{id}", h.handleGet)
}

func (h *ContactHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	d := h.deps
	if !requireIdentity(d, w) {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondJSON(w, http.StatusOK, []ContactDTO{})
		return
	}

	users, err := d.DB.SearchUsersByEmailPrefix(q, d.Identity.UserID, 20)
	if err != nil {
		d.Logger.Error("search users", zap.Error(err), zap.String("q", q))
		respondError(w, http.StatusInternalServerError, "search")
		return
	}

	out := make([]ContactDTO, 0, len(users))
	for i := range users {
		out = append(out, contactToDTO(userToContact(&users[i])))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *ContactHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	d := h.deps
	if !requireIdentity(d, w) {
		return
	}
	id := chi.URLParam(r, "id")

	u, err := d.DB.GetUser(id)
	if err != nil {
		d.Logger.Error("get user", zap.Error(err), zap.String("id", id))
		respondError(w, http.StatusInternalServerError, "get contact")
		return
	}
	if u == nil {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}
	respondJSON(w, http.StatusOK, contactToDTO(userToContact(u)))
}
