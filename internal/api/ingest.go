package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/feed"
	"github.com/voluntr/volchat/internal/store"
)

// maxExportBytes caps how large an uploaded portal export may be.
const maxExportBytes = 32 << 20

// IngestHandler accepts upstream feed payloads and hands them to the
// ingest engine through the bus.
type IngestHandler struct {
	deps Deps
}

func (h *IngestHandler) RegisterRoutes(r chi.Router) {
	r.Post("/ingest/messages", h.handleMessages)
	r.Post("/ingest/users", h.handleUsers)
	r.Post("/ingest/export", h.handleExport)
}

// handleExport accepts a raw portal export document. Field aliases and
// timestamp formats are normalized by the feed parser before the records
// hit the bus.
func (h *IngestHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxExportBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read request body")
		return
	}
	export, err := feed.ParseExport(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	if len(export.Users) > 0 {
		h.deps.Bus.Publish(bus.Event{
			Kind:      "feed.users",
			Timestamp: now,
			Payload:   export.Users,
		})
	}
	if len(export.Messages) > 0 {
		h.deps.Bus.Publish(bus.Event{
			Kind:      "feed.message_batch",
			Timestamp: now,
			Payload:   export.Messages,
		})
	}
	respondJSON(w, http.StatusAccepted, map[string]int{
		"messages": len(export.Messages),
		"users":    len(export.Users),
		"skipped":  export.Skipped,
	})
}

func (h *IngestHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	var payload []MessageDTO
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload) == 0 {
		respondJSON(w, http.StatusAccepted, map[string]int{"accepted": 0})
		return
	}

	msgs := make([]*store.Message, 0, len(payload))
	for _, d := range payload {
		msgs = append(msgs, messageFromDTO(d))
	}
	h.deps.Bus.Publish(bus.Event{
		Kind:      "feed.message_batch",
		Timestamp: time.Now(),
		Payload:   msgs,
	})
	respondJSON(w, http.StatusAccepted, map[string]int{"accepted": len(msgs)})
}

func (h *IngestHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	var payload []UserDTO
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	users := make([]store.User, 0, len(payload))
	for _, d := range payload {
		users = append(users, store.User{
			ID:           d.ID,
			Name:         d.Name,
			Email:        d.Email,
			Role:         d.Role,
			Organization: d.Organization,
			IsOnline:     d.IsOnline,
			LastSeen:     d.LastSeen,
		})
	}
	h.deps.Bus.Publish(bus.Event{
		Kind:      "feed.users",
		Timestamp: time.Now(),
		Payload:   users,
	})
	respondJSON(w, http.StatusAccepted, map[string]int{"accepted": len(users)})
}
