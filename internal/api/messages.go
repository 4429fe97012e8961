package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/voluntr/volchat/internal/bus"
	"go.uber.org/zap"
)

// MessageHandler serves thread listing, send, and mark-read.
type MessageHandler struct {
	deps Deps
}

func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/messages/{contactID}", h.handleThread)
	r.Post("/messages", h.handleSend)
	r.Post("/messages/{contactID}/read", h.handleMarkRead)
}

func (h *MessageHandler) handleThread(w http.ResponseWriter, r *http.Request) {
	d := h.deps
	if !requireIdentity(d, w) {
		return
	}
	contactID := chi.URLParam(r, "contactID")

	msgs, err := d.DB.ListThread(d.Identity.UserID, contactID)
	if err != nil {
		d.Logger.Error("list thread", zap.Error(err), zap.String("contact", contactID))
		respondError(w, http.StatusInternalServerError, "list thread")
		return
	}

	out := make([]MessageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, messageToDTO(&msgs[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *MessageHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	d := h.deps
	if !requireIdentity(d, w) {
		return
	}

	var payload struct {
		ClientMsgID string `json:"clientMsgId"`
		ReceiverID  string `json:"receiverId"`
		Body        string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Body) == "" {
		respondError(w, http.StatusBadRequest, "message body is empty")
		return
	}
	if payload.ReceiverID == "" {
		respondError(w, http.StatusBadRequest, "receiverId is required")
		return
	}
	if payload.ClientMsgID == "" {
		payload.ClientMsgID = uuid.New().String()
	}

	if err := d.DB.QueueOutbox(payload.ClientMsgID, d.Identity.UserID, payload.ReceiverID, payload.Body); err != nil {
		d.Logger.Error("queue outbox", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "queue message")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":      "queued",
		"clientMsgId": payload.ClientMsgID,
	})
}

func (h *MessageHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	d := h.deps
	if !requireIdentity(d, w) {
		return
	}
	contactID := chi.URLParam(r, "contactID")

	n, err := d.DB.MarkThreadRead(d.Identity.UserID, contactID)
	if err != nil {
		d.Logger.Error("mark thread read", zap.Error(err), zap.String("contact", contactID))
		respondError(w, http.StatusInternalServerError, "mark read")
		return
	}
	if n > 0 {
		d.Bus.Publish(bus.Event{
			Kind:      "message.read",
			Timestamp: time.Now(),
			Payload: map[string]string{
				"contact_id": contactID,
			},
		})
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
