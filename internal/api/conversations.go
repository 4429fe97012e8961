package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voluntr/volchat/internal/chat"
	"go.uber.org/zap"
)

// ConversationHandler serves the aggregated conversation list.
type ConversationHandler struct {
	deps Deps
}

func (h *ConversationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations", h.handleList)
}

func (h *ConversationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	d := h.deps
	if !requireIdentity(d, w) {
		return
	}

	msgs, err := d.DB.ListUserMessages(d.Identity.UserID)
	if err != nil {
		d.Logger.Error("list user messages", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list messages")
		return
	}

	resolve := func(id string) *chat.Contact {
		u, err := d.DB.GetUser(id)
		if err != nil {
			d.Logger.Warn("resolve contact", zap.Error(err), zap.String("id", id))
			return nil
		}
		if u == nil {
			return nil
		}
		c := userToContact(u)
		return &c
	}

	summaries := chat.Aggregate(storeToChatMessages(msgs), d.Identity.UserID, resolve)

	out := make([]SummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, SummaryDTO{
			Contact:     contactToDTO(s.Contact),
			LastMessage: chatMessageToDTO(s.LastMessage),
			UnreadCount: s.UnreadCount,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
