package api

import (
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/store"
)

// MessageDTO is the wire shape for a message.
type MessageDTO struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId"`
	ReceiverID  string `json:"receiverId"`
	SenderName  string `json:"senderName"`
	Body        string `json:"body"`
	MessageType string `json:"messageType"`
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
}

// ContactDTO is the wire shape for a directory contact.
type ContactDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
	IsOnline     bool   `json:"isOnline"`
	LastSeen     int64  `json:"lastSeen,omitempty"`
}

// SummaryDTO is the wire shape for a conversation summary.
type SummaryDTO struct {
	Contact     ContactDTO `json:"contact"`
	LastMessage MessageDTO `json:"lastMessage"`
	UnreadCount int        `json:"unreadCount"`
}

// UserDTO is the wire shape for an ingested directory record.
type UserDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
	IsOnline     bool   `json:"isOnline"`
	LastSeen     int64  `json:"lastSeen"`
}

// EventDTO is one event on the websocket stream.
type EventDTO struct {
	Kind             string `json:"kind"`
	OccurredAtUnixMs int64  `json:"occurredAtUnixMs"`
	Payload          any    `json:"payload,omitempty"`
}

func messageToDTO(m *store.Message) MessageDTO {
	return MessageDTO{
		ID:          m.MsgID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		SenderName:  m.SenderName,
		Body:        m.Body,
		MessageType: m.MessageType,
		Status:      m.Status,
		Timestamp:   m.Timestamp,
	}
}

func messageFromDTO(d MessageDTO) *store.Message {
	return &store.Message{
		MsgID:       d.ID,
		SenderID:    d.SenderID,
		ReceiverID:  d.ReceiverID,
		SenderName:  d.SenderName,
		Body:        d.Body,
		MessageType: d.MessageType,
		Status:      d.Status,
		Timestamp:   d.Timestamp,
	}
}

func userToContact(u *store.User) chat.Contact {
	return chat.Contact{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Organization: u.Organization,
		IsOnline:     u.IsOnline,
		LastSeen:     u.LastSeen,
	}
}

func contactToDTO(c chat.Contact) ContactDTO {
	return ContactDTO{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		Role:         c.Role,
		Organization: c.Organization,
		IsOnline:     c.IsOnline,
		LastSeen:     c.LastSeen,
	}
}

func chatMessageToDTO(m chat.Message) MessageDTO {
	return MessageDTO{
		ID:          m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		SenderName:  m.SenderName,
		Body:        m.Body,
		MessageType: m.MessageType,
		Status:      m.Status,
		Timestamp:   m.Timestamp,
	}
}

func storeToChatMessages(msgs []store.Message) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chat.Message{
			ID:          m.MsgID,
			SenderID:    m.SenderID,
			ReceiverID:  m.ReceiverID,
			SenderName:  m.SenderName,
			Body:        m.Body,
			MessageType: m.MessageType,
			Status:      m.Status,
			Timestamp:   m.Timestamp,
		})
	}
	return out
}
