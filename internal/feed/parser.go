package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/voluntr/volchat/internal/store"
)

// rawMessage is one record of a portal chat export. Field names drifted
// across portal versions, so most carry an alias.
type rawMessage struct {
	ID          string `json:"id"`
	MsgID       string `json:"msgId"`
	SenderID    string `json:"senderId"`
	Sender      string `json:"sender"`
	ReceiverID  string `json:"receiverId"`
	Receiver    string `json:"receiver"`
	SenderName  string `json:"senderName"`
	Body        string `json:"body"`
	Text        string `json:"text"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Timestamp   any    `json:"timestamp"`
}

// rawUser is one directory record of a portal export.
type rawUser struct {
	ID           string `json:"id"`
	UID          string `json:"uid"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
	IsOnline     bool   `json:"isOnline"`
	LastSeen     any    `json:"lastSeen"`
}

// Export is a parsed portal export.
type Export struct {
	Messages []*store.Message
	Users    []store.User
	Skipped  int
}

// ParseExport normalizes a raw portal export document. Records without a
// usable id are counted in Skipped rather than failing the whole batch.
func ParseExport(data []byte) (*Export, error) {
	var doc struct {
		Messages []rawMessage `json:"messages"`
		Users    []rawUser    `json:"users"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}

	out := &Export{}
	for _, raw := range doc.Messages {
		m := normalizeMessage(raw)
		if m == nil {
			out.Skipped++
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	for _, raw := range doc.Users {
		u := normalizeUser(raw)
		if u == nil {
			out.Skipped++
			continue
		}
		out.Users = append(out.Users, *u)
	}
	return out, nil
}

// normalizeMessage maps a raw record onto the store shape. Malformed
// counterparty ids pass through untouched: the aggregator decides what to
// drop, the feed only normalizes.
func normalizeMessage(raw rawMessage) *store.Message {
	msgID := firstNonEmpty(raw.MsgID, raw.ID)
	if msgID == "" {
		return nil
	}
	senderID := firstNonEmpty(raw.SenderID, raw.Sender)
	if senderID == "" {
		return nil
	}

	msgType := firstNonEmpty(raw.MessageType, raw.Type)
	if msgType == "" {
		msgType = "text"
	}
	status := raw.Status
	if status == "" {
		status = "sent"
	}

	return &store.Message{
		MsgID:       msgID,
		SenderID:    senderID,
		ReceiverID:  firstNonEmpty(raw.ReceiverID, raw.Receiver),
		SenderName:  raw.SenderName,
		Body:        firstNonEmpty(raw.Body, raw.Text, raw.Message),
		MessageType: msgType,
		Status:      status,
		Timestamp:   normalizeTimestamp(raw.Timestamp),
	}
}

func normalizeUser(raw rawUser) *store.User {
	id := firstNonEmpty(raw.ID, raw.UID)
	if id == "" {
		return nil
	}
	return &store.User{
		ID:           id,
		Name:         firstNonEmpty(raw.Name, raw.DisplayName),
		Email:        raw.Email,
		Role:         raw.Role,
		Organization: raw.Organization,
		IsOnline:     raw.IsOnline,
		LastSeen:     normalizeTimestamp(raw.LastSeen),
	}
}

// millisThreshold separates second-resolution epoch values from
// millisecond-resolution ones. Anything below it is treated as seconds.
const millisThreshold = int64(1) << 40

// normalizeTimestamp accepts epoch seconds, epoch milliseconds, or an
// RFC 3339 string and returns epoch milliseconds. Unparseable values
// become zero.
func normalizeTimestamp(v any) int64 {
	switch t := v.(type) {
	case float64:
		n := int64(t)
		if n > 0 && n < millisThreshold {
			return n * 1000
		}
		return n
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UnixMilli()
		}
		return 0
	default:
		return 0
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
