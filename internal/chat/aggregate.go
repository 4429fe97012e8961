package chat

import (
	"sort"
	"strings"
)

// legacyPlaceholderID shows up as a participant id in records imported from
// the old portal where a deleted account was serialized as a literal token.
const legacyPlaceholderID = "undefined"

// Resolver maps a user id to a contact, or nil when the id is unknown.
type Resolver func(id string) *Contact

// Aggregate folds a raw message history into one Summary per counterparty of
// currentUserID. Counterparty ids that are empty, self-referential, or fail
// to resolve are dropped without error; malformed history degrades by
// omission, never by failure.
//
// The result is ordered by unread count descending, then last-message
// timestamp descending, then contact id ascending so equal conversations
// always land in the same place.
func Aggregate(msgs []Message, currentUserID string, resolve Resolver) []Summary {
	partners := make(map[string]*Summary)
	var order []string

	for _, m := range msgs {
		other := counterparty(m, currentUserID)
		if other == "" {
			continue
		}

		s, ok := partners[other]
		if !ok {
			c := resolve(other)
			if c == nil {
				// Deleted or inaccessible user: skip the whole thread.
				partners[other] = nil
				continue
			}
			s = &Summary{Contact: *c, LastMessage: m}
			partners[other] = s
			order = append(order, other)
		}
		if s == nil {
			continue
		}

		if m.Timestamp >= s.LastMessage.Timestamp {
			s.LastMessage = m
		}
		if m.SenderID == other && m.ReceiverID == currentUserID && m.Status != StatusRead {
			s.UnreadCount++
		}
	}

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		out = append(out, *partners[id])
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UnreadCount != out[j].UnreadCount {
			return out[i].UnreadCount > out[j].UnreadCount
		}
		if out[i].LastMessage.Timestamp != out[j].LastMessage.Timestamp {
			return out[i].LastMessage.Timestamp > out[j].LastMessage.Timestamp
		}
		return out[i].Contact.ID < out[j].Contact.ID
	})
	return out
}

// counterparty returns the participant of m that is not currentUserID, or ""
// when the message has no usable counterparty (self-thread, blank id, or the
// legacy placeholder token).
func counterparty(m Message, currentUserID string) string {
	other := m.SenderID
	if other == currentUserID {
		other = m.ReceiverID
	}
	if other == currentUserID {
		return ""
	}
	if strings.TrimSpace(other) == "" || other == legacyPlaceholderID {
		return ""
	}
	return other
}
