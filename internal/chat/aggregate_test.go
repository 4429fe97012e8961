package chat

import (
	"reflect"
	"testing"
)

func directory(contacts ...Contact) Resolver {
	byID := make(map[string]Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}
	return func(id string) *Contact {
		c, ok := byID[id]
		if !ok {
			return nil
		}
		return &c
	}
}

func TestAggregateSingleThread(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "alice", ReceiverID: "u", Status: StatusSent, Timestamp: 1},
		{ID: "m2", SenderID: "u", ReceiverID: "alice", Status: StatusSent, Timestamp: 2},
	}

	got := Aggregate(msgs, "u", directory(Contact{ID: "alice", Name: "Alice"}))
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	s := got[0]
	if s.Contact.ID != "alice" {
		t.Errorf("contact = %q, want alice", s.Contact.ID)
	}
	if s.UnreadCount != 1 {
		t.Errorf("unread = %d, want 1 (only the inbound sent message)", s.UnreadCount)
	}
	if s.LastMessage.ID != "m2" {
		t.Errorf("last message = %q, want m2 (max timestamp)", s.LastMessage.ID)
	}
}

func TestAggregateReadMessagesNotCounted(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "alice", ReceiverID: "u", Status: StatusRead, Timestamp: 1},
	}

	got := Aggregate(msgs, "u", directory(Contact{ID: "alice"}))
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	if got[0].UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", got[0].UnreadCount)
	}
}

func TestAggregateOwnOutboundNotCounted(t *testing.T) {
	// Unread counts only messages addressed to the current user.
	msgs := []Message{
		{ID: "m1", SenderID: "u", ReceiverID: "alice", Status: StatusSent, Timestamp: 1},
		{ID: "m2", SenderID: "u", ReceiverID: "alice", Status: StatusSent, Timestamp: 2},
	}

	got := Aggregate(msgs, "u", directory(Contact{ID: "alice"}))
	if len(got) != 1 || got[0].UnreadCount != 0 {
		t.Fatalf("got %+v, want one summary with unread 0", got)
	}
}

func TestAggregateUnresolvableCounterpartyDropped(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "ghost", ReceiverID: "u", Status: StatusSent, Timestamp: 1},
	}

	got := Aggregate(msgs, "u", directory())
	if len(got) != 0 {
		t.Errorf("got %d summaries, want 0 (ghost has no directory record)", len(got))
	}
}

func TestAggregateMalformedIDsDropped(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "", ReceiverID: "u", Status: StatusSent, Timestamp: 1},
		{ID: "m2", SenderID: "undefined", ReceiverID: "u", Status: StatusSent, Timestamp: 2},
		{ID: "m3", SenderID: "u", ReceiverID: "u", Status: StatusSent, Timestamp: 3},
		{ID: "m4", SenderID: "alice", ReceiverID: "u", Status: StatusSent, Timestamp: 4},
	}

	got := Aggregate(msgs, "u", directory(Contact{ID: "alice"}, Contact{ID: "undefined"}))
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1 (blank, placeholder and self ids dropped)", len(got))
	}
	if got[0].Contact.ID != "alice" {
		t.Errorf("contact = %q, want alice", got[0].Contact.ID)
	}
}

func TestAggregateOnePartnerPerSummary(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "alice", ReceiverID: "u", Status: StatusRead, Timestamp: 1},
		{ID: "m2", SenderID: "u", ReceiverID: "alice", Status: StatusSent, Timestamp: 2},
		{ID: "m3", SenderID: "alice", ReceiverID: "u", Status: StatusSent, Timestamp: 3},
		{ID: "m4", SenderID: "bob", ReceiverID: "u", Status: StatusSent, Timestamp: 4},
	}

	got := Aggregate(msgs, "u", directory(Contact{ID: "alice"}, Contact{ID: "bob"}))
	if len(got) != 2 {
		t.Fatalf("got %d summaries, want 2", len(got))
	}
	seen := map[string]bool{}
	for _, s := range got {
		if seen[s.Contact.ID] {
			t.Errorf("contact %q appears twice", s.Contact.ID)
		}
		seen[s.Contact.ID] = true
	}
}

func TestAggregateSortOrder(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "a", ReceiverID: "u", Status: StatusSent, Timestamp: 100},
		{ID: "m2", SenderID: "b", ReceiverID: "u", Status: StatusSent, Timestamp: 200},
		{ID: "m3", SenderID: "c", ReceiverID: "u", Status: StatusRead, Timestamp: 300},
	}
	dir := directory(Contact{ID: "a"}, Contact{ID: "b"}, Contact{ID: "c"})

	got := Aggregate(msgs, "u", dir)
	if len(got) != 3 {
		t.Fatalf("got %d summaries, want 3", len(got))
	}
	// a and b tie on unread=1; b is more recent. c has no unread and sorts last.
	if got[0].Contact.ID != "b" || got[1].Contact.ID != "a" || got[2].Contact.ID != "c" {
		t.Errorf("order = [%s %s %s], want [b a c]",
			got[0].Contact.ID, got[1].Contact.ID, got[2].Contact.ID)
	}
}

func TestAggregateTieBreakByContactID(t *testing.T) {
	// Identical unread count and timestamp: contact id decides, ascending.
	msgs := []Message{
		{ID: "m1", SenderID: "zoe", ReceiverID: "u", Status: StatusSent, Timestamp: 50},
		{ID: "m2", SenderID: "ann", ReceiverID: "u", Status: StatusSent, Timestamp: 50},
	}
	dir := directory(Contact{ID: "ann"}, Contact{ID: "zoe"})

	got := Aggregate(msgs, "u", dir)
	if len(got) != 2 || got[0].Contact.ID != "ann" {
		t.Fatalf("got %+v, want ann first", got)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "a", ReceiverID: "u", Status: StatusSent, Timestamp: 10},
		{ID: "m2", SenderID: "b", ReceiverID: "u", Status: StatusSent, Timestamp: 10},
		{ID: "m3", SenderID: "u", ReceiverID: "c", Status: StatusSent, Timestamp: 5},
	}
	dir := directory(Contact{ID: "a"}, Contact{ID: "b"}, Contact{ID: "c"})

	first := Aggregate(msgs, "u", dir)
	for i := 0; i < 10; i++ {
		if again := Aggregate(msgs, "u", dir); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestAggregateEmptyHistory(t *testing.T) {
	if got := Aggregate(nil, "u", directory()); len(got) != 0 {
		t.Errorf("got %d summaries for empty history, want 0", len(got))
	}
}
