package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voluntr/volchat/internal/bus"
)

type fakeStore struct {
	mu sync.Mutex

	threads   map[string][]Message
	summaries []Summary

	sent              []Outgoing
	markReadCalls     []string
	conversationCalls int
	threadCalls       []string

	sendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{threads: make(map[string][]Message)}
}

func (f *fakeStore) Conversations(context.Context) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversationCalls++
	return f.summaries, nil
}

func (f *fakeStore) Thread(_ context.Context, contactID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadCalls = append(f.threadCalls, contactID)
	return f.threads[contactID], nil
}

func (f *fakeStore) Send(_ context.Context, out Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, out)
	return nil
}

func (f *fakeStore) MarkRead(_ context.Context, contactID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, contactID)
	return 0, nil
}

func (f *fakeStore) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDirectory struct {
	contacts []Contact
}

func (f *fakeDirectory) Resolve(_ context.Context, id string) (*Contact, error) {
	for _, c := range f.contacts {
		if c.ID == id {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) SearchByEmailPrefix(_ context.Context, prefix string) ([]Contact, error) {
	var out []Contact
	for _, c := range f.contacts {
		if len(c.Email) >= len(prefix) && c.Email[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out, nil
}

type countingEvents struct {
	mu   sync.Mutex
	bus  *bus.Bus
	subs int
}

func (e *countingEvents) SubscribeMessages(bufSize int) *bus.Subscription {
	e.mu.Lock()
	e.subs++
	e.mu.Unlock()
	return e.bus.Subscribe("message.", bufSize)
}

func (e *countingEvents) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subs
}

func testController(t *testing.T, store *fakeStore) (*Controller, *countingEvents, *bus.Bus) {
	t.Helper()
	b := bus.New()
	ev := &countingEvents{bus: b}
	dir := &fakeDirectory{}
	c := NewController(Identity{UserID: "u", Name: "User"}, store, dir, ev, nil)
	t.Cleanup(c.Close)
	return c, ev, b
}

func TestSendRejectsEmptyBody(t *testing.T) {
	store := newFakeStore()
	c, _, _ := testController(t, store)

	if err := c.Send(context.Background(), "", "bob"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty body: err = %v, want ErrEmptyMessage", err)
	}
	if err := c.Send(context.Background(), "   ", "bob"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("whitespace body: err = %v, want ErrEmptyMessage", err)
	}
	if store.sentCount() != 0 {
		t.Errorf("store received %d sends, want 0 (rejected before I/O)", store.sentCount())
	}
}

func TestSendRejectsMissingIdentity(t *testing.T) {
	store := newFakeStore()
	b := bus.New()
	c := NewController(Identity{}, store, &fakeDirectory{}, &countingEvents{bus: b}, nil)
	defer c.Close()

	if err := c.Send(context.Background(), "hello", "bob"); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("err = %v, want ErrNoIdentity", err)
	}
	if store.sentCount() != 0 {
		t.Errorf("store received %d sends, want 0", store.sentCount())
	}
}

func TestSendAssignsClientID(t *testing.T) {
	store := newFakeStore()
	c, _, _ := testController(t, store)

	if err := c.Send(context.Background(), "hello", "bob"); err != nil {
		t.Fatal(err)
	}
	if len(store.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(store.sent))
	}
	if store.sent[0].ClientID == "" {
		t.Error("client id not assigned")
	}
	if store.sent[0].ReceiverID != "bob" || store.sent[0].Body != "hello" {
		t.Errorf("sent = %+v", store.sent[0])
	}
}

func TestOpenThreadLoadsAndMarksRead(t *testing.T) {
	store := newFakeStore()
	store.threads["bob"] = []Message{
		{ID: "m1", SenderID: "bob", ReceiverID: "u", Status: StatusSent, Timestamp: 1},
	}
	c, _, _ := testController(t, store)

	if err := c.OpenThread(context.Background(), Contact{ID: "bob"}); err != nil {
		t.Fatal(err)
	}
	if c.State() != OpenWithTarget {
		t.Errorf("state = %s, want OPEN_WITH_TARGET", c.State())
	}
	if got := c.Thread(); len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("thread = %+v, want [m1]", got)
	}
	if len(store.markReadCalls) != 1 || store.markReadCalls[0] != "bob" {
		t.Errorf("markRead calls = %v, want [bob]", store.markReadCalls)
	}
}

func TestOpenContactsGuardIsNoOp(t *testing.T) {
	store := newFakeStore()
	c, _, _ := testController(t, store)

	if err := c.OpenContacts(context.Background()); err != nil {
		t.Fatal(err)
	}
	calls := store.conversationCalls
	// Re-invoking with no target selected must not refetch or resubscribe.
	if err := c.OpenContacts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.conversationCalls != calls {
		t.Errorf("conversation calls = %d, want %d (guarded no-op)", store.conversationCalls, calls)
	}
}

func TestSubscriptionExclusivity(t *testing.T) {
	store := newFakeStore()
	store.threads["a"] = []Message{{ID: "a1", SenderID: "a", ReceiverID: "u", Timestamp: 1}}
	store.threads["b"] = []Message{{ID: "b1", SenderID: "b", ReceiverID: "u", Timestamp: 2}}
	c, ev, b := testController(t, store)

	if err := c.OpenThread(context.Background(), Contact{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := c.OpenThread(context.Background(), Contact{ID: "b"}); err != nil {
		t.Fatal(err)
	}
	if ev.count() != 2 {
		t.Fatalf("subscriptions acquired = %d, want 2", ev.count())
	}

	// An event for thread A must not disturb the open B thread: A's pump has
	// detached with its subscription.
	b.Publish(bus.Event{Kind: "message.created", Timestamp: time.Now(),
		Payload: MessageEvent{ID: "a2", SenderID: "a", ReceiverID: "u"}})

	time.Sleep(100 * time.Millisecond)
	if got := c.Thread(); len(got) != 1 || got[0].ID != "b1" {
		t.Errorf("thread = %+v, want B's thread untouched", got)
	}
}

func TestThreadUpdatesFromSubscription(t *testing.T) {
	store := newFakeStore()
	store.threads["bob"] = []Message{{ID: "m1", SenderID: "bob", ReceiverID: "u", Timestamp: 1}}
	c, _, b := testController(t, store)

	changed := make(chan struct{}, 4)
	c.SetChangeFunc(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := c.OpenThread(context.Background(), Contact{ID: "bob"}); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	store.threads["bob"] = append(store.threads["bob"],
		Message{ID: "m2", SenderID: "bob", ReceiverID: "u", Timestamp: 2})
	store.mu.Unlock()

	b.Publish(bus.Event{Kind: "message.created", Timestamp: time.Now(),
		Payload: MessageEvent{ID: "m2", SenderID: "bob", ReceiverID: "u"}})

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for thread change")
	}
	if got := c.Thread(); len(got) != 2 {
		t.Errorf("thread has %d messages, want 2", len(got))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store := newFakeStore()
	c, _, _ := testController(t, store)

	if err := c.OpenThread(context.Background(), Contact{ID: "bob"}); err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	if c.State() != Closed {
		t.Errorf("state = %s, want CLOSED", c.State())
	}
	if c.Target() != nil {
		t.Error("target not cleared")
	}
}

func TestSearchContactsBlankFragment(t *testing.T) {
	store := newFakeStore()
	c, _, _ := testController(t, store)

	got, err := c.SearchContacts(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d contacts for blank fragment, want 0", len(got))
	}
}

func TestSearchContactsExcludesSelf(t *testing.T) {
	store := newFakeStore()
	b := bus.New()
	dir := &fakeDirectory{contacts: []Contact{
		{ID: "u", Email: "jan.self@example.org"},
		{ID: "jana", Email: "jana@example.org"},
	}}
	c := NewController(Identity{UserID: "u"}, store, dir, &countingEvents{bus: b}, nil)
	defer c.Close()

	got, err := c.SearchContacts(context.Background(), "jan")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "jana" {
		t.Errorf("got %+v, want only jana (self excluded)", got)
	}
}
