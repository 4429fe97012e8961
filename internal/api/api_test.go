package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/status"
	"github.com/voluntr/volchat/internal/store"
	"go.uber.org/zap"
)

func testRouter(t *testing.T) (http.Handler, *store.DB, *bus.Bus) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	r := NewRouter(Deps{
		Profile:  "test",
		Identity: chat.Identity{UserID: "me", Name: "Me", Email: "me@voluntr.org"},
		DB:       db,
		Bus:      b,
		Machine:  status.NewMachine(b),
		Logger:   zap.NewNop(),
	})
	return r, db, b
}

func seedUser(t *testing.T, db *store.DB, id, name, email string) {
	t.Helper()
	err := db.UpsertUser(&store.User{ID: id, Name: name, Email: email, Role: "volunteer"})
	if err != nil {
		t.Fatal(err)
	}
}

func seedMessage(t *testing.T, db *store.DB, msgID, sender, receiver, body, stat string, ts int64) {
	t.Helper()
	err := db.UpsertMessage(&store.Message{
		MsgID: msgID, SenderID: sender, ReceiverID: receiver,
		Body: body, MessageType: "text", Status: stat, Timestamp: ts,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestConversationsEndpoint(t *testing.T) {
	r, db, _ := testRouter(t)
	seedUser(t, db, "alice", "Alice", "alice@voluntr.org")
	seedMessage(t, db, "m1", "alice", "me", "hi", "sent", 100)
	seedMessage(t, db, "m2", "alice", "me", "there", "sent", 200)
	seedMessage(t, db, "m3", "me", "alice", "hello", "read", 300)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []SummaryDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("summaries = %d, want 1", len(got))
	}
	if got[0].Contact.ID != "alice" {
		t.Errorf("contact = %q, want alice", got[0].Contact.ID)
	}
	if got[0].UnreadCount != 2 {
		t.Errorf("unread = %d, want 2", got[0].UnreadCount)
	}
	if got[0].LastMessage.ID != "m3" {
		t.Errorf("last message = %q, want m3", got[0].LastMessage.ID)
	}
}

func TestConversationsDropsUnknownCounterparty(t *testing.T) {
	r, db, _ := testRouter(t)
	seedMessage(t, db, "m1", "ghost", "me", "boo", "sent", 100)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []SummaryDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("summaries = %d, want 0", len(got))
	}
}

func TestThreadEndpoint(t *testing.T) {
	r, db, _ := testRouter(t)
	seedUser(t, db, "alice", "Alice", "alice@voluntr.org")
	seedMessage(t, db, "m1", "alice", "me", "hi", "sent", 100)
	seedMessage(t, db, "m2", "me", "alice", "hello", "sent", 200)
	// Unrelated pair must not leak into the thread.
	seedMessage(t, db, "m3", "alice", "bob", "psst", "sent", 300)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages/alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []MessageDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("messages = %d, want 2", len(got))
	}
	if got[0].ID != "m1" || got[1].ID != "m2" {
		t.Errorf("order = [%s %s], want [m1 m2]", got[0].ID, got[1].ID)
	}
}

func TestSendQueuesOutbox(t *testing.T) {
	r, db, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{
		"receiverId": "alice",
		"body":       "hello there",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	entry, err := db.GetOutboxEntry(resp["clientMsgId"])
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil {
		t.Fatal("outbox entry not found")
	}
	if entry.Body != "hello there" || entry.ReceiverID != "alice" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestSendRejectsBlankBody(t *testing.T) {
	r, _, _ := testRouter(t)

	body, _ := json.Marshal(map[string]string{
		"receiverId": "alice",
		"body":       "   ",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMarkReadPublishesEvent(t *testing.T) {
	r, db, b := testRouter(t)
	seedMessage(t, db, "m1", "alice", "me", "hi", "sent", 100)

	sub := b.Subscribe("message.read", 8)
	defer sub.Close()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages/alice/read", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	select {
	case evt := <-sub.C:
		payload, ok := evt.Payload.(map[string]string)
		if !ok || payload["contact_id"] != "alice" {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no message.read event published")
	}

	msgs, err := db.ListThread("me", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Status != "read" {
		t.Errorf("status = %q, want read", msgs[0].Status)
	}
}

func TestContactSearch(t *testing.T) {
	r, db, _ := testRouter(t)
	seedUser(t, db, "alice", "Alice", "alice@voluntr.org")
	seedUser(t, db, "albert", "Albert", "albert@voluntr.org")
	seedUser(t, db, "bob", "Bob", "bob@voluntr.org")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts/search?q=al", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []ContactDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("contacts = %d, want 2", len(got))
	}
}

func TestContactSearchBlankQuery(t *testing.T) {
	r, db, _ := testRouter(t)
	seedUser(t, db, "alice", "Alice", "alice@voluntr.org")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts/search?q=+++", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []ContactDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("contacts = %d, want 0", len(got))
	}
}

func TestContactGetNotFound(t *testing.T) {
	r, _, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts/nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestIngestMessagesPublishesFeedEvent(t *testing.T) {
	r, _, b := testRouter(t)

	sub := b.Subscribe("feed.", 8)
	defer sub.Close()

	body, _ := json.Marshal([]MessageDTO{
		{ID: "m1", SenderID: "alice", ReceiverID: "me", Body: "hi", MessageType: "text", Status: "sent", Timestamp: 100},
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/messages", bytes.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	select {
	case evt := <-sub.C:
		if evt.Kind != "feed.message_batch" {
			t.Errorf("kind = %q", evt.Kind)
		}
		msgs, ok := evt.Payload.([]*store.Message)
		if !ok || len(msgs) != 1 || msgs[0].MsgID != "m1" {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no feed event published")
	}
}

func TestUnauthenticatedProfile(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	r := NewRouter(Deps{
		Profile: "test",
		DB:      db,
		Bus:     b,
		Machine: status.NewMachine(b),
		Logger:  zap.NewNop(),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
