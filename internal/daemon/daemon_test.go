package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/voluntr/volchat/internal/api"
	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/config"
	"github.com/voluntr/volchat/internal/lock"
	"github.com/voluntr/volchat/internal/status"
	"github.com/voluntr/volchat/internal/store"
	"go.uber.org/zap"
)

func startTestServer(t *testing.T, ident chat.Identity) (*Server, *store.DB, *status.Machine) {
	t.Helper()

	profileDir := t.TempDir()

	lk, err := lock.Acquire(profileDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = lk.Release() })

	db, err := store.Open(filepath.Join(profileDir, "volchat.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	machine := status.NewMachine(b)

	deps := api.Deps{
		Profile:  "test",
		Identity: ident,
		DB:       db,
		Bus:      b,
		Machine:  machine,
		Logger:   zap.NewNop(),
	}

	cfg := &config.Config{ListenAddr: "127.0.0.1:0"}
	srv, err := NewServer(cfg, deps, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { srv.Stop(context.Background()) })

	return srv, db, machine
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestDaemonLifecycle(t *testing.T) {
	ident := chat.Identity{UserID: "me", Name: "Me", Email: "me@voluntr.org"}
	srv, db, machine := startTestServer(t, ident)

	_ = machine.Transition(status.Migrating)
	_ = machine.Transition(status.Ready)

	base := "http://" + srv.Addr()

	var st map[string]any
	if code := getJSON(t, base+"/api/status", &st); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if st["state"] != string(status.Ready) {
		t.Errorf("state = %v, want READY", st["state"])
	}
	if st["profile"] != "test" {
		t.Errorf("profile = %v, want test", st["profile"])
	}

	// Empty conversation list at first.
	var summaries []api.SummaryDTO
	if code := getJSON(t, base+"/api/conversations", &summaries); code != http.StatusOK {
		t.Fatalf("conversations code = %d", code)
	}
	if len(summaries) != 0 {
		t.Errorf("expected 0 conversations, got %d", len(summaries))
	}

	// Seed a contact with a message and query again.
	if err := db.UpsertUser(&store.User{ID: "alice", Name: "Alice", Email: "alice@voluntr.org", Role: "volunteer"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(&store.Message{
		MsgID: "m1", SenderID: "alice", ReceiverID: "me",
		Body: "hello world", MessageType: "text", Status: "sent", Timestamp: 1000,
	}); err != nil {
		t.Fatal(err)
	}

	if code := getJSON(t, base+"/api/conversations", &summaries); code != http.StatusOK {
		t.Fatalf("conversations code = %d", code)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(summaries))
	}
	if summaries[0].Contact.ID != "alice" || summaries[0].UnreadCount != 1 {
		t.Errorf("summary = %+v", summaries[0])
	}

	var msgs []api.MessageDTO
	if code := getJSON(t, base+"/api/messages/alice", &msgs); code != http.StatusOK {
		t.Fatalf("messages code = %d", code)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs))
	}
}

// The daemon must not stay in BOOTING forever when no identity is configured.
func TestStatusTransitionsToAuthRequired(t *testing.T) {
	srv, _, machine := startTestServer(t, chat.Identity{})

	_ = machine.Transition(status.Migrating)
	_ = machine.Transition(status.AuthRequired)

	var st map[string]any
	if code := getJSON(t, "http://"+srv.Addr()+"/api/status", &st); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if st["state"] != string(status.AuthRequired) {
		t.Errorf("state = %v, want AUTH_REQUIRED", st["state"])
	}

	// Data endpoints require an identity.
	if code := getJSON(t, "http://"+srv.Addr()+"/api/conversations", nil); code != http.StatusUnauthorized {
		t.Errorf("conversations code = %d, want 401", code)
	}
}

// The status endpoint must reflect transitions made after startup.
func TestStatusReflectsLoginTransition(t *testing.T) {
	srv, _, machine := startTestServer(t, chat.Identity{})

	_ = machine.Transition(status.Migrating)
	_ = machine.Transition(status.AuthRequired)
	_ = machine.Transition(status.Ready)

	var st map[string]any
	if code := getJSON(t, "http://"+srv.Addr()+"/api/status", &st); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if st["state"] != string(status.Ready) {
		t.Errorf("state = %v, want READY", st["state"])
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	srv, _, _ := startTestServer(t, chat.Identity{UserID: "me"})

	base := "http://" + srv.Addr()
	if code := getJSON(t, base+"/api/status", nil); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}

	srv.Stop(context.Background())

	client := &http.Client{Timeout: 500 * time.Millisecond}
	if _, err := client.Get(base + "/api/status"); err == nil {
		t.Error("expected request to fail after shutdown")
	}
}
