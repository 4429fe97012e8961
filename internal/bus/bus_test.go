package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	sub := b.Subscribe("message.", 10)
	defer sub.Close()

	b.Publish(Event{Kind: "message.created", Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-sub.C:
		if evt.Kind != "message.created" {
			t.Errorf("got kind %q, want message.created", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	sub := b.Subscribe("directory.", 10)
	defer sub.Close()

	b.Publish(Event{Kind: "message.created"})
	b.Publish(Event{Kind: "directory.updated"})

	select {
	case evt := <-sub.C:
		if evt.Kind != "directory.updated" {
			t.Errorf("got kind %q, want directory.updated", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure message event was not delivered.
	select {
	case evt := <-sub.C:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe("message.", 10)
	sub.Close()

	b.Publish(Event{Kind: "message.created"})

	select {
	case evt, ok := <-sub.C:
		if ok {
			t.Errorf("received event after close: %v", evt)
		}
		// Channel closed: expected.
	case <-time.After(50 * time.Millisecond):
		t.Error("channel should be closed after Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe("message.", 1)
	sub.Close()
	sub.Close()

	var nilSub *Subscription
	nilSub.Close()
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	sub := b.Subscribe("test.", 1)
	defer sub.Close()

	// Fill buffer.
	b.Publish(Event{Kind: "test.one"})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: "test.two"})

	evt := <-sub.C
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}
