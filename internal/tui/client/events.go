package client

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voluntr/volchat/internal/api"
	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/chat"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// StartEvents connects to the daemon's websocket stream and republishes
// incoming events on the client's local bus. It reconnects with backoff
// until ctx is cancelled.
func (c *Client) StartEvents(ctx context.Context) {
	go c.eventLoop(ctx)
}

func (c *Client) eventLoop(ctx context.Context) {
	wsURL := "ws" + c.baseURL[len("http"):] + "/api/events"
	delay := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay *= 2
			if delay > reconnectMax {
				delay = reconnectMax
			}
			continue
		}
		delay = reconnectMin
		c.readEvents(ctx, conn)
		_ = conn.Close()
	}
}

func (c *Client) readEvents(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var dto api.EventDTO
		if err := conn.ReadJSON(&dto); err != nil {
			return
		}
		c.bus.Publish(toBusEvent(dto))
	}
}

// toBusEvent rebuilds a typed bus event from its wire form. Message events
// carry a chat.MessageEvent payload so controller subscribers can filter by
// sender and receiver.
func toBusEvent(dto api.EventDTO) bus.Event {
	evt := bus.Event{
		Kind:      dto.Kind,
		Timestamp: time.UnixMilli(dto.OccurredAtUnixMs),
		Payload:   dto.Payload,
	}
	if fields, ok := dto.Payload.(map[string]any); ok {
		me := chat.MessageEvent{
			ID:         strField(fields, "msg_id"),
			SenderID:   strField(fields, "sender_id"),
			ReceiverID: strField(fields, "receiver_id"),
		}
		if me.SenderID != "" || me.ReceiverID != "" {
			evt.Payload = me
		}
	}
	return evt
}

func strField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
