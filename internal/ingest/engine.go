package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/store"
	"go.uber.org/zap"
)

// Engine handles idempotent ingestion of portal-feed records into the store.
// It subscribes to "feed.*" events on the bus and processes them.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewEngine creates a new ingest engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to inbound feed events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	sub := e.bus.Subscribe("feed.", 256)

	go func() {
		defer sub.Close()
		for {
			select {
			case evt := <-sub.C:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case "feed.message":
		msg, ok := evt.Payload.(*store.Message)
		if !ok {
			return
		}
		if err := e.IngestMessage(msg); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", msg.MsgID))
		}
	case "feed.message_batch":
		msgs, ok := evt.Payload.([]*store.Message)
		if !ok {
			return
		}
		if err := e.IngestBatch(msgs); err != nil {
			e.logger.Error("failed to ingest message batch", zap.Error(err), zap.Int("count", len(msgs)))
		} else {
			e.logger.Info("message batch ingested", zap.Int("messages", len(msgs)))
		}
	case "feed.users":
		users, ok := evt.Payload.([]store.User)
		if !ok {
			return
		}
		if err := e.IngestUsers(users); err != nil {
			e.logger.Error("failed to ingest directory records", zap.Error(err), zap.Int("count", len(users)))
		}
	}
}

// IngestMessage processes a single message into the store (idempotent).
func (e *Engine) IngestMessage(msg *store.Message) error {
	if err := e.db.UpsertMessage(msg); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      "message.created",
		Timestamp: time.Now(),
		Payload: map[string]string{
			"msg_id":      msg.MsgID,
			"sender_id":   msg.SenderID,
			"receiver_id": msg.ReceiverID,
		},
	})

	return nil
}

// IngestBatch processes a batch of feed messages in a transaction.
func (e *Engine) IngestBatch(msgs []*store.Message) error {
	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range msgs {
		if err := store.UpsertMessageTx(tx, m); err != nil {
			return fmt.Errorf("upsert message in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      "ingest.batch",
		Timestamp: time.Now(),
		Payload:   map[string]int{"messages_count": len(msgs)},
	})

	return nil
}

// IngestUsers upserts a set of directory records.
func (e *Engine) IngestUsers(users []store.User) error {
	if err := e.db.BulkUpsertUsers(users); err != nil {
		return fmt.Errorf("bulk upsert users: %w", err)
	}

	e.bus.Publish(bus.Event{
		Kind:      "directory.updated",
		Timestamp: time.Now(),
		Payload:   map[string]int{"users_count": len(users)},
	})

	return nil
}

// Deliver implements the outbox sender's target: an outgoing message lands
// in the store through the same idempotent path as feed messages.
func (e *Engine) Deliver(_ context.Context, msg *store.Message) error {
	return e.IngestMessage(msg)
}
