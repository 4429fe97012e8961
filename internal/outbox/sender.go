package outbox

import (
	"context"
	"time"

	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/store"
	"go.uber.org/zap"
)

// Deliverer writes an outgoing message into the message store.
type Deliverer interface {
	Deliver(ctx context.Context, msg *store.Message) error
}

const (
	pollInterval = 500 * time.Millisecond
	baseBackoff  = 2 * time.Second
	maxBackoff   = 5 * time.Minute
	maxAttempts  = 8
)

// Sender drains the outbox and delivers messages with retry. A failed
// delivery is re-queued with exponential backoff until maxAttempts, then
// marked failed for good.
type Sender struct {
	db      *store.DB
	deliver Deliverer
	bus     *bus.Bus
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, d Deliverer, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:      db,
		deliver: d,
		bus:     b,
		logger:  logger,
	}
}

// Start begins polling the outbox for due messages. Entries left in
// 'sending' by a previous run are re-queued first.
func (s *Sender) Start(ctx context.Context) {
	if n, err := s.db.RequeueStaleSending(); err != nil {
		s.logger.Error("failed to recover stale outbox entries", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("re-queued stale outbox entries", zap.Int64("count", n))
	}
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ProcessDue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProcessDue delivers every outbox entry whose attempt time has passed.
func (s *Sender) ProcessDue(ctx context.Context) {
	now := time.Now().UnixMilli()
	due, err := s.db.DueOutbox(now, 50)
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range due {
		if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			continue
		}

		msg := &store.Message{
			MsgID:       entry.ClientMsgID,
			SenderID:    entry.SenderID,
			ReceiverID:  entry.ReceiverID,
			SenderName:  s.senderName(entry.SenderID),
			Body:        entry.Body,
			MessageType: "text",
			Status:      "sent",
			Timestamp:   time.Now().UnixMilli(),
		}

		if err := s.deliver.Deliver(ctx, msg); err != nil {
			s.handleFailure(entry, err)
			continue
		}

		if err := s.db.MarkOutboxSent(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		}
		s.logger.Info("message delivered",
			zap.String("client_msg_id", entry.ClientMsgID),
			zap.String("receiver", entry.ReceiverID))
		s.bus.Publish(bus.Event{
			Kind:      "message.send_ack",
			Timestamp: time.Now(),
			Payload: map[string]string{
				"client_msg_id": entry.ClientMsgID,
				"receiver_id":   entry.ReceiverID,
			},
		})
	}
}

func (s *Sender) handleFailure(entry store.OutboxEntry, cause error) {
	attempt := entry.Attempts + 1
	if attempt >= maxAttempts {
		s.logger.Error("delivery failed permanently",
			zap.Error(cause),
			zap.String("client_msg_id", entry.ClientMsgID),
			zap.Int("attempts", attempt))
		_ = s.db.MarkOutboxFailed(entry.ClientMsgID, cause.Error())
		s.bus.Publish(bus.Event{
			Kind:      "message.send_failed",
			Timestamp: time.Now(),
			Payload: map[string]string{
				"client_msg_id": entry.ClientMsgID,
				"error":         cause.Error(),
			},
		})
		return
	}

	next := time.Now().Add(backoff(attempt)).UnixMilli()
	s.logger.Warn("delivery failed, will retry",
		zap.Error(cause),
		zap.String("client_msg_id", entry.ClientMsgID),
		zap.Int("attempt", attempt))
	_ = s.db.MarkOutboxRetry(entry.ClientMsgID, cause.Error(), next)
}

// backoff returns the wait before the given attempt number, doubling from
// baseBackoff and capped at maxBackoff.
func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func (s *Sender) senderName(userID string) string {
	u, err := s.db.GetUser(userID)
	if err != nil || u == nil {
		return ""
	}
	return u.Name
}
