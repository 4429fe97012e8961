package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voluntr/volchat/internal/bus"
	"go.uber.org/zap"
)

// Outgoing is a message handed to the store for delivery.
type Outgoing struct {
	ClientID   string
	ReceiverID string
	Body       string
}

// MessageEvent is the payload carried on "message.*" bus events consumed by
// the controller's thread subscription.
type MessageEvent struct {
	ID         string
	SenderID   string
	ReceiverID string
}

// Store is the message-store adapter the controller talks to.
type Store interface {
	Conversations(ctx context.Context) ([]Summary, error)
	Thread(ctx context.Context, contactID string) ([]Message, error)
	Send(ctx context.Context, out Outgoing) error
	MarkRead(ctx context.Context, contactID string) (int, error)
}

// Directory resolves user ids and searches the portal directory.
type Directory interface {
	Resolve(ctx context.Context, id string) (*Contact, error)
	SearchByEmailPrefix(ctx context.Context, prefix string) ([]Contact, error)
}

// Events provides live message-event subscriptions.
type Events interface {
	SubscribeMessages(bufSize int) *bus.Subscription
}

const reloadTimeout = 10 * time.Second

// Controller owns the "which thread is open" state and mediates send, open,
// close and mark-read against the store. At most one live thread subscription
// exists at a time: opening a new thread releases the previous handle before
// acquiring the next.
type Controller struct {
	mu sync.Mutex

	identity Identity
	store    Store
	dir      Directory
	events   Events
	logger   *zap.Logger

	state         State
	target        *Contact
	thread        []Message
	summaries     []Summary
	sub           *bus.Subscription
	searchVisible bool

	onChange func()
}

// NewController creates a controller for the given identity. The identity is
// fixed for the controller's lifetime.
func NewController(id Identity, store Store, dir Directory, events Events, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		identity: id,
		store:    store,
		dir:      dir,
		events:   events,
		logger:   logger,
		state:    Closed,
	}
}

// SetChangeFunc registers a callback invoked after the open thread or the
// summaries change from a subscription event. Called outside the controller
// lock.
func (c *Controller) SetChangeFunc(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Identity returns the controller's fixed identity.
func (c *Controller) Identity() Identity { return c.identity }

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Target returns the contact of the open thread, or nil.
func (c *Controller) Target() *Contact {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return nil
	}
	t := *c.target
	return &t
}

// Thread returns a snapshot of the open thread, timestamp-ascending.
func (c *Controller) Thread() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.thread))
	copy(out, c.thread)
	return out
}

// Summaries returns a snapshot of the last aggregation result.
func (c *Controller) Summaries() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Summary, len(c.summaries))
	copy(out, c.summaries)
	return out
}

// SetSearchVisible toggles the search overlay. Orthogonal to thread state.
func (c *Controller) SetSearchVisible(v bool) {
	c.mu.Lock()
	c.searchVisible = v
	c.mu.Unlock()
}

// SearchVisible reports whether the search overlay is showing.
func (c *Controller) SearchVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchVisible
}

// OpenContacts shows the conversation list with no thread selected. Calling
// it again while already there is a no-op, so an idle list does not churn
// subscriptions.
func (c *Controller) OpenContacts(ctx context.Context) error {
	c.mu.Lock()
	if c.state == OpenNoTarget && c.target == nil {
		c.mu.Unlock()
		return nil
	}
	if err := c.state.canTransition(OpenNoTarget); err != nil {
		c.mu.Unlock()
		return err
	}
	c.releaseSubLocked()
	c.state = OpenNoTarget
	c.target = nil
	c.thread = nil
	c.mu.Unlock()

	return c.RefreshSummaries(ctx)
}

// OpenThread opens the conversation with the given contact. The previous
// thread's subscription is fully released before the new one is acquired;
// the new subscription is acquired before the initial load so no event can
// fall between them.
func (c *Controller) OpenThread(ctx context.Context, contact Contact) error {
	c.mu.Lock()
	if err := c.state.canTransition(OpenWithTarget); err != nil {
		c.mu.Unlock()
		return err
	}
	c.releaseSubLocked()

	sub := c.events.SubscribeMessages(64)
	c.sub = sub
	c.state = OpenWithTarget
	c.target = &contact
	c.thread = nil
	c.mu.Unlock()

	go c.pump(sub, contact.ID)

	if err := c.reloadThread(ctx, contact.ID); err != nil {
		return err
	}
	if err := c.MarkRead(ctx, contact.ID); err != nil {
		c.logger.Warn("mark read on open failed", zap.Error(err), zap.String("contact", contact.ID))
	}
	return nil
}

// Close tears down the session: releases the subscription and clears the
// thread and target. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	c.releaseSubLocked()
	c.state = Closed
	c.target = nil
	c.thread = nil
	c.mu.Unlock()
}

// Send validates and hands a message to the store. The thread view updates
// via the live subscription, not from this call; there is no optimistic
// local insert.
func (c *Controller) Send(ctx context.Context, text, receiverID string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if c.identity.UserID == "" {
		return ErrNoIdentity
	}
	if receiverID == "" {
		return ErrNoReceiver
	}
	return c.store.Send(ctx, Outgoing{
		ClientID:   uuid.New().String(),
		ReceiverID: receiverID,
		Body:       text,
	})
}

// MarkRead marks every unread message from contactID to the current user as
// read, then re-aggregates so unread badges update. Safe to re-run.
func (c *Controller) MarkRead(ctx context.Context, contactID string) error {
	if _, err := c.store.MarkRead(ctx, contactID); err != nil {
		return err
	}
	return c.RefreshSummaries(ctx)
}

// RefreshSummaries re-fetches the aggregated conversation list.
func (c *Controller) RefreshSummaries(ctx context.Context) error {
	summaries, err := c.store.Conversations(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.summaries = summaries
	c.mu.Unlock()
	return nil
}

// releaseSubLocked closes the active subscription, if any. Caller holds c.mu.
func (c *Controller) releaseSubLocked() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
}

// pump forwards subscription events for the open thread until the
// subscription's channel closes. It captures its own subscription handle, so
// a pump from a replaced thread can never feed a newer one, and a late event
// after teardown is simply dropped.
func (c *Controller) pump(sub *bus.Subscription, contactID string) {
	for evt := range sub.C {
		me, ok := evt.Payload.(MessageEvent)
		if !ok || !c.touchesThread(me, contactID) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		if err := c.reloadThread(ctx, contactID); err != nil {
			c.logger.Warn("thread reload failed", zap.Error(err), zap.String("contact", contactID))
		}
		if me.SenderID == contactID {
			if err := c.MarkRead(ctx, contactID); err != nil {
				c.logger.Warn("mark read failed", zap.Error(err), zap.String("contact", contactID))
			}
		}
		cancel()
	}
}

func (c *Controller) touchesThread(me MessageEvent, contactID string) bool {
	u := c.identity.UserID
	return (me.SenderID == contactID && me.ReceiverID == u) ||
		(me.SenderID == u && me.ReceiverID == contactID)
}

// reloadThread fetches the thread and, if it is still the open one, installs
// it and notifies the change callback.
func (c *Controller) reloadThread(ctx context.Context, contactID string) error {
	msgs, err := c.store.Thread(ctx, contactID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.target == nil || c.target.ID != contactID {
		// The thread changed underneath the fetch; discard the stale result.
		c.mu.Unlock()
		return nil
	}
	c.thread = msgs
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}
