package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voluntr/volchat/internal/api"
	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/chat"
)

// Client talks to the daemon's HTTP API and forwards its websocket event
// stream onto a local bus. It satisfies the controller's store, directory
// and events seams.
type Client struct {
	baseURL string
	http    *http.Client
	bus     *bus.Bus
}

// New creates a client for the daemon listening on addr (host:port).
func New(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		http:    &http.Client{Timeout: 15 * time.Second},
		bus:     bus.New(),
	}
}

// StatusInfo is the daemon's reported runtime state.
type StatusInfo struct {
	Profile  string `json:"profile"`
	State    string `json:"state"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return apiError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("daemon: %s", e.Error)
	}
	return fmt.Errorf("daemon: unexpected status %d", resp.StatusCode)
}

// Status fetches the daemon's runtime state.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	var st StatusInfo
	if err := c.get(ctx, "/api/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Conversations implements chat.Store.
func (c *Client) Conversations(ctx context.Context) ([]chat.Summary, error) {
	var dtos []api.SummaryDTO
	if err := c.get(ctx, "/api/conversations", &dtos); err != nil {
		return nil, err
	}
	out := make([]chat.Summary, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, chat.Summary{
			Contact:     contactFromDTO(d.Contact),
			LastMessage: messageFromDTO(d.LastMessage),
			UnreadCount: d.UnreadCount,
		})
	}
	return out, nil
}

// Thread implements chat.Store.
func (c *Client) Thread(ctx context.Context, contactID string) ([]chat.Message, error) {
	var dtos []api.MessageDTO
	if err := c.get(ctx, "/api/messages/"+url.PathEscape(contactID), &dtos); err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, messageFromDTO(d))
	}
	return out, nil
}

// Send implements chat.Store. The daemon queues the message for delivery.
func (c *Client) Send(ctx context.Context, out chat.Outgoing) error {
	payload := map[string]string{
		"clientMsgId": out.ClientID,
		"receiverId":  out.ReceiverID,
		"body":        out.Body,
	}
	return c.post(ctx, "/api/messages", payload, nil)
}

// MarkRead implements chat.Store.
func (c *Client) MarkRead(ctx context.Context, contactID string) (int, error) {
	var resp struct {
		Updated int `json:"updated"`
	}
	err := c.post(ctx, "/api/messages/"+url.PathEscape(contactID)+"/read", nil, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// Resolve implements chat.Directory. Unknown ids return nil without error.
func (c *Client) Resolve(ctx context.Context, id string) (*chat.Contact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/contacts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var dto api.ContactDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, err
	}
	contact := contactFromDTO(dto)
	return &contact, nil
}

// SearchByEmailPrefix implements chat.Directory.
func (c *Client) SearchByEmailPrefix(ctx context.Context, prefix string) ([]chat.Contact, error) {
	var dtos []api.ContactDTO
	if err := c.get(ctx, "/api/contacts/search?q="+url.QueryEscape(prefix), &dtos); err != nil {
		return nil, err
	}
	out := make([]chat.Contact, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, contactFromDTO(d))
	}
	return out, nil
}

// SubscribeMessages implements chat.Events. Events arrive once StartEvents
// is running.
func (c *Client) SubscribeMessages(bufSize int) *bus.Subscription {
	return c.bus.Subscribe("message.", bufSize)
}

// Subscribe registers on the client's local bus for any event namespace.
func (c *Client) Subscribe(namespace string, bufSize int) *bus.Subscription {
	return c.bus.Subscribe(namespace, bufSize)
}

func contactFromDTO(d api.ContactDTO) chat.Contact {
	return chat.Contact{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		Role:         d.Role,
		Organization: d.Organization,
		IsOnline:     d.IsOnline,
		LastSeen:     d.LastSeen,
	}
}

func messageFromDTO(d api.MessageDTO) chat.Message {
	return chat.Message{
		ID:          d.ID,
		SenderID:    d.SenderID,
		ReceiverID:  d.ReceiverID,
		SenderName:  d.SenderName,
		Body:        d.Body,
		MessageType: d.MessageType,
		Status:      d.Status,
		Timestamp:   d.Timestamp,
	}
}
