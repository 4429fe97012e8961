package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/voluntr/volchat/internal/api"
)

// IngestMessages submits a batch of upstream messages to the daemon's feed.
func (c *Client) IngestMessages(ctx context.Context, msgs []api.MessageDTO) error {
	return c.post(ctx, "/api/ingest/messages", msgs, nil)
}

// IngestUsers submits a directory snapshot to the daemon's feed.
func (c *Client) IngestUsers(ctx context.Context, users []api.UserDTO) error {
	return c.post(ctx, "/api/ingest/users", users, nil)
}

// IngestExport submits a raw portal export document. The daemon normalizes
// it; counts come back per record kind.
func (c *Client) IngestExport(ctx context.Context, data []byte) (messages, users, skipped int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ingest/export", bytes.NewReader(data))
	if err != nil {
		return 0, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return 0, 0, 0, apiError(resp)
	}
	var counts struct {
		Messages int `json:"messages"`
		Users    int `json:"users"`
		Skipped  int `json:"skipped"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return 0, 0, 0, err
	}
	return counts.Messages, counts.Users, counts.Skipped, nil
}
