// Package slack is the thin client for the status-update platform plus the
// request-signature check for inbound slash commands.
package slack

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"swelter/internal/types"
)

const defaultAPIBase = "https://slack.com/api"

type Client struct {
	apiBase string
	client  *http.Client
}

func NewClient(client *http.Client) *Client {
	return &Client{apiBase: defaultAPIBase, client: client}
}

// WithAPIBase points the client at a different endpoint. Tests only.
func (c *Client) WithAPIBase(base string) *Client {
	c.apiBase = base
	return c
}

type profileSetRequest struct {
	User    string  `json:"user,omitempty"`
	Profile profile `json:"profile"`
}

type profile struct {
	StatusText  string `json:"status_text"`
	StatusEmoji string `json:"status_emoji"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// SetStatus calls users.profile.set with the given token. Empty text and emoji
// clear the status. Re-sending the same status is harmless; Slack treats it as
// a no-op overwrite, so callers need no idempotence bookkeeping.
func (c *Client) SetStatus(ctx context.Context, token, user, text, emoji string) error {
	body, err := json.Marshal(profileSetRequest{
		User:    user,
		Profile: profile{StatusText: text, StatusEmoji: emoji},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/users.profile.set", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return types.Err(types.ErrTimeout, err, "status update timed out")
		}
		return types.Err(types.ErrUpstream, err, "")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.Err(types.ErrUpstream, err, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &types.UpstreamError{API: "slack", Status: resp.StatusCode, Body: string(respBody)}
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return types.Err(types.ErrUpstream, err, "malformed slack response")
	}
	if !api.OK {
		return &types.UpstreamError{API: "slack", Status: resp.StatusCode, PlatformCode: api.Error}
	}
	return nil
}
