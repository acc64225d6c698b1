// Package telegram sends operational notifications through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.telegram.org"

// Notifier sends messages to a fixed chat.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *client) { c.httpClient = h }
}

// WithBaseURL overrides the API host, for tests.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

type client struct {
	httpClient *http.Client
	token      string
	chatID     string
	baseURL    string
}

// New creates a Notifier for the given bot token and chat.
func New(token, chatID string, opts ...Option) Notifier {
	c := &client{
		httpClient: http.DefaultClient,
		token:      token,
		chatID:     chatID,
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *client) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: c.chatID, Text: message})
	if err != nil {
		return eris.Wrap(err, "telegram: marshal request")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "telegram: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "telegram: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "telegram: read body")
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return eris.Wrapf(err, "telegram: parse response, status %d", resp.StatusCode)
	}
	if !parsed.OK {
		return eris.Errorf("telegram: api error: %s", parsed.Description)
	}
	return nil
}

// Nop returns a Notifier that drops every message. Used when no bot token
// is configured.
func Nop() Notifier {
	return nopNotifier{}
}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, string) error { return nil }
