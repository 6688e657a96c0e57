package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://slack.com/api/"
	UserAgent      = "kenall-slack-bot"

	timeout = 3 * time.Second
	maxSize = 1 << 20 // 1 MiB.
)

// Client calls Slack Web API methods with a bot token, except
// [Client.OpenConnection] which requires an app-level token.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewClient(botToken string) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		botToken:   botToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL overrides [DefaultBaseURL], e.g. for GovSlack
// ("https://slack-gov.com/api/"). It must end with a slash.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	URL   string `json:"url,omitempty"`
}

// OpenView opens a modal view, based on
// https://docs.slack.dev/reference/methods/views.open.
func (c *Client) OpenView(ctx context.Context, triggerID string, v View) error {
	req := map[string]any{"trigger_id": triggerID, "view": v}
	_, err := c.call(ctx, "views.open", c.botToken, req)
	return err
}

// UpdateView replaces an existing modal view, based on
// https://docs.slack.dev/reference/methods/views.update.
func (c *Client) UpdateView(ctx context.Context, viewID string, v View) error {
	req := map[string]any{"view_id": viewID, "view": v}
	_, err := c.call(ctx, "views.update", c.botToken, req)
	return err
}

// OpenConnection generates a temporary Socket Mode WebSocket URL ("wss://...")
// that an unpublished Slack app can connect to, to receive events and interactive
// payloads. Based on https://docs.slack.dev/reference/methods/apps.connections.open.
func (c *Client) OpenConnection(ctx context.Context, appToken string) (string, error) {
	resp, err := c.call(ctx, "apps.connections.open", appToken, nil)
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) call(ctx context.Context, method, token string, payload any) (*apiResponse, error) {
	// Construct and send the request.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, body)
	if err != nil {
		return nil, fmt.Errorf("failed to construct HTTP request: %w", err)
	}

	req.Header.Add("Authorization", "Bearer "+token)
	req.Header.Add("User-Agent", UserAgent)
	if payload != nil {
		req.Header.Add("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	// Read and parse the response.
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if len(respBody) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, string(respBody))
		}
		return nil, errors.New(msg)
	}

	decoded := &apiResponse{}
	if err := json.Unmarshal(respBody, decoded); err != nil {
		return nil, fmt.Errorf("failed to parse JSON in HTTP response body: %w", err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("Slack API error: %s", decoded.Error)
	}

	return decoded, nil
}

// PostResponse sends a message to a slash command's response URL.
// See https://docs.slack.dev/interactivity/handling-user-interaction#message_responses.
func (c *Client) PostResponse(ctx context.Context, responseURL string, msg CommandResponse) error {
	if responseURL == "" {
		return errors.New("missing response URL")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode JSON request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to construct HTTP request: %w", err)
	}

	req.Header.Add("Content-Type", "application/json; charset=utf-8")
	req.Header.Add("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	// Response URLs reply with "ok" in plain text, not the usual JSON envelope.
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxSize))
		return fmt.Errorf("response URL error: %s: %s", resp.Status, string(respBody))
	}

	return nil
}
