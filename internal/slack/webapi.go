// Package slack connects AskDoc to Slack over Socket Mode: a websocket
// for inbound events, the Web API for posting and updating messages.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/formatters"
)

const webAPIBase = "https://slack.com/api"

// WebClient calls the Slack Web API. The app token opens Socket Mode
// connections; the bot token posts messages.
type WebClient struct {
	baseURL    string
	botToken   string
	appToken   string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewWebClient creates a Slack Web API client
func NewWebClient(botToken, appToken string, logger arbor.ILogger) *WebClient {
	return &WebClient{
		baseURL:    webAPIBase,
		botToken:   botToken,
		appToken:   appToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	URL   string `json:"url"`
	TS    string `json:"ts"`
}

// OpenConnection requests a Socket Mode websocket URL via
// apps.connections.open.
func (c *WebClient) OpenConnection(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, "apps.connections.open", c.appToken, nil)
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("apps.connections.open returned no URL")
	}
	return resp.URL, nil
}

// PostMessage posts blocks to a channel and returns the message timestamp
// used for later updates.
func (c *WebClient) PostMessage(ctx context.Context, channel string, msg *formatters.SlackMessage) (string, error) {
	body := map[string]interface{}{
		"channel": channel,
		"text":    msg.Text,
	}
	if len(msg.Blocks) > 0 {
		body["blocks"] = msg.Blocks
	}
	resp, err := c.call(ctx, "chat.postMessage", c.botToken, body)
	if err != nil {
		return "", err
	}
	return resp.TS, nil
}

// UpdateMessage replaces a previously posted message in place.
func (c *WebClient) UpdateMessage(ctx context.Context, channel, ts string, msg *formatters.SlackMessage) error {
	body := map[string]interface{}{
		"channel": channel,
		"ts":      ts,
		"text":    msg.Text,
	}
	if len(msg.Blocks) > 0 {
		body["blocks"] = msg.Blocks
	}
	_, err := c.call(ctx, "chat.update", c.botToken, body)
	return err
}

func (c *WebClient) call(ctx context.Context, method, token string, body map[string]interface{}) (*apiResponse, error) {
	var payload bytes.Buffer
	if body == nil {
		body = map[string]interface{}{}
	}
	if err := json.NewEncoder(&payload).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s returned error: %s", method, resp.Error)
	}
	return &resp, nil
}
