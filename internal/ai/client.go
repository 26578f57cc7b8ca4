// Package ai wraps an OpenAI-compatible chat-completions endpoint for
// generating game recaps and highlight descriptions.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("ai client is not configured")

// Client calls a chat-completions API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a Client. An empty apiKey produces a disabled client whose
// Complete always returns ErrDisabled.
func New(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// Complete sends a system and user prompt and returns the first choice.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("completion %s: %s", resp.Status, msg)
	}

	content := gjson.GetBytes(body, "choices.0.message.content").String()
	if content == "" {
		return "", fmt.Errorf("completion returned no content")
	}
	return strings.TrimSpace(content), nil
}
