// Package ollama implements the chat-completion port against a locally
// hosted Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

// Client communicates with a local Ollama instance over HTTP.
type Client struct {
	baseURL string
	model   string
	hc      *http.Client
}

// New creates a Client targeting the given Ollama base URL and model.
// timeout bounds each chat call; on expiry the call is abandoned, never
// retried.
func New(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      &http.Client{Timeout: timeout},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatResponse is the JSON returned by POST /api/chat (non-streaming).
type chatResponse struct {
	Message wireMessage `json:"message"`
}

// Complete sends the conversation to the model and returns the assistant's
// reply content verbatim.
func (c *Client) Complete(ctx domain.Context, messages []domain.ChatMessage) (string, error) {
	start := time.Now()
	out, err := c.complete(ctx, messages)
	observability.ObserveLLMRequest("ollama", "chat", time.Since(start), err)
	return out, err
}

func (c *Client) complete(ctx domain.Context, messages []domain.ChatMessage) (string, error) {
	wire := make([]wireMessage, len(messages))
	for i, m := range messages {
		wire[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: wire, Stream: false})
	if err != nil {
		return "", fmt.Errorf("op=ollama.chat marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=ollama.chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", fmt.Errorf("%w: ollama chat: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=ollama.chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama chat status %d", domain.ErrUpstreamStatus, resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("op=ollama.chat decode: %w", err)
	}
	return result.Message.Content, nil
}

// Ping returns nil if the Ollama server responds to GET /api/tags with 200.
// Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	return nil
}

func isClientTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
