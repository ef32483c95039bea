// Package openai implements the chat-completion port against any
// OpenAI-compatible endpoint (OpenAI itself, or a compatible gateway).
package openai

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

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

// Client calls the /chat/completions endpoint with bearer auth.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

// New constructs a Client. timeout bounds each call; no retries are made.
func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		hc:      &http.Client{Timeout: timeout},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation and returns choices[0].message.content.
func (c *Client) Complete(ctx domain.Context, messages []domain.ChatMessage) (string, error) {
	start := time.Now()
	out, err := c.complete(ctx, messages)
	observability.ObserveLLMRequest("openai", "chat", time.Since(start), err)
	return out, err
}

func (c *Client) complete(ctx domain.Context, messages []domain.ChatMessage) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY missing", domain.ErrInvalidArgument)
	}
	wire := make([]wireMessage, len(messages))
	for i, m := range messages {
		wire[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: wire, Stream: false})
	if err != nil {
		return "", fmt.Errorf("op=openai.chat marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=openai.chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", fmt.Errorf("%w: openai chat: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("op=openai.chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: openai chat status %d: %s", domain.ErrUpstreamStatus, resp.StatusCode, string(snippet))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("op=openai.chat decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("op=openai.chat: empty choices")
	}
	return result.Choices[0].Message.Content, nil
}

func isClientTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
