package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	httpx "review-responder/internal/common/http"
	"review-responder/internal/common/logger"
)

// upstreamBodyLimit bounds how much of a provider error body is carried in
// the returned error. Enough to tell rate limiting from an auth failure.
const upstreamBodyLimit = 2048

// Client issues chat-completion requests to the external provider. One
// network call per invocation, no internal retries: retrying a paid LLM call
// on an ambiguous failure risks double billing, so retry policy stays with
// the caller.
type Client struct {
	config *Config
	http   *httpx.Client
	logger logger.Logger
}

func NewClient(config *Config, hc *httpx.Client, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   hc,
		logger: log.WithFields(map[string]interface{}{"component": "completion-client"}),
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one message sequence and returns the raw completion text.
// The caller's context is propagated through to the HTTP call, so an
// abandoned request stops consuming provider quota. The configured timeout
// caps the call even when the caller passes an unbounded context.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, upstreamBodyLimit))
		c.logger.Error("completion provider error", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(excerpt),
		})
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(excerpt))
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: provider returned no text", ErrEmptyCompletion)
	}

	return completion.Choices[0].Message.Content, nil
}
