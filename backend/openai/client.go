package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	turnkit "github.com/stephencalder/turnkit"
)

// DefaultBaseURL is the OpenAI API endpoint. Any chat-completions
// compatible server works (the wire format is the common SSE convention).
const DefaultBaseURL = "https://api.openai.com/v1"

// Client is a ModelBackend speaking the chat-completions streaming wire.
// It performs exactly one HTTP exchange per turn and hands the raw body to
// the stream parser; it does not interpret the stream itself.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature *float64
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a compatible server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithModel sets the model identifier sent with each request.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client authenticating with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      "gpt-4o-mini",
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamTurn sends the turn history and tool declarations and returns the
// live response stream. Non-success statuses become *turnkit.TransportError
// carrying the status and body; the stream itself is returned untouched for
// the parser. Cancelling ctx unblocks reads on the returned body.
func (c *Client) StreamTurn(ctx context.Context, turns []turnkit.Turn, tools []turnkit.Tool, systemPrompt string) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	req := request{
		Model:         c.model,
		Messages:      toWireMessages(systemPrompt, turns),
		Tools:         toWireTools(tools),
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
		MaxTokens:     c.maxTokens,
		Temperature:   c.temperature,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &turnkit.TransportError{Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, &turnkit.TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, nil
}
