package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Client = (*OpenRouter)(nil)

// DefaultOpenRouterURL is the base URL of the OpenRouter chat completions API.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 2 << 20

// OpenRouter implements Client against any OpenAI-compatible
// /chat/completions endpoint. The backend id is sent as the model name.
type OpenRouter struct {
	baseURL string
	apiKey  string
	http    *http.Client
	headers map[string]string
}

// OpenRouterOption configures an OpenRouter client.
type OpenRouterOption func(*OpenRouter)

// WithBaseURL points the client at a different OpenAI-compatible server.
func WithBaseURL(u string) OpenRouterOption {
	return func(c *OpenRouter) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) OpenRouterOption {
	return func(c *OpenRouter) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) OpenRouterOption {
	return func(c *OpenRouter) {
		c.http = hc
	}
}

// WithHeader adds a static header to every request (e.g. HTTP-Referer).
func WithHeader(key, value string) OpenRouterOption {
	return func(c *OpenRouter) {
		c.headers[key] = value
	}
}

// NewOpenRouter creates a client authenticating with apiKey.
func NewOpenRouter(apiKey string, opts ...OpenRouterOption) *OpenRouter {
	c := &OpenRouter{
		baseURL: DefaultOpenRouterURL,
		apiKey:  strings.TrimSpace(apiKey),
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Invoke sends one chat completion request.
func (c *OpenRouter) Invoke(ctx context.Context, backendID, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     backendID,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openrouter: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &TransportError{Backend: backendID, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{Backend: backendID, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{Backend: backendID, Status: resp.StatusCode, Body: truncate(string(respBody), 300)}
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &TransportError{Backend: backendID, Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}

	// Some gateways report upstream failures inside a 200 envelope.
	if out.Error != nil {
		status := http.StatusBadGateway
		if code, ok := out.Error.Code.(float64); ok && code >= 400 {
			status = int(code)
		}
		return "", &TransportError{Backend: backendID, Status: status, Body: out.Error.Message}
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter %s: %w", backendID, ErrEmptyResponse)
	}
	text := strings.TrimSpace(messageText(out.Choices[0].Message.Content))
	if text == "" {
		text = strings.TrimSpace(out.Choices[0].Text)
	}
	if text == "" {
		return "", fmt.Errorf("openrouter %s: %w", backendID, ErrEmptyResponse)
	}
	return text, nil
}

// messageText flattens a chat message content that is either a plain string
// or an array of typed text parts.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if json.Unmarshal(raw, &parts) != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
