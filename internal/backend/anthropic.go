package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Compile-time interface check.
var _ Client = (*Anthropic)(nil)

// AnthropicConfig contains configuration for creating an Anthropic client.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key.
	APIKey string
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
	// MaxRetries is passed to the SDK. Retries across backends are handled
	// by the orchestrator, so the default is zero.
	MaxRetries int
}

// Anthropic implements Client over the Anthropic Messages API. The backend
// id is the model name (e.g. "claude-3-5-haiku-latest").
type Anthropic struct {
	inner anthropic.Client
}

// NewAnthropic creates an Anthropic client.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{inner: anthropic.NewClient(opts...)}, nil
}

// Invoke sends one user message and concatenates the text blocks of the reply.
func (a *Anthropic) Invoke(ctx context.Context, backendID, prompt string, maxTokens int) (string, error) {
	resp, err := a.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(backendID),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &TransportError{Backend: backendID, Status: apiErr.StatusCode, Body: truncate(apiErr.Error(), 300)}
		}
		return "", &TransportError{Backend: backendID, Err: err}
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(block.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("anthropic %s: %w", backendID, ErrEmptyResponse)
	}
	return text, nil
}
