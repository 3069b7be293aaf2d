package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// Compile-time interface check.
var _ Client = (*Gemini)(nil)

// Gemini implements Client over the Google Generative Language API. The
// backend id is the model name (e.g. "gemini-2.5-flash").
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini client. Close must be called to release it.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: API key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: cl}, nil
}

// Close releases the underlying connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Invoke generates one completion for prompt.
func (g *Gemini) Invoke(ctx context.Context, backendID, prompt string, maxTokens int) (string, error) {
	m := g.client.GenerativeModel(strings.TrimSpace(backendID))
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &TransportError{Backend: backendID, Status: geminiStatus(err), Err: err}
	}

	text := strings.TrimSpace(firstText(resp))
	if text == "" {
		return "", fmt.Errorf("gemini %s: %w", backendID, ErrEmptyResponse)
	}
	return text, nil
}

// geminiStatus maps an API error onto an HTTP-style status. Quota exhaustion
// is reported as 402 so it classifies as ErrQuotaExceeded.
func geminiStatus(err error) int {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return 0
	}
	if st := apiErr.GRPCStatus(); st != nil && st.Code() == codes.ResourceExhausted {
		return http.StatusPaymentRequired
	}
	if apiErr.Reason() == "RESOURCE_EXHAUSTED" {
		return http.StatusPaymentRequired
	}
	if code := apiErr.HTTPCode(); code > 0 {
		return code
	}
	return 0
}

// firstText returns the first text part of the first candidate that has one.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
