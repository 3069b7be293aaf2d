package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// ErrStreamEnded is returned when a stream closes without a result or error
// event.
var ErrStreamEnded = errors.New("stream ended without a result")

// RemoteError is an error reported by a diverge server.
type RemoteError struct {
	Status int
	APIError
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("server: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls a remote diverge server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the server at baseURL. A nil hc uses a
// client without a timeout; runs are bounded by the caller's context.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Run proposes solutions for problem without streaming progress.
// It satisfies Runner, so a Server can front another server.
func (c *Client) Run(ctx context.Context, problem string) (*orchestrator.Result, error) {
	resp, err := c.post(ctx, "/v1/solutions", problem)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeRemoteError(resp)
	}
	var res orchestrator.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// Stream proposes solutions for problem, calling onProgress for every
// progress event the server sends before the result.
func (c *Client) Stream(ctx context.Context, problem string, onProgress func(orchestrator.ProgressEvent)) (*orchestrator.Result, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := c.post(ctx, "/v1/solutions/stream", problem)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeRemoteError(resp)
	}

	for ev := range ReadEvents(ctx, resp.Body) {
		if ev.Err != nil {
			return nil, ev.Err
		}
		switch ev.Name {
		case EventProgress:
			var pe orchestrator.ProgressEvent
			if err := json.Unmarshal(ev.Data, &pe); err != nil {
				return nil, fmt.Errorf("decode progress: %w", err)
			}
			if onProgress != nil {
				onProgress(pe)
			}
		case EventResult:
			var res orchestrator.Result
			if err := json.Unmarshal(ev.Data, &res); err != nil {
				return nil, fmt.Errorf("decode result: %w", err)
			}
			return &res, nil
		case EventError:
			var apiErr APIError
			if err := json.Unmarshal(ev.Data, &apiErr); err != nil {
				return nil, fmt.Errorf("decode error event: %w", err)
			}
			return nil, &RemoteError{APIError: apiErr}
		}
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return nil, ErrStreamEnded
}

func (c *Client) post(ctx context.Context, path, problem string) (*http.Response, error) {
	body, err := json.Marshal(proposeRequest{Problem: problem})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	return resp, nil
}

func decodeRemoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Error APIError `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || body.Error.Code == "" {
		return &RemoteError{Status: resp.StatusCode, APIError: APIError{
			Code:    http.StatusText(resp.StatusCode),
			Message: strings.TrimSpace(string(raw)),
		}}
	}
	return &RemoteError{Status: resp.StatusCode, APIError: body.Error}
}
