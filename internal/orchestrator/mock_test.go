package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dusk-indust/diverge/internal/backend"
)

type call struct {
	backend   string
	prompt    string
	maxTokens int
}

// mockClient implements backend.Client with a configurable function and
// records every call.
type mockClient struct {
	invoke func(ctx context.Context, backendID, prompt string) (string, error)

	mu    sync.Mutex
	calls []call
}

func (m *mockClient) Invoke(ctx context.Context, backendID, prompt string, maxTokens int) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call{backend: backendID, prompt: prompt, maxTokens: maxTokens})
	m.mu.Unlock()
	return m.invoke(ctx, backendID, prompt)
}

func (m *mockClient) backends() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.backend
	}
	return out
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockClient) promptFor(backendID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.backend == backendID {
			return c.prompt
		}
	}
	return ""
}

// routes answers each backend id with its own function. Unlisted ids fail.
func routes(m map[string]func(ctx context.Context, prompt string) (string, error)) *mockClient {
	return &mockClient{
		invoke: func(ctx context.Context, backendID, prompt string) (string, error) {
			fn, ok := m[backendID]
			if !ok {
				return "", fmt.Errorf("%w: %s", backend.ErrUnknownBackend, backendID)
			}
			return fn(ctx, prompt)
		},
	}
}

func reply(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

func fail(err error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return "", err }
}

// hang blocks until the call's context ends.
func hang(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func quota(id string) error {
	return &backend.TransportError{Backend: id, Status: 402}
}

// solutionsJSON renders n solutions named prefix-1..prefix-n.
func solutionsJSON(prefix string, n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"name":"%s-%d","description":"description of %s-%d","complexity":"medium"}`,
			prefix, i+1, prefix, i+1)
	}
	return `{"solutions":[` + strings.Join(items, ",") + `]}`
}

func perspectivesJSON(labels ...string) string {
	items := make([]string, len(labels))
	for i, l := range labels {
		items[i] = fmt.Sprintf(`{"label":%q,"prompt":"restated for %s"}`, l, l)
	}
	return "```json\n{\"perspectives\":[" + strings.Join(items, ",") + "]}\n```"
}

func makeCandidates(n int) []Solution {
	out := make([]Solution, n)
	for i := range out {
		out[i] = Solution{
			Name:          fmt.Sprintf("cand-%d", i+1),
			Description:   fmt.Sprintf("candidate description %d", i+1),
			PerspectiveID: fmt.Sprintf("p%d", i%3+1),
			Backend:       "gen",
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Roster = []string{"gen-a", "gen-b", "gen-c"}
	cfg.Expander = "expander"
	cfg.PrimaryJudge = "judge"
	cfg.AlternateJudges = []string{"alt-1", "alt-2"}
	cfg.DirectFallbacks = []string{"direct-a", "direct-b"}
	cfg.CallTimeout = 0
	return cfg
}
