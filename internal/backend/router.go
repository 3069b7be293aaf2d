package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Compile-time interface check.
var _ Client = (*Router)(nil)

// Provider names recognised as backend id prefixes.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
)

// Router dispatches a backend id of the form "<provider>:<model>" to the
// registered provider, stripping the prefix. Ids without a registered
// prefix go to the default provider unchanged.
type Router struct {
	providers map[string]Client
	fallback  string
}

// NewRouter creates a Router whose unprefixed ids go to defaultProvider.
func NewRouter(defaultProvider string) *Router {
	return &Router{
		providers: make(map[string]Client),
		fallback:  defaultProvider,
	}
}

// Register associates a provider name with a client.
func (r *Router) Register(name string, c Client) {
	r.providers[name] = c
}

// Providers returns the registered provider names in sorted order.
func (r *Router) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the client and provider-local model id for backendID.
func (r *Router) Resolve(backendID string) (Client, string, error) {
	if provider, model, ok := strings.Cut(backendID, ":"); ok {
		if c, found := r.providers[provider]; found {
			return c, model, nil
		}
	}
	if c, found := r.providers[r.fallback]; found {
		return c, backendID, nil
	}
	return nil, "", fmt.Errorf("%w: %q (no provider registered)", ErrUnknownBackend, backendID)
}

// Invoke resolves backendID and forwards the call.
func (r *Router) Invoke(ctx context.Context, backendID, prompt string, maxTokens int) (string, error) {
	c, model, err := r.Resolve(backendID)
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, model, prompt, maxTokens)
}
