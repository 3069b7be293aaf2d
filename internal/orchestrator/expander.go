package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/diverge/internal/backend"
)

// Expander rewrites a problem into several differently-angled perspectives
// with a single backend call.
type Expander struct {
	client    backend.Client
	backendID string
	count     int
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewExpander creates an Expander that asks backendID for count perspectives.
// The call is bounded by timeout when it is positive.
func NewExpander(client backend.Client, backendID string, count, maxTokens int, timeout time.Duration, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		client:    client,
		backendID: backendID,
		count:     count,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}
}

// Expand returns at most count perspectives. A reply that cannot be decoded
// yields an empty list; an error is returned only when the call itself
// produced no text.
func (e *Expander) Expand(ctx context.Context, problem string) ([]Perspective, error) {
	raw, err := invokeWithin(ctx, e.client, e.timeout, e.backendID, expanderPrompt(problem, e.count), e.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("expander %s: %w", e.backendID, err)
	}

	perspectives, err := parsePerspectives(raw, e.count)
	if err != nil {
		e.logger.Warn("expander reply not usable, continuing without perspectives",
			zap.String("backend", e.backendID),
			zap.Error(err),
		)
		return []Perspective{}, nil
	}
	if len(perspectives) < e.count {
		e.logger.Info("expander returned fewer perspectives than requested",
			zap.String("backend", e.backendID),
			zap.Int("requested", e.count),
			zap.Int("got", len(perspectives)),
		)
	}
	return perspectives, nil
}
