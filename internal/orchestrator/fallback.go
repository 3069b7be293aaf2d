package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/diverge/internal/backend"
)

// ErrAllBackendsFailed is returned when every direct fallback backend failed.
var ErrAllBackendsFailed = errors.New("all backends failed")

// step is one attempt in a cascade.
type step[T any] struct {
	name string
	run  func(ctx context.Context) (T, error)
}

// cascade runs steps in order and returns the first success along with the
// index of the step that produced it. When every step fails the attempt
// errors are joined. A canceled context stops the cascade early.
func cascade[T any](ctx context.Context, steps []step[T], onFail func(name string, err error)) (T, int, error) {
	var zero T
	errs := make([]error, 0, len(steps))
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := s.run(ctx)
		if err == nil {
			return v, i, nil
		}
		errs = append(errs, err)
		if onFail != nil {
			onFail(s.name, err)
		}
	}
	if len(errs) == 0 {
		return zero, -1, errors.New("no attempts configured")
	}
	return zero, -1, errors.Join(errs...)
}

// errNoSolutions marks a reply that decoded but held no usable solution.
func errNoSolutions(backendID string) error {
	return &backend.MalformedPayloadError{Reason: "no usable solutions from " + backendID}
}

// invokeWithin calls client.Invoke under a deadline of timeout when timeout
// is positive. An expired deadline surfaces as an ordinary call failure.
func invokeWithin(ctx context.Context, client backend.Client, timeout time.Duration, backendID, prompt string, maxTokens int) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return client.Invoke(ctx, backendID, prompt, maxTokens)
}

// solutionCall invokes backendID with prompt and decodes a non-empty
// solution list capped at limit.
func solutionCall(ctx context.Context, client backend.Client, timeout time.Duration, backendID, prompt string, maxTokens, limit int) ([]Solution, error) {
	raw, err := invokeWithin(ctx, client, timeout, backendID, prompt, maxTokens)
	if err != nil {
		return nil, err
	}
	solutions, err := parseSolutions(raw, backendID)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", backendID, err)
	}
	if len(solutions) == 0 {
		return nil, errNoSolutions(backendID)
	}
	if len(solutions) > limit {
		solutions = solutions[:limit]
	}
	return solutions, nil
}

// DirectFallback answers the problem without candidates by asking each
// configured backend in order for the final solutions.
type DirectFallback struct {
	client    backend.Client
	backends  []string
	count     int
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDirectFallback creates a DirectFallback over backends, tried in order.
// Each attempt is bounded by timeout when it is positive.
func NewDirectFallback(client backend.Client, backends []string, count, maxTokens int, timeout time.Duration, logger *zap.Logger) *DirectFallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectFallback{
		client:    client,
		backends:  backends,
		count:     count,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run returns the first non-empty parseable list. If every backend fails the
// error wraps ErrAllBackendsFailed and each attempt's failure.
func (d *DirectFallback) Run(ctx context.Context, problem string) (Reduction, error) {
	prompt := directPrompt(problem, d.count)
	steps := make([]step[[]Solution], 0, len(d.backends))
	for _, id := range d.backends {
		steps = append(steps, step[[]Solution]{
			name: id,
			run: func(ctx context.Context) ([]Solution, error) {
				return solutionCall(ctx, d.client, d.timeout, id, prompt, d.maxTokens, d.count)
			},
		})
	}

	solutions, idx, err := cascade(ctx, steps, func(name string, err error) {
		d.logger.Warn("direct fallback attempt failed",
			zap.String("backend", name),
			zap.String("outcome", backend.Outcome(err)),
			zap.Error(err),
		)
	})
	if err != nil {
		return Reduction{}, fmt.Errorf("direct fallback: %w: %w", ErrAllBackendsFailed, err)
	}
	return Reduction{Solutions: solutions, Path: PathDirectFallback, Backend: steps[idx].name}, nil
}
