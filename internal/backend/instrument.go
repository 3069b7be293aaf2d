package backend

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Compile-time interface check.
var _ Client = (*Instrumented)(nil)

// Observer receives one observation per backend attempt.
type Observer interface {
	ObserveCall(backendID, outcome string, elapsed time.Duration)
}

// Instrumented decorates a Client with logging, call observation and bounded
// retries of retryable transport failures.
type Instrumented struct {
	next     Client
	logger   *zap.Logger
	observer Observer
	retries  int
	backoff  time.Duration
}

// InstrumentOption configures an Instrumented client.
type InstrumentOption func(*Instrumented)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) InstrumentOption {
	return func(c *Instrumented) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the call observer (typically Prometheus metrics).
func WithObserver(o Observer) InstrumentOption {
	return func(c *Instrumented) {
		c.observer = o
	}
}

// WithRetries allows up to n extra attempts per call, waiting
// attempt*backoff between them.
func WithRetries(n int, backoff time.Duration) InstrumentOption {
	return func(c *Instrumented) {
		if n < 0 {
			n = 0
		}
		c.retries = n
		c.backoff = backoff
	}
}

// Instrument wraps next.
func Instrument(next Client, opts ...InstrumentOption) *Instrumented {
	c := &Instrumented{
		next:   next,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke forwards the call, retrying only failures that IsRetryable accepts.
// Quota failures are never retried on the same backend.
func (c *Instrumented) Invoke(ctx context.Context, backendID, prompt string, maxTokens int) (string, error) {
	var (
		text string
		err  error
	)
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		start := time.Now()
		text, err = c.next.Invoke(ctx, backendID, prompt, maxTokens)
		elapsed := time.Since(start)
		outcome := Outcome(err)

		if c.observer != nil {
			c.observer.ObserveCall(backendID, outcome, elapsed)
		}

		if err == nil {
			c.logger.Debug("backend call",
				zap.String("backend", backendID),
				zap.Int("attempt", attempt+1),
				zap.Int("chars", len(text)),
				zap.Duration("duration", elapsed),
			)
			return text, nil
		}

		c.logger.Warn("backend call failed",
			zap.String("backend", backendID),
			zap.String("outcome", outcome),
			zap.Int("attempt", attempt+1),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return "", err
}
