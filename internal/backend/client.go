// Package backend issues single prompt requests to named text-generation
// backends and classifies their failures.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Client is the interface for anything that can run one prompt against one
// named backend.
type Client interface {
	// Invoke sends prompt to the backend identified by backendID with an
	// output budget of maxTokens and returns the raw completion text.
	Invoke(ctx context.Context, backendID, prompt string, maxTokens int) (string, error)
}

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrQuotaExceeded signals that the backend refused the request for
	// billing or quota reasons. Retrying the same backend is pointless.
	ErrQuotaExceeded = errors.New("backend: quota exceeded")

	// ErrEmptyResponse is returned when the backend answered but carried no
	// completion text.
	ErrEmptyResponse = errors.New("backend: empty response")

	// ErrMalformedPayload is matched by every MalformedPayloadError.
	ErrMalformedPayload = errors.New("backend: malformed payload")

	// ErrUnknownBackend is returned by Router when no provider serves an id.
	ErrUnknownBackend = errors.New("backend: unknown backend")
)

// TransportError describes a network failure (Status == 0) or a non-success
// HTTP status returned by a backend.
type TransportError struct {
	Backend string
	Status  int
	Body    string
	Err     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend %s: transport: %v", e.Backend, e.Err)
	}
	msg := fmt.Sprintf("backend %s: HTTP %d", e.Backend, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports quota failures as ErrQuotaExceeded.
func (e *TransportError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.Status == http.StatusPaymentRequired
}

// Retryable reports whether sending the same request to the same backend
// again could plausibly succeed.
func (e *TransportError) Retryable() bool {
	if e.Status == 0 {
		return e.Err != nil && !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return e.Status >= 500
}

// MalformedPayloadError is returned when completion text cannot be decoded
// into the shape a stage expects.
type MalformedPayloadError struct {
	Reason string
	Raw    string
	Err    error
}

// Error implements the error interface.
func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend: malformed payload: %s: %v", e.Reason, e.Err)
	}
	return "backend: malformed payload: " + e.Reason
}

// Unwrap returns the decoder error.
func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformedPayload.
func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// IsQuota reports whether err is a quota failure.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsRetryable reports whether err is a transport failure worth retrying on
// the same backend.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// Outcome classifies err into a short label used for logs and metrics.
func Outcome(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, ErrUnknownBackend):
		return "unknown"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &te):
		return "transport"
	default:
		return "error"
	}
}

// truncate shortens s to at most n bytes for error messages.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
