// Package resilience provides the retry and circuit-breaker plumbing shared
// by every paid-service call in the enrichment pipeline.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// RateLimitError marks an HTTP 429 from an external dependency. The
// pipeline retries rate-limited calls exactly once after a fixed backoff;
// a second 429 fails the owning step.
type RateLimitError struct {
	Service string
	Err     error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: rate limited", e.Service)
	}
	return fmt.Sprintf("%s: rate limited: %v", e.Service, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err as a 429 from the named service.
func NewRateLimitError(service string, err error) *RateLimitError {
	return &RateLimitError{Service: service, Err: err}
}

// IsRateLimit reports whether err (or anything in its chain) is a
// RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// TransientError wraps an error that is safe to retry: 5xx, timeouts,
// connection resets. Rate limits are transient too but carry their own
// type because their retry policy differs.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP
// status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether the error chain contains a TransientError or
// RateLimitError, or matches common network-level transient failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if IsRateLimit(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wrapped client errors lose their type; fall back to message matching.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
