package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TimeoutError indicates the per-request timeout elapsed.
type TimeoutError struct{ Err error }

func (e TimeoutError) Error() string { return fmt.Sprintf("timeout: %v", e.Err) }
func (e TimeoutError) Unwrap() error { return e.Err }

// ConnectionError indicates a transport-level fault before a response.
type ConnectionError struct{ Err error }

func (e ConnectionError) Error() string { return fmt.Sprintf("connection: %v", e.Err) }
func (e ConnectionError) Unwrap() error { return e.Err }

// ForbiddenError indicates the store refused the request (HTTP 401/403),
// usually a password-protected storefront.
type ForbiddenError struct{ Err error }

func (e ForbiddenError) Error() string { return fmt.Sprintf("forbidden: %v", e.Err) }
func (e ForbiddenError) Unwrap() error { return e.Err }

// RateLimitedError indicates the store throttled the request (HTTP 429).
type RateLimitedError struct{ Err error }

func (e RateLimitedError) Error() string { return fmt.Sprintf("rate_limited: %v", e.Err) }
func (e RateLimitedError) Unwrap() error { return e.Err }

// classifyError wraps a fetch failure in the typed error matching its
// cause, preferring timeout and transport categories over status codes.
func classifyError(err error, statusCode int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutError{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ConnectionError{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ForbiddenError{Err: wrapped}
		case http.StatusTooManyRequests:
			return RateLimitedError{Err: wrapped}
		}
	}
	return err
}

// errorLabel maps a classified error onto the label used for logs and the
// errors_total metric.
func errorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout TimeoutError
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ConnectionError
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ForbiddenError
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var limited RateLimitedError
	if errors.As(err, &limited) {
		return "rate_limited"
	}
	return "other"
}
