package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrProviderUnavailable is returned when no source is configured.
var ErrProviderUnavailable = errors.New("provider unavailable")

// NetworkError is a transport-level failure: DNS, connection reset, timeout.
// It is always transient.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return fmt.Sprintf("network error calling %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError captures a non-success HTTP status from the upstream.
type UpstreamError struct {
	Status     int
	Endpoint   string
	RetryAfter time.Duration
	Message    string
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "upstream error"
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("%s (status=%d endpoint=%s)", msg, e.Status, e.Endpoint)
	}
	return fmt.Sprintf("%s (status=%d)", msg, e.Status)
}

// Retryable reports whether the status is worth another attempt: 5xx and 429.
func (e *UpstreamError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// RateLimited reports whether the upstream asked us to slow down.
func (e *UpstreamError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// AsUpstreamError attempts to unwrap an error into an UpstreamError.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// IsRetryable classifies an error from a Source. Network errors and retryable
// statuses are transient; cancellation and everything else are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	if upErr, ok := AsUpstreamError(err); ok {
		return upErr.Retryable()
	}
	return false
}

// ParseRetryAfter reads a Retry-After header in either seconds or HTTP-date form.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
