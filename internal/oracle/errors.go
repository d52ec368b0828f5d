package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// The transports normalize every provider failure into one of two tagged
// error values before it reaches the engine: RetryableError drives the
// backoff loop, QuotaError short-circuits it. Anything else is fatal and
// fails the call on the first attempt.

// RetryableError marks a transient provider failure (rate limiting or a
// server-side error). The engine may retry the call.
type RetryableError struct {
	Status int
	Err    error
}

func (e *RetryableError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient oracle error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient oracle error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// QuotaError marks an exhausted-quota or billing failure. Never retried.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string { return fmt.Sprintf("insufficient quota: %v", e.Err) }

func (e *QuotaError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is tagged transient.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsQuota reports whether err is tagged as a quota/billing failure.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// quotaMarkers are body substrings that identify billing exhaustion even
// when the provider reports it under a generic status code.
var quotaMarkers = []string{
	"insufficient_quota",
	"insufficient quota",
	"billing_hard_limit",
	"quota exceeded",
	"resource_exhausted: quota",
}

// Classify maps an HTTP status code and response body onto the error
// taxonomy: 429 and 5xx are transient, 402 and quota markers are fatal
// quota errors, everything else is a plain (fatal) error.
func Classify(status int, body string) error {
	base := fmt.Errorf("API request failed with status %d: %s", status, truncate(body, 300))

	lower := strings.ToLower(body)
	if status == 402 {
		return &QuotaError{Err: base}
	}
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return &QuotaError{Err: base}
		}
	}
	if status == 429 || status >= 500 {
		return &RetryableError{Status: status, Err: base}
	}
	return base
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
