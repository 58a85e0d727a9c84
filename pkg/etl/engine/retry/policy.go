// Package retry defines the retry policy consulted by pipelines when a
// step execution fails.
package retry

import (
	"time"

	"github.com/driftworks/cascade/pkg/etl/support/util/exception"
)

// Policy decides whether a failed step attempt is retried and how long
// to back off between attempts.
type Policy interface {
	// ShouldRetry reports whether the given error is worth retrying.
	ShouldRetry(err error) bool
	// BackoffInterval returns the wait before the next attempt.
	// attempt starts at 1 for the first retry.
	BackoffInterval(attempt int) time.Duration
	// MaxRetries returns the number of retries allowed after the first
	// attempt.
	MaxRetries() int
}

// fixedIntervalPolicy retries every retryable error a bounded number of
// times with a constant delay.
type fixedIntervalPolicy struct {
	maxRetries int
	interval   time.Duration
}

// NewFixedIntervalPolicy creates a Policy with a constant backoff.
func NewFixedIntervalPolicy(maxRetries int, interval time.Duration) Policy {
	return &fixedIntervalPolicy{
		maxRetries: maxRetries,
		interval:   interval,
	}
}

// ShouldRetry defers to the error's retryable flag. Validation failures
// and other errors explicitly marked non-retryable fail immediately.
func (p *fixedIntervalPolicy) ShouldRetry(err error) bool {
	return exception.IsRetryable(err)
}

// BackoffInterval returns the constant configured interval.
func (p *fixedIntervalPolicy) BackoffInterval(attempt int) time.Duration {
	return p.interval
}

// MaxRetries returns the configured retry bound.
func (p *fixedIntervalPolicy) MaxRetries() int {
	return p.maxRetries
}

var _ Policy = (*fixedIntervalPolicy)(nil)
