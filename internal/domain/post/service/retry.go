package service

import (
	"time"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// MaxRetries is the number of automatic attempts after the first failure
const MaxRetries = 3

// retryDelays is the backoff schedule indexed by attempt number (1-based).
// Attempts past the end of the table clamp to the last entry. Deliberately
// deterministic rather than jittered so behavior is predictable and
// testable.
var retryDelays = []time.Duration{
	30 * time.Second,
	60 * time.Second,
	5 * time.Minute,
	15 * time.Minute,
}

// RetryPolicy decides whether and when a failed post is retried
type RetryPolicy struct {
	maxRetries int
	delays     []time.Duration
}

// NewRetryPolicy creates the default retry policy
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{maxRetries: MaxRetries, delays: retryDelays}
}

// ShouldRetry reports whether the post gets another automatic attempt.
// Non-retryable failures and content defects never retry; otherwise the
// post retries until the attempt budget is spent.
func (p *RetryPolicy) ShouldRetry(post *entity.ScheduledPost, failure *entity.Failure) bool {
	if failure == nil {
		return false
	}
	if !failure.Retryable {
		return false
	}
	if failure.IsContentFailure() {
		return false
	}
	return post.RetryCount < p.maxRetries
}

// NextDelay returns the wait before the given attempt (1-based), clamped
// to the last table entry
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(p.delays) {
		attempt = len(p.delays)
	}
	return p.delays[attempt-1]
}
