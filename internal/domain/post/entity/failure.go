package entity

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies a publishing failure
type FailureKind string

const (
	FailureRateLimited    FailureKind = "rate_limited"
	FailurePlatform       FailureKind = "platform_error"
	FailureNetwork        FailureKind = "network_error"
	FailureInvalidContent FailureKind = "invalid_content"
	FailureMissingAccount FailureKind = "missing_account"
	FailureInvalidToken   FailureKind = "invalid_token"
)

// Failure is a classified publishing failure. Retryable decides whether the
// retry policy may reschedule the post; RetryAfter is a wait hint set only
// for rate-limit denials.
type Failure struct {
	Kind       FailureKind
	Retryable  bool
	RetryAfter time.Duration
	Message    string
	cause      error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// IsContentFailure reports whether retrying cannot fix the post itself
func (f *Failure) IsContentFailure() bool {
	return f.Kind == FailureInvalidContent
}

// RateLimitedFailure builds a retryable rate-limit denial with a wait hint
func RateLimitedFailure(platform Platform, retryAfter time.Duration) *Failure {
	return &Failure{
		Kind:       FailureRateLimited,
		Retryable:  true,
		RetryAfter: retryAfter,
		Message:    fmt.Sprintf("%s rate limit exceeded, retry after %s", platform, retryAfter),
	}
}

// PlatformFailure builds a platform-reported failure
func PlatformFailure(message string, retryable bool) *Failure {
	return &Failure{Kind: FailurePlatform, Retryable: retryable, Message: message}
}

// NetworkFailure wraps a transport-level error; always retryable
func NetworkFailure(err error) *Failure {
	return &Failure{Kind: FailureNetwork, Retryable: true, Message: err.Error(), cause: err}
}

// InvalidContentFailure builds a content-defect failure; never retryable
func InvalidContentFailure(message string) *Failure {
	return &Failure{Kind: FailureInvalidContent, Retryable: false, Message: message}
}

// MissingAccountFailure builds an account failure; reconnection is a user
// action, so automatic retry is pointless.
func MissingAccountFailure(message string) *Failure {
	return &Failure{Kind: FailureMissingAccount, Retryable: false, Message: message}
}

// InvalidTokenFailure builds a credential failure. Retryable when the
// credential may be refreshed out-of-band before the next attempt,
// non-retryable when the platform itself rejected the token.
func InvalidTokenFailure(message string, retryable bool) *Failure {
	return &Failure{Kind: FailureInvalidToken, Retryable: retryable, Message: message}
}

// AsFailure extracts a classified failure from err, wrapping unknown errors
// as retryable platform failures so a transient bug never strands a post.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: FailurePlatform, Retryable: true, Message: err.Error(), cause: err}
}
