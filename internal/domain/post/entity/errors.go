package entity

import "errors"

// Domain errors for scheduled posts
var (
	// Validation errors
	ErrEmptyContent    = errors.New("post content is required")
	ErrEmptyAccountID  = errors.New("account ID is required")
	ErrInvalidPlatform = errors.New("unsupported platform")

	// Business logic errors
	ErrPostNotFound      = errors.New("post not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInactive   = errors.New("account is not active")
	ErrAlreadyPosted     = errors.New("post was already published and cannot be cancelled")
	ErrNotCancellable    = errors.New("post cannot be cancelled in current status")
	ErrNotRetryable      = errors.New("only failed posts can be retried")
	ErrPostNotOwnedByYou = errors.New("post belongs to another user")
)
