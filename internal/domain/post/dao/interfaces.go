package dao

import (
	"context"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// StatusCounts maps post statuses to counts for one user
type StatusCounts map[entity.PostStatus]int

// PostRepository defines data access for scheduled posts
type PostRepository interface {
	// Create inserts a new scheduled post
	Create(ctx context.Context, post *entity.ScheduledPost) error

	// GetByID retrieves a post with its account embedded; nil when missing
	GetByID(ctx context.Context, id string) (*entity.ScheduledPost, error)

	// FetchDue retrieves up to limit posts that are due for a pass:
	// status = scheduled, scheduled_for <= now, account active.
	// Accounts come embedded so the pipeline makes no extra lookups.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]entity.ScheduledPost, error)

	// SetStatus advances a post between pipeline statuses. Conditional on
	// the current status so a concurrent cancel is never overwritten;
	// returns false when the post already left the expected status.
	SetStatus(ctx context.Context, id string, from, to entity.PostStatus) (bool, error)

	// SetPosted marks a post published with its platform-assigned id.
	// The update is conditional on the current status being posting so a
	// concurrent cancel is never overwritten; returns false when skipped.
	SetPosted(ctx context.Context, id, platformPostID string, postedAt time.Time) (bool, error)

	// Reschedule returns a post to scheduled for a later attempt
	Reschedule(ctx context.Context, id string, nextAttemptAt time.Time, retryCount int, lastError string) error

	// MarkFailed moves a post to failed with a human-readable reason
	MarkFailed(ctx context.Context, id, lastError string) error

	// CancelIfPending cancels a post unless it already reached a terminal
	// status; returns false when the post was already posted or cancelled
	CancelIfPending(ctx context.Context, id, userID string) (bool, error)

	// ResetForRetry returns a failed post to scheduled with retry_count 0
	// and scheduled_for = now; returns false when the post is not failed
	ResetForRetry(ctx context.Context, id, userID string, now time.Time) (bool, error)

	// RecoverStale returns posts stuck in processing/posting longer than
	// the staleness cutoff back to scheduled; returns how many moved
	RecoverStale(ctx context.Context, updatedBefore time.Time) (int, error)

	// CountByStatus aggregates a user's posts per status
	CountByStatus(ctx context.Context, userID string) (StatusCounts, error)

	// ListRecent retrieves a user's most recently updated posts
	ListRecent(ctx context.Context, userID string, limit int) ([]entity.ScheduledPost, error)
}

// AccountRepository defines read-only access to connected accounts.
// Account management lives in the connection layer; the queue only reads.
type AccountRepository interface {
	// GetByID retrieves an account; nil when missing
	GetByID(ctx context.Context, id string) (*entity.Account, error)

	// ListByUser retrieves a user's connected accounts
	ListByUser(ctx context.Context, userID string) ([]entity.Account, error)
}
