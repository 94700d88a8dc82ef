package entity

import (
	"time"
)

// Platform identifies an external social platform
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// PostStatus represents the current status of a scheduled post
type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusProcessing PostStatus = "processing"
	PostStatusPosting    PostStatus = "posting"
	PostStatusPosted     PostStatus = "posted"
	PostStatusFailed     PostStatus = "failed"
	PostStatusCancelled  PostStatus = "cancelled"
)

// Account is a connected external-platform account, read-only for the queue.
// Token acquisition and refresh are owned by the connection-management layer.
type Account struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	Platform       Platform `json:"platform"`
	PlatformUserID string   `json:"platform_user_id"`
	AccessToken    string   `json:"-"`
	Active         bool     `json:"active"`
}

// ScheduledPost is one unit of publishing work
type ScheduledPost struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	AccountID      string     `json:"account_id"`
	Account        *Account   `json:"account,omitempty"`
	Content        string     `json:"content"`
	MediaURLs      []string   `json:"media_urls,omitempty"`
	Hashtags       string     `json:"hashtags,omitempty"`
	Status         PostStatus `json:"status"`
	ScheduledFor   time.Time  `json:"scheduled_for"`
	RetryCount     int        `json:"retry_count"`
	LastError      string     `json:"last_error,omitempty"`
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	PostedAt       *time.Time `json:"posted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasMedia reports whether the post carries at least one media reference
func (p *ScheduledPost) HasMedia() bool {
	return len(p.MediaURLs) > 0
}

// IsTerminal reports whether no further automatic transition applies.
// A failed post is terminal for the queue but can be reset by the user.
func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPosted || s == PostStatusCancelled
}

// IsCancellable reports whether a user cancel may still apply
func (s PostStatus) IsCancellable() bool {
	return s == PostStatusScheduled || s == PostStatusProcessing || s == PostStatusPosting
}

// IsValidStatus reports whether s is a known post status
func IsValidStatus(s PostStatus) bool {
	switch s {
	case PostStatusScheduled, PostStatusProcessing, PostStatusPosting,
		PostStatusPosted, PostStatusFailed, PostStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValidPlatform reports whether p has a registered publisher variant
func IsValidPlatform(p Platform) bool {
	switch p {
	case PlatformFacebook, PlatformInstagram:
		return true
	default:
		return false
	}
}
