package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/postpilot/internal/domain/post/dao"
	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// recentPostsLimit caps the recent-posts list in queue status responses
const recentPostsLimit = 10

// Service handles user-facing queue operations: enqueue, cancel, retry,
// and queue status. The processing pipeline itself lives in the policy
// package.
type Service struct {
	posts    dao.PostRepository
	accounts dao.AccountRepository
}

// New creates a new post service
func New(posts dao.PostRepository, accounts dao.AccountRepository) *Service {
	return &Service{posts: posts, accounts: accounts}
}

// EnqueueInput represents input for scheduling a post
type EnqueueInput struct {
	UserID       string
	AccountID    string
	Content      string
	MediaURLs    []string
	Hashtags     string
	ScheduledFor time.Time
}

// Enqueue creates a new post in scheduled status
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (*entity.ScheduledPost, error) {
	if in.AccountID == "" {
		return nil, entity.ErrEmptyAccountID
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, entity.ErrEmptyContent
	}

	account, err := s.accounts.GetByID(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.UserID != in.UserID {
		return nil, entity.ErrAccountNotFound
	}
	if !account.Active {
		return nil, entity.ErrAccountInactive
	}
	if !entity.IsValidPlatform(account.Platform) {
		return nil, entity.ErrInvalidPlatform
	}

	now := time.Now()
	scheduledFor := in.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = now
	}

	post := &entity.ScheduledPost{
		ID:           uuid.New().String(),
		UserID:       in.UserID,
		AccountID:    in.AccountID,
		Account:      account,
		Content:      in.Content,
		MediaURLs:    in.MediaURLs,
		Hashtags:     in.Hashtags,
		Status:       entity.PostStatusScheduled,
		ScheduledFor: scheduledFor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// GetPost retrieves a post owned by the user
func (s *Service) GetPost(ctx context.Context, id, userID string) (*entity.ScheduledPost, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrPostNotFound
	}
	if post.UserID != userID {
		return nil, entity.ErrPostNotOwnedByYou
	}
	return post, nil
}

// Cancel cancels a post that has not yet been published. The update is
// conditional: if the publish completed first the posted status wins and
// ErrAlreadyPosted is returned.
func (s *Service) Cancel(ctx context.Context, id, userID string) (*entity.ScheduledPost, error) {
	post, err := s.GetPost(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.posts.CancelIfPending(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		if post.Status == entity.PostStatusPosted {
			return nil, entity.ErrAlreadyPosted
		}
		return nil, entity.ErrNotCancellable
	}

	return s.posts.GetByID(ctx, id)
}

// Retry resets a failed post to scheduled with retry_count 0, making it
// due immediately
func (s *Service) Retry(ctx context.Context, id, userID string) (*entity.ScheduledPost, error) {
	if _, err := s.GetPost(ctx, id, userID); err != nil {
		return nil, err
	}

	reset, err := s.posts.ResetForRetry(ctx, id, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if !reset {
		return nil, entity.ErrNotRetryable
	}

	return s.posts.GetByID(ctx, id)
}

// QueueStatus summarizes a user's queue: counts per status plus the most
// recently updated posts
type QueueStatus struct {
	Counts dao.StatusCounts       `json:"counts"`
	Recent []entity.ScheduledPost `json:"recent"`
}

// GetQueueStatus returns the queue summary for one user
func (s *Service) GetQueueStatus(ctx context.Context, userID string) (*QueueStatus, error) {
	counts, err := s.posts.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.posts.ListRecent(ctx, userID, recentPostsLimit)
	if err != nil {
		return nil, err
	}

	return &QueueStatus{Counts: counts, Recent: recent}, nil
}

// ListAccounts returns a user's connected accounts
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]entity.Account, error) {
	return s.accounts.ListByUser(ctx, userID)
}
