package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// PostPostgres implements PostRepository for PostgreSQL
type PostPostgres struct {
	pool *pgxpool.Pool
}

// NewPostPostgres creates a new PostgreSQL post repository
func NewPostPostgres(pool *pgxpool.Pool) *PostPostgres {
	return &PostPostgres{pool: pool}
}

const postColumns = `
	p.id, p.user_id, p.account_id, p.content, p.media_urls, p.hashtags,
	p.status, p.scheduled_for, p.retry_count, p.last_error,
	p.platform_post_id, p.posted_at, p.created_at, p.updated_at
`

const accountColumns = `
	a.id, a.user_id, a.platform, a.platform_user_id, a.access_token, a.active
`

// Create inserts a new scheduled post
func (r *PostPostgres) Create(ctx context.Context, post *entity.ScheduledPost) error {
	query := `
		INSERT INTO scheduled_posts
			(id, user_id, account_id, content, media_urls, hashtags,
			 status, scheduled_for, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		post.ID,
		post.UserID,
		post.AccountID,
		post.Content,
		post.MediaURLs,
		post.Hashtags,
		post.Status,
		post.ScheduledFor,
		post.RetryCount,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	return nil
}

// GetByID retrieves a post with its account embedded
func (r *PostPostgres) GetByID(ctx context.Context, id string) (*entity.ScheduledPost, error) {
	query := `
		SELECT ` + postColumns + `, ` + accountColumns + `
		FROM scheduled_posts p
		JOIN social_accounts a ON a.id = p.account_id
		WHERE p.id = $1
	`

	post, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning post: %w", err)
	}

	return post, nil
}

// FetchDue retrieves posts ready for a processing pass. The limit caps a
// single pass's duration; leftovers wait for the next tick.
func (r *PostPostgres) FetchDue(ctx context.Context, now time.Time, limit int) ([]entity.ScheduledPost, error) {
	query := `
		SELECT ` + postColumns + `, ` + accountColumns + `
		FROM scheduled_posts p
		JOIN social_accounts a ON a.id = p.account_id
		WHERE p.status = $1
		  AND p.scheduled_for <= $2
		  AND a.active = true
		ORDER BY p.scheduled_for
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, entity.PostStatusScheduled, now, limit)
	if err != nil {
		return nil, fmt.Errorf("querying due posts: %w", err)
	}
	defer rows.Close()

	var posts []entity.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning due post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating due posts: %w", err)
	}

	return posts, nil
}

// SetStatus advances a post between pipeline statuses. Conditional on the
// expected current status: a cancel landing between pipeline steps keeps
// its cancelled status and the claim reports a miss instead.
func (r *PostPostgres) SetStatus(ctx context.Context, id string, from, to entity.PostStatus) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("updating post status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetPosted marks a post published. Conditional on the post still being
// in posting so a cancel that won the race is preserved.
func (r *PostPostgres) SetPosted(ctx context.Context, id, platformPostID string, postedAt time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $2, platform_post_id = $3, posted_at = $4,
		    last_error = '', updated_at = $5
		WHERE id = $1 AND status = $6
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		entity.PostStatusPosted,
		platformPostID,
		postedAt,
		time.Now(),
		entity.PostStatusPosting,
	)
	if err != nil {
		return false, fmt.Errorf("marking post posted: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Reschedule returns a post to scheduled for the next attempt
func (r *PostPostgres) Reschedule(ctx context.Context, id string, nextAttemptAt time.Time, retryCount int, lastError string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $2, scheduled_for = $3, retry_count = $4,
		    last_error = $5, updated_at = $6
		WHERE id = $1 AND status NOT IN ($7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		id,
		entity.PostStatusScheduled,
		nextAttemptAt,
		retryCount,
		lastError,
		time.Now(),
		entity.PostStatusPosted,
		entity.PostStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("rescheduling post: %w", err)
	}

	return nil
}

// MarkFailed moves a post to failed with the last error message
func (r *PostPostgres) MarkFailed(ctx context.Context, id, lastError string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $2, last_error = $3, updated_at = $4
		WHERE id = $1 AND status NOT IN ($5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		id,
		entity.PostStatusFailed,
		lastError,
		time.Now(),
		entity.PostStatusPosted,
		entity.PostStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("marking post failed: %w", err)
	}

	return nil
}

// CancelIfPending cancels a post unless it already reached a terminal
// status. Last-writer-wins is unacceptable here: a publish that completed
// first must keep its posted status.
func (r *PostPostgres) CancelIfPending(ctx context.Context, id, userID string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status NOT IN ($5, $6)
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		userID,
		entity.PostStatusCancelled,
		time.Now(),
		entity.PostStatusPosted,
		entity.PostStatusCancelled,
	)
	if err != nil {
		return false, fmt.Errorf("cancelling post: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ResetForRetry returns a failed post to scheduled, resetting the retry
// counter. This is the only path that decreases retry_count.
func (r *PostPostgres) ResetForRetry(ctx context.Context, id, userID string, now time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $3, scheduled_for = $4, retry_count = 0,
		    last_error = '', updated_at = $5
		WHERE id = $1 AND user_id = $2 AND status = $6
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		userID,
		entity.PostStatusScheduled,
		now,
		time.Now(),
		entity.PostStatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("resetting post for retry: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// RecoverStale returns posts stranded mid-pipeline by a crashed pass back
// to scheduled without touching their retry counters
func (r *PostPostgres) RecoverStale(ctx context.Context, updatedBefore time.Time) (int, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE status IN ($3, $4) AND updated_at < $5
	`

	tag, err := r.pool.Exec(ctx, query,
		entity.PostStatusScheduled,
		time.Now(),
		entity.PostStatusProcessing,
		entity.PostStatusPosting,
		updatedBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("recovering stale posts: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CountByStatus aggregates a user's posts per status
func (r *PostPostgres) CountByStatus(ctx context.Context, userID string) (StatusCounts, error) {
	query := `
		SELECT status, COUNT(*)
		FROM scheduled_posts
		WHERE user_id = $1
		GROUP BY status
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("counting posts: %w", err)
	}
	defer rows.Close()

	counts := make(StatusCounts)
	for rows.Next() {
		var status entity.PostStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return counts, nil
}

// ListRecent retrieves a user's most recently updated posts
func (r *PostPostgres) ListRecent(ctx context.Context, userID string, limit int) ([]entity.ScheduledPost, error) {
	query := `
		SELECT ` + postColumns + `, ` + accountColumns + `
		FROM scheduled_posts p
		JOIN social_accounts a ON a.id = p.account_id
		WHERE p.user_id = $1
		ORDER BY p.updated_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent posts: %w", err)
	}
	defer rows.Close()

	var posts []entity.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recent post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent posts: %w", err)
	}

	return posts, nil
}

// scanPost scans one joined post+account row
func scanPost(row pgx.Row) (*entity.ScheduledPost, error) {
	var post entity.ScheduledPost
	var account entity.Account
	var lastError, platformPostID *string
	var postedAt *time.Time

	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.AccountID,
		&post.Content,
		&post.MediaURLs,
		&post.Hashtags,
		&post.Status,
		&post.ScheduledFor,
		&post.RetryCount,
		&lastError,
		&platformPostID,
		&postedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
		&account.ID,
		&account.UserID,
		&account.Platform,
		&account.PlatformUserID,
		&account.AccessToken,
		&account.Active,
	)
	if err != nil {
		return nil, err
	}

	if lastError != nil {
		post.LastError = *lastError
	}
	if platformPostID != nil {
		post.PlatformPostID = *platformPostID
	}
	post.PostedAt = postedAt
	post.Account = &account

	return &post, nil
}
