package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/dao"
	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/service"
	"github.com/vadim/postpilot/internal/publish"
)

// defaultBatchSize caps how many due posts one pass claims; it also bounds
// the pass's parallelism
const defaultBatchSize = 10

// defaultStaleAfter is how long a post may sit in processing/posting
// before it is treated as abandoned by a dead pass and made due again
const defaultStaleAfter = 10 * time.Minute

// Processor drives due posts through validation, publishing, and outcome
// handling. One Processor owns one pass guard; independent instances can
// run side by side in tests.
type Processor struct {
	posts      dao.PostRepository
	publishers *publish.Registry
	retry      *service.RetryPolicy
	logger     *slog.Logger

	guard      PassGuard
	batchSize  int
	staleAfter time.Duration
	now        func() time.Time
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithBatchSize overrides the per-pass batch size
func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithStaleAfter overrides the stuck-post recovery cutoff; zero disables
// recovery
func WithStaleAfter(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.staleAfter = d
	}
}

// WithClock overrides the time source for tests
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a queue processor
func NewProcessor(posts dao.PostRepository, publishers *publish.Registry, retry *service.RetryPolicy, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		posts:      posts,
		publishers: publishers,
		retry:      retry,
		logger:     logger,
		batchSize:  defaultBatchSize,
		staleAfter: defaultStaleAfter,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessDuePosts runs one pass: recover stale posts, fetch due posts,
// and process them concurrently. At most one pass runs at a time; an
// overlapping call returns immediately.
func (p *Processor) ProcessDuePosts(ctx context.Context) error {
	if !p.guard.TryAcquire() {
		p.logger.Debug("processing pass already running, skipping tick")
		return nil
	}
	defer p.guard.Release()

	if p.staleAfter > 0 {
		recovered, err := p.posts.RecoverStale(ctx, p.now().Add(-p.staleAfter))
		if err != nil {
			p.logger.Warn("failed to recover stale posts", "error", err)
		} else if recovered > 0 {
			p.logger.Info("recovered stale posts", "count", recovered)
		}
	}

	posts, err := p.posts.FetchDue(ctx, p.now(), p.batchSize)
	if err != nil {
		return fmt.Errorf("fetching due posts: %w", err)
	}
	if len(posts) == 0 {
		return nil
	}

	p.logger.Info("processing due posts", "count", len(posts))

	// Per-post pipelines run concurrently; one post's failure never
	// touches another's outcome.
	sem := make(chan struct{}, p.batchSize)
	var wg sync.WaitGroup
	for i := range posts {
		post := posts[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			p.processPost(ctx, &post)
		}()
	}
	wg.Wait()

	return nil
}

// processPost runs one post's pipeline: validate, publish, resolve outcome
func (p *Processor) processPost(ctx context.Context, post *entity.ScheduledPost) {
	logger := p.logger.With("post_id", post.ID, "account_id", post.AccountID)

	// Claims are conditional on the expected prior status: a user cancel
	// landing between pipeline steps wins and the pipeline walks away.
	claimed, err := p.posts.SetStatus(ctx, post.ID, entity.PostStatusScheduled, entity.PostStatusProcessing)
	if err != nil {
		logger.Error("failed to mark post processing", "error", err)
		return
	}
	if !claimed {
		logger.Info("post left scheduled status before the pass claimed it, skipping")
		return
	}

	if failure := service.ValidatePost(post, post.Account); failure != nil {
		logger.Warn("post failed validation", "failure", failure.Kind, "error", failure.Message)
		p.resolveFailure(ctx, post, failure)
		return
	}

	publisher, ok := p.publishers.Get(post.Account.Platform)
	if !ok {
		p.resolveFailure(ctx, post, entity.PlatformFailure(
			fmt.Sprintf("no publisher registered for platform %q", post.Account.Platform), false))
		return
	}

	claimed, err = p.posts.SetStatus(ctx, post.ID, entity.PostStatusProcessing, entity.PostStatusPosting)
	if err != nil {
		logger.Error("failed to mark post posting", "error", err)
		return
	}
	if !claimed {
		logger.Info("post left processing status before publish, skipping")
		return
	}

	result, err := publisher.Publish(ctx, post)
	if err != nil {
		failure := entity.AsFailure(err)
		logger.Warn("publish attempt failed",
			"platform", post.Account.Platform,
			"failure", failure.Kind,
			"retryable", failure.Retryable,
			"attempt", post.RetryCount+1,
			"error", failure.Message)
		p.resolveFailure(ctx, post, failure)
		return
	}

	updated, err := p.posts.SetPosted(ctx, post.ID, result.PlatformPostID, p.now())
	if err != nil {
		logger.Error("failed to persist posted status", "error", err)
		return
	}
	if !updated {
		// A concurrent cancel won the race after the publish call went
		// out; the remote post exists but our record stays cancelled.
		logger.Warn("publish succeeded but post left posting state, keeping current status",
			"platform_post_id", result.PlatformPostID)
		return
	}

	logger.Info("post published",
		"platform", post.Account.Platform,
		"platform_post_id", result.PlatformPostID)
}

// resolveFailure reschedules the post with backoff or marks it failed
func (p *Processor) resolveFailure(ctx context.Context, post *entity.ScheduledPost, failure *entity.Failure) {
	logger := p.logger.With("post_id", post.ID)

	if !p.retry.ShouldRetry(post, failure) {
		if err := p.posts.MarkFailed(ctx, post.ID, failure.Error()); err != nil {
			logger.Error("failed to mark post failed", "error", err)
		}
		return
	}

	attempt := post.RetryCount + 1
	delay := p.retry.NextDelay(attempt)
	if failure.RetryAfter > delay {
		// The platform told us when capacity returns; no point retrying
		// sooner.
		delay = failure.RetryAfter
	}

	nextAt := p.now().Add(delay)
	if err := p.posts.Reschedule(ctx, post.ID, nextAt, attempt, failure.Error()); err != nil {
		logger.Error("failed to reschedule post", "error", err)
		return
	}

	logger.Info("post rescheduled", "attempt", attempt, "next_attempt_at", nextAt)
}
