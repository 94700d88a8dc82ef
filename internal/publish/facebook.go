package publish

import (
	"context"
	"errors"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/httpx/upstream/facebook"
	"github.com/vadim/postpilot/internal/ratelimit"
)

// FacebookPublisher publishes posts to a Facebook page feed. Text-only
// posts and media posts use different Graph API operations.
type FacebookPublisher struct {
	client *facebook.Client
	gate   gateAcquirer
}

// NewFacebookPublisher creates a Facebook publisher behind the rate gate
func NewFacebookPublisher(client *facebook.Client, gate gateAcquirer) *FacebookPublisher {
	return &FacebookPublisher{client: client, gate: gate}
}

// Publish sends the post to the page identified by the account
func (p *FacebookPublisher) Publish(ctx context.Context, post *entity.ScheduledPost) (*Result, error) {
	account := post.Account

	// Cheap token check before the real call; a rejected token cannot
	// succeed on retry without an out-of-band refresh.
	if err := p.acquire(); err != nil {
		return nil, err
	}
	introspection, err := p.client.DebugToken(ctx, facebook.DebugTokenInput{
		AccessToken: account.AccessToken,
	})
	if err != nil {
		return nil, classifyFacebookError(err)
	}
	if !introspection.IsValid {
		return nil, entity.InvalidTokenFailure("facebook access token rejected by introspection", false)
	}

	if err := p.acquire(); err != nil {
		return nil, err
	}

	if post.HasMedia() {
		out, err := p.client.CreatePhotoPost(ctx, facebook.CreatePhotoPostInput{
			PageID:      account.PlatformUserID,
			AccessToken: account.AccessToken,
			PhotoURL:    post.MediaURLs[0],
			Caption:     composeMessage(post),
		})
		if err != nil {
			return nil, classifyFacebookError(err)
		}
		id := out.PostID
		if id == "" {
			id = out.ID
		}
		return &Result{PlatformPostID: id}, nil
	}

	out, err := p.client.CreateFeedPost(ctx, facebook.CreateFeedPostInput{
		PageID:      account.PlatformUserID,
		AccessToken: account.AccessToken,
		Message:     composeMessage(post),
	})
	if err != nil {
		return nil, classifyFacebookError(err)
	}
	return &Result{PlatformPostID: out.ID}, nil
}

func (p *FacebookPublisher) acquire() error {
	if err := p.gate.Acquire(string(entity.PlatformFacebook)); err != nil {
		return classifyGateError(entity.PlatformFacebook, err)
	}
	return nil
}

// classifyFacebookError maps client errors onto the failure taxonomy.
// Authorization/permission error codes are non-retryable; every other
// platform-reported code is retryable by default. Transport errors are
// always retryable.
func classifyFacebookError(err error) *entity.Failure {
	var apiErr *facebook.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsAuthError() {
			return entity.PlatformFailure(apiErr.Error(), false)
		}
		return entity.PlatformFailure(apiErr.Error(), true)
	}
	return entity.NetworkFailure(err)
}

// classifyGateError converts a rate-gate denial into a retryable failure
// carrying the wait hint
func classifyGateError(platform entity.Platform, err error) *entity.Failure {
	var denied *ratelimit.Denied
	if errors.As(err, &denied) {
		return entity.RateLimitedFailure(platform, time.Duration(denied.RetryAfterSeconds)*time.Second)
	}
	return entity.AsFailure(err)
}

// composeMessage appends stored hashtags to the post content
func composeMessage(post *entity.ScheduledPost) string {
	if post.Hashtags == "" {
		return post.Content
	}
	return post.Content + "\n\n" + post.Hashtags
}
