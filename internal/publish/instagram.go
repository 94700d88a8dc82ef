package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/httpx/upstream/instagram"
)

// InstagramPublisher publishes media posts through the two-step container
// workflow: create a media container, then publish it. Both steps belong
// to the same attempt for retry accounting.
type InstagramPublisher struct {
	client *instagram.Client
	gate   gateAcquirer

	containerPollInterval time.Duration
	containerPollAttempts int
}

type gateAcquirer interface {
	Acquire(platform string) error
}

// NewInstagramPublisher creates an Instagram publisher behind the rate gate
func NewInstagramPublisher(client *instagram.Client, gate gateAcquirer) *InstagramPublisher {
	return &InstagramPublisher{
		client:                client,
		gate:                  gate,
		containerPollInterval: 5 * time.Second,
		containerPollAttempts: 30,
	}
}

// Publish sends the post to Instagram. Instagram is media-first: a post
// without media fails before any network call is made.
func (p *InstagramPublisher) Publish(ctx context.Context, post *entity.ScheduledPost) (*Result, error) {
	if !post.HasMedia() {
		return nil, entity.InvalidContentFailure("instagram posts require at least one media item")
	}

	account := post.Account

	if err := p.acquire(); err != nil {
		return nil, err
	}
	if _, err := p.client.GetProfile(ctx, instagram.GetProfileInput{
		AccessToken: account.AccessToken,
	}); err != nil {
		f := classifyInstagramError(err)
		if f.Kind == entity.FailurePlatform && !f.Retryable {
			// The platform rejected the credential itself; retrying
			// without a token refresh cannot succeed.
			return nil, entity.InvalidTokenFailure(f.Message, false)
		}
		return nil, f
	}

	// Step 1: create the media container
	if err := p.acquire(); err != nil {
		return nil, err
	}
	containerIn := instagram.CreateMediaContainerInput{
		UserID:      account.PlatformUserID,
		AccessToken: account.AccessToken,
		Caption:     composeMessage(post),
	}
	mediaURL := post.MediaURLs[0]
	if isVideoURL(mediaURL) {
		containerIn.VideoURL = mediaURL
	} else {
		containerIn.ImageURL = mediaURL
	}

	container, err := p.client.CreateMediaContainer(ctx, containerIn)
	if err != nil {
		return nil, classifyInstagramError(err)
	}

	// Video containers are processed asynchronously; wait until ready
	if containerIn.VideoURL != "" {
		if err := p.waitForContainer(ctx, container.ID, account.AccessToken); err != nil {
			return nil, entity.AsFailure(err)
		}
	}

	// Step 2: publish the container. A failure here fails the whole
	// attempt; the orphaned container expires server-side within 24h.
	if err := p.acquire(); err != nil {
		return nil, err
	}
	published, err := p.client.PublishMedia(ctx, instagram.PublishMediaInput{
		UserID:      account.PlatformUserID,
		AccessToken: account.AccessToken,
		ContainerID: container.ID,
	})
	if err != nil {
		f := classifyInstagramError(err)
		f.Message = fmt.Sprintf("publishing container %s: %s", container.ID, f.Message)
		return nil, f
	}

	return &Result{PlatformPostID: published.ID}, nil
}

func (p *InstagramPublisher) acquire() error {
	if err := p.gate.Acquire(string(entity.PlatformInstagram)); err != nil {
		return classifyGateError(entity.PlatformInstagram, err)
	}
	return nil
}

// waitForContainer polls container status until it is ready for publishing
func (p *InstagramPublisher) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	for i := 0; i < p.containerPollAttempts; i++ {
		if err := p.acquire(); err != nil {
			return err
		}
		status, err := p.client.GetContainerStatus(ctx, instagram.GetContainerStatusInput{
			ContainerID: containerID,
			AccessToken: accessToken,
		})
		if err != nil {
			return classifyInstagramError(err)
		}

		switch status.Status {
		case instagram.ContainerStatusFinished, instagram.ContainerStatusPublished:
			return nil
		case instagram.ContainerStatusError:
			return entity.PlatformFailure(fmt.Sprintf("container processing failed: %s", status.ErrorMessage), true)
		case instagram.ContainerStatusExpired:
			return entity.PlatformFailure("media container expired before publishing", true)
		case instagram.ContainerStatusInProgress:
			// keep polling
		}

		select {
		case <-ctx.Done():
			return entity.NetworkFailure(ctx.Err())
		case <-time.After(p.containerPollInterval):
		}
	}

	return entity.PlatformFailure("media container was not ready in time", true)
}

// classifyInstagramError maps client errors onto the failure taxonomy
func classifyInstagramError(err error) *entity.Failure {
	var apiErr *instagram.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsAuthError() {
			return entity.PlatformFailure(apiErr.Error(), false)
		}
		return entity.PlatformFailure(apiErr.Error(), true)
	}
	var f *entity.Failure
	if errors.As(err, &f) {
		return f
	}
	return entity.NetworkFailure(err)
}

func isVideoURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasSuffix(lower, ".mp4") || strings.HasSuffix(lower, ".mov")
}
