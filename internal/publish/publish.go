package publish

import (
	"context"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// Result is the normalized outcome of a successful publish attempt
type Result struct {
	PlatformPostID string
}

// Publisher translates a generic post into the calls required by one
// platform. Implementations return *entity.Failure for classified
// failures; any other error is treated as a retryable platform failure.
type Publisher interface {
	Publish(ctx context.Context, post *entity.ScheduledPost) (*Result, error)
}

// Registry maps platforms to publisher variants. Adding a platform means
// registering a variant, not branching in the queue.
type Registry struct {
	publishers map[entity.Platform]Publisher
}

// NewRegistry creates an empty publisher registry
func NewRegistry() *Registry {
	return &Registry{publishers: make(map[entity.Platform]Publisher)}
}

// Register adds a publisher variant for a platform
func (r *Registry) Register(platform entity.Platform, p Publisher) {
	r.publishers[platform] = p
}

// Get returns the publisher for a platform
func (r *Registry) Get(platform entity.Platform) (Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}
