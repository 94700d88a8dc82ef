package service

import (
	"strings"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// ValidatePost checks a due post's preconditions before any network call.
// Rules run in order and short-circuit on the first violation. No side
// effects.
func ValidatePost(post *entity.ScheduledPost, account *entity.Account) *entity.Failure {
	if account == nil {
		return entity.MissingAccountFailure("post has no connected account")
	}

	if !account.Active {
		return entity.MissingAccountFailure("connected account is inactive")
	}

	if strings.TrimSpace(post.Content) == "" {
		return entity.InvalidContentFailure("post content is empty")
	}

	// An empty credential may be refreshed out-of-band before the next
	// attempt, so this one stays retryable.
	if account.AccessToken == "" {
		return entity.InvalidTokenFailure("account has no access token", true)
	}

	return nil
}
