package policy

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vadim/postpilot/internal/domain/post/dao"
	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/service"
	"github.com/vadim/postpilot/internal/publish"
)

// memoryRepo is an in-memory dao.PostRepository for processor tests
type memoryRepo struct {
	mu    sync.Mutex
	posts map[string]*entity.ScheduledPost

	fetchErr error

	// when set, FetchDue signals fetchStarted and blocks until fetchRelease
	// is closed; used to hold a pass open
	fetchStarted chan struct{}
	fetchRelease chan struct{}

	// test hooks, run outside the repo lock
	afterFetch  func()
	beforeClaim func(to entity.PostStatus)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: make(map[string]*entity.ScheduledPost)}
}

func (r *memoryRepo) add(post *entity.ScheduledPost) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *post
	r.posts[post.ID] = &cp
}

func (r *memoryRepo) get(id string) entity.ScheduledPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.posts[id]
}

func (r *memoryRepo) Create(ctx context.Context, post *entity.ScheduledPost) error {
	r.add(post)
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*entity.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *post
	return &cp, nil
}

func (r *memoryRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]entity.ScheduledPost, error) {
	if r.fetchStarted != nil {
		r.fetchStarted <- struct{}{}
		<-r.fetchRelease
	}

	r.mu.Lock()

	if r.fetchErr != nil {
		err := r.fetchErr
		r.fetchErr = nil
		r.mu.Unlock()
		return nil, err
	}

	var due []entity.ScheduledPost
	for _, post := range r.posts {
		if len(due) >= limit {
			break
		}
		if post.Status != entity.PostStatusScheduled {
			continue
		}
		if post.ScheduledFor.After(now) {
			continue
		}
		if post.Account != nil && !post.Account.Active {
			continue
		}
		due = append(due, *post)
	}
	r.mu.Unlock()

	if r.afterFetch != nil {
		r.afterFetch()
	}
	return due, nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id string, from, to entity.PostStatus) (bool, error) {
	if r.beforeClaim != nil {
		r.beforeClaim(to)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	post := r.posts[id]
	if post.Status != from {
		return false, nil
	}
	post.Status = to
	return true, nil
}

func (r *memoryRepo) SetPosted(ctx context.Context, id, platformPostID string, postedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post := r.posts[id]
	if post.Status != entity.PostStatusPosting {
		return false, nil
	}
	post.Status = entity.PostStatusPosted
	post.PlatformPostID = platformPostID
	post.PostedAt = &postedAt
	post.LastError = ""
	return true, nil
}

func (r *memoryRepo) Reschedule(ctx context.Context, id string, nextAttemptAt time.Time, retryCount int, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post := r.posts[id]
	if post.Status.IsTerminal() {
		return nil
	}
	post.Status = entity.PostStatusScheduled
	post.ScheduledFor = nextAttemptAt
	post.RetryCount = retryCount
	post.LastError = lastError
	return nil
}

func (r *memoryRepo) MarkFailed(ctx context.Context, id, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post := r.posts[id]
	if post.Status.IsTerminal() {
		return nil
	}
	post.Status = entity.PostStatusFailed
	post.LastError = lastError
	return nil
}

func (r *memoryRepo) CancelIfPending(ctx context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post := r.posts[id]
	if post.Status.IsTerminal() {
		return false, nil
	}
	post.Status = entity.PostStatusCancelled
	return true, nil
}

func (r *memoryRepo) ResetForRetry(ctx context.Context, id, userID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post := r.posts[id]
	if post.Status != entity.PostStatusFailed {
		return false, nil
	}
	post.Status = entity.PostStatusScheduled
	post.ScheduledFor = now
	post.RetryCount = 0
	post.LastError = ""
	return true, nil
}

func (r *memoryRepo) RecoverStale(ctx context.Context, updatedBefore time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recovered := 0
	for _, post := range r.posts {
		if post.Status != entity.PostStatusProcessing && post.Status != entity.PostStatusPosting {
			continue
		}
		if post.UpdatedAt.Before(updatedBefore) {
			post.Status = entity.PostStatusScheduled
			recovered++
		}
	}
	return recovered, nil
}

func (r *memoryRepo) CountByStatus(ctx context.Context, userID string) (dao.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(dao.StatusCounts)
	for _, post := range r.posts {
		if post.UserID == userID {
			counts[post.Status]++
		}
	}
	return counts, nil
}

func (r *memoryRepo) ListRecent(ctx context.Context, userID string, limit int) ([]entity.ScheduledPost, error) {
	return nil, nil
}

// fakePublisher runs a scripted publish function
type fakePublisher struct {
	mu    sync.Mutex
	calls int
	fn    func(post *entity.ScheduledPost) (*publish.Result, error)
}

func (f *fakePublisher) Publish(ctx context.Context, post *entity.ScheduledPost) (*publish.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(post)
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAccount(platform entity.Platform) *entity.Account {
	return &entity.Account{
		ID:             "acc-1",
		UserID:         "user-1",
		Platform:       platform,
		PlatformUserID: "remote-1",
		AccessToken:    "token",
		Active:         true,
	}
}

func testPost(id string, platform entity.Platform, due time.Time) *entity.ScheduledPost {
	return &entity.ScheduledPost{
		ID:           id,
		UserID:       "user-1",
		AccountID:    "acc-1",
		Account:      testAccount(platform),
		Content:      "hello world",
		Status:       entity.PostStatusScheduled,
		ScheduledFor: due,
		CreatedAt:    due,
		UpdatedAt:    due,
	}
}

func newTestProcessor(repo dao.PostRepository, publishers *publish.Registry, now time.Time) *Processor {
	return NewProcessor(repo, publishers, service.NewRetryPolicy(), testLogger(),
		WithClock(func() time.Time { return now }),
		WithStaleAfter(0),
	)
}

func TestTextPostSuccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return &publish.Result{PlatformPostID: "fb_123"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	post := repo.get("p1")
	if post.Status != entity.PostStatusPosted {
		t.Errorf("status = %s, want posted", post.Status)
	}
	if post.PlatformPostID != "fb_123" {
		t.Errorf("platform post id = %q, want fb_123", post.PlatformPostID)
	}
	if post.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", post.RetryCount)
	}
	if fb.callCount() != 1 {
		t.Errorf("publisher called %d times, want 1", fb.callCount())
	}
}

// One post's failure must not affect the other posts in the same pass
func TestFailureIsolation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))
	repo.add(testPost("p2", entity.PlatformFacebook, now.Add(-time.Minute)))
	repo.add(testPost("p3", entity.PlatformFacebook, now.Add(-time.Minute)))

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		if post.ID == "p2" {
			return nil, entity.PlatformFailure("permission denied", false)
		}
		return &publish.Result{PlatformPostID: "fb_" + post.ID}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	for _, id := range []string{"p1", "p3"} {
		if got := repo.get(id).Status; got != entity.PostStatusPosted {
			t.Errorf("post %s status = %s, want posted", id, got)
		}
	}
	if got := repo.get("p2").Status; got != entity.PostStatusFailed {
		t.Errorf("post p2 status = %s, want failed", got)
	}
	if repo.get("p2").LastError == "" {
		t.Error("failed post should carry a last error message")
	}
}

// First network failure reschedules with the first backoff step
func TestNetworkErrorReschedules(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return nil, entity.NetworkFailure(context.DeadlineExceeded)
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	post := repo.get("p1")
	if post.Status != entity.PostStatusScheduled {
		t.Fatalf("status = %s, want scheduled", post.Status)
	}
	if post.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", post.RetryCount)
	}
	if want := now.Add(30 * time.Second); !post.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", post.ScheduledFor, want)
	}
}

// A post that already spent its retry budget fails even on a retryable error
func TestRetriesExhausted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	post := testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute))
	post.RetryCount = 3
	repo.add(post)

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return nil, entity.PlatformFailure("temporarily unavailable", true)
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	got := repo.get("p1")
	if got.Status != entity.PostStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.RetryCount != 3 {
		t.Errorf("retry count = %d, want unchanged 3", got.RetryCount)
	}
}

// Content failures are terminal immediately, no reschedule
func TestInvalidContentFailsImmediately(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformInstagram, now.Add(-time.Minute)))

	ig := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return nil, entity.InvalidContentFailure("instagram posts require at least one media item")
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformInstagram, ig)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	got := repo.get("p1")
	if got.Status != entity.PostStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", got.RetryCount)
	}
}

// Validation failures resolve without ever calling the publisher
func TestValidationFailureSkipsPublisher(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	post := testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute))
	post.Content = "   "
	repo.add(post)

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return &publish.Result{PlatformPostID: "fb_1"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if got := repo.get("p1").Status; got != entity.PostStatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if fb.callCount() != 0 {
		t.Errorf("publisher called %d times, want 0", fb.callCount())
	}
}

// At most one pass may run at a time; overlapping calls return immediately
func TestGuardAllowsSinglePass(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.fetchStarted = make(chan struct{}, 1)
	repo.fetchRelease = make(chan struct{})

	publishers := publish.NewRegistry()
	p := newTestProcessor(repo, publishers, now)

	done := make(chan error, 1)
	go func() {
		done <- p.ProcessDuePosts(context.Background())
	}()

	// Wait until the first pass is inside the fetch, holding the guard
	<-repo.fetchStarted

	// Overlapping ticks must be skipped without touching the repository
	for i := 0; i < 5; i++ {
		if err := p.ProcessDuePosts(context.Background()); err != nil {
			t.Fatalf("overlapping pass returned error: %v", err)
		}
	}

	close(repo.fetchRelease)
	if err := <-done; err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	// Guard must be free again
	repo.fetchStarted = nil
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass after release failed: %v", err)
	}
}

// A fetch failure aborts the pass but releases the guard for the next tick
func TestFetchFailureReleasesGuard(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.fetchErr = context.DeadlineExceeded
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return &publish.Result{PlatformPostID: "fb_1"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)

	if err := p.ProcessDuePosts(context.Background()); err == nil {
		t.Fatal("expected first pass to fail")
	}

	// Next tick must acquire the guard and process normally
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if got := repo.get("p1").Status; got != entity.PostStatusPosted {
		t.Errorf("status = %s, want posted", got)
	}
}

// retry_count never decreases across automatic attempts
func TestRetryCountMonotonic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return nil, entity.NetworkFailure(context.DeadlineExceeded)
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	seen := []int{}
	clock := now
	for i := 0; i < 5; i++ {
		p := newTestProcessor(repo, publishers, clock)
		if err := p.ProcessDuePosts(context.Background()); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
		post := repo.get("p1")
		seen = append(seen, post.RetryCount)
		// Jump past the backoff so the post is due on the next pass
		clock = post.ScheduledFor.Add(time.Second)
	}

	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("retry count decreased: %v", seen)
		}
	}

	// Budget is 3 retries; the post must end up failed
	if got := repo.get("p1"); got.Status != entity.PostStatusFailed {
		t.Errorf("final status = %s, want failed", got.Status)
	} else if got.RetryCount != 3 {
		t.Errorf("final retry count = %d, want 3", got.RetryCount)
	}
}

// A cancel landing between the fetch and the pipeline's first claim wins:
// the post stays cancelled and nothing is published.
func TestCancelAfterFetchAbandonsPipeline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))
	repo.afterFetch = func() {
		if _, err := repo.CancelIfPending(context.Background(), "p1", "user-1"); err != nil {
			t.Errorf("cancel failed: %v", err)
		}
	}

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return &publish.Result{PlatformPostID: "fb_123"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	got := repo.get("p1")
	if got.Status != entity.PostStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if fb.callCount() != 0 {
		t.Errorf("publisher called %d times for a cancelled post, want 0", fb.callCount())
	}
	if got.PlatformPostID != "" {
		t.Errorf("cancelled post must not carry a platform post id, got %q", got.PlatformPostID)
	}
}

// A cancel landing after the processing claim but before the posting claim
// also wins; the pipeline walks away without publishing.
func TestCancelBeforePostingClaimAbandonsPipeline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))
	repo.beforeClaim = func(to entity.PostStatus) {
		if to != entity.PostStatusPosting {
			return
		}
		if _, err := repo.CancelIfPending(context.Background(), "p1", "user-1"); err != nil {
			t.Errorf("cancel failed: %v", err)
		}
	}

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return &publish.Result{PlatformPostID: "fb_123"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	got := repo.get("p1")
	if got.Status != entity.PostStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if fb.callCount() != 0 {
		t.Errorf("publisher called %d times for a cancelled post, want 0", fb.callCount())
	}
}

// A cancel that lands while the publish call is in flight wins: the
// posted status must not overwrite cancelled.
func TestCancelDuringPublishIsPreserved(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		// User cancels while the network call is out
		if _, err := repo.CancelIfPending(context.Background(), post.ID, post.UserID); err != nil {
			t.Errorf("cancel failed: %v", err)
		}
		return &publish.Result{PlatformPostID: "fb_123"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	got := repo.get("p1")
	if got.Status != entity.PostStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if got.PlatformPostID != "" {
		t.Errorf("cancelled post must not carry a platform post id, got %q", got.PlatformPostID)
	}
}

// Terminal posts are never picked up or mutated by a pass
func TestTerminalPostsUntouched(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()

	posted := testPost("p1", entity.PlatformFacebook, now.Add(-time.Hour))
	posted.Status = entity.PostStatusPosted
	posted.PlatformPostID = "fb_old"
	repo.add(posted)

	cancelled := testPost("p2", entity.PlatformFacebook, now.Add(-time.Hour))
	cancelled.Status = entity.PostStatusCancelled
	repo.add(cancelled)

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return &publish.Result{PlatformPostID: "fb_new"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if fb.callCount() != 0 {
		t.Errorf("publisher called %d times for terminal posts, want 0", fb.callCount())
	}
	if got := repo.get("p1"); got.Status != entity.PostStatusPosted || got.PlatformPostID != "fb_old" {
		t.Errorf("posted post changed: %+v", got)
	}
	if got := repo.get("p2"); got.Status != entity.PostStatusCancelled {
		t.Errorf("cancelled post changed: %+v", got)
	}
}

// A rate-limit wait hint longer than the backoff step pushes the retry out
func TestRateLimitHintExtendsBackoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	repo.add(testPost("p1", entity.PlatformFacebook, now.Add(-time.Minute)))

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return nil, entity.RateLimitedFailure(entity.PlatformFacebook, 2*time.Minute)
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := newTestProcessor(repo, publishers, now)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	post := repo.get("p1")
	if post.Status != entity.PostStatusScheduled {
		t.Fatalf("status = %s, want scheduled", post.Status)
	}
	if want := now.Add(2 * time.Minute); !post.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", post.ScheduledFor, want)
	}
}

// Posts stranded mid-pipeline by a dead pass are made due again
func TestStalePostsRecovered(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()

	stuck := testPost("p1", entity.PlatformFacebook, now.Add(-time.Hour))
	stuck.Status = entity.PostStatusPosting
	stuck.UpdatedAt = now.Add(-time.Hour)
	repo.add(stuck)

	fb := &fakePublisher{fn: func(post *entity.ScheduledPost) (*publish.Result, error) {
		return &publish.Result{PlatformPostID: "fb_123"}, nil
	}}
	publishers := publish.NewRegistry()
	publishers.Register(entity.PlatformFacebook, fb)

	p := NewProcessor(repo, publishers, service.NewRetryPolicy(), testLogger(),
		WithClock(func() time.Time { return now }),
		WithStaleAfter(10*time.Minute),
	)
	if err := p.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	got := repo.get("p1")
	if got.Status != entity.PostStatusPosted {
		t.Errorf("status = %s, want posted after recovery and publish", got.Status)
	}
	if got.RetryCount != 0 {
		t.Errorf("recovery must not touch retry count, got %d", got.RetryCount)
	}
}
