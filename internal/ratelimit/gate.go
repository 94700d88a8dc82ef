package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Config defines the rolling window for one platform
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Denied is returned when the window is exhausted. RetryAfterSeconds is the
// whole number of seconds until the window resets, rounded up.
type Denied struct {
	Platform          string
	RetryAfterSeconds int
}

func (d *Denied) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %ds", d.Platform, d.RetryAfterSeconds)
}

// Status is a read-only snapshot of one platform's window, for observability
type Status struct {
	Platform  string    `json:"platform"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Max       int       `json:"max"`
	ResetAt   time.Time `json:"reset_at"`
}

// window is the mutable per-platform counter. Each platform has its own
// mutex: acquiring a facebook permit never blocks on instagram's lock.
type window struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
	cfg     Config
}

// Gate throttles outbound calls per platform against a rolling time window.
// Every call that will make an outbound request must acquire a permit first.
type Gate struct {
	mu      sync.RWMutex
	windows map[string]*window
	now     func() time.Time
}

// New creates a gate with one independent counter per configured platform
func New(configs map[string]Config) *Gate {
	g := &Gate{
		windows: make(map[string]*window, len(configs)),
		now:     time.Now,
	}
	for platform, cfg := range configs {
		g.windows[platform] = &window{cfg: cfg}
	}
	return g
}

func (g *Gate) window(platform string) (*window, error) {
	g.mu.RLock()
	w, ok := g.windows[platform]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no rate limit configured for platform %q", platform)
	}
	return w, nil
}

// roll zeroes the counter and opens a new window if the reset time has
// passed. Must be called with w.mu held.
func (w *window) roll(now time.Time) {
	if now.After(w.resetAt) || now.Equal(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(w.cfg.Window)
	}
}

// Acquire grants a permit for one outbound call to platform, or returns
// *Denied with the seconds remaining until the window resets.
func (g *Gate) Acquire(platform string) error {
	w, err := g.window(platform)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := g.now()
	w.roll(now)

	if w.count >= w.cfg.MaxRequests {
		return &Denied{
			Platform:          platform,
			RetryAfterSeconds: int(math.Ceil(w.resetAt.Sub(now).Seconds())),
		}
	}

	w.count++
	return nil
}

// Snapshot returns the current window state. Observability only; it rolls
// the window like Acquire but never consumes a permit.
func (g *Gate) Snapshot(platform string) (Status, error) {
	w, err := g.window(platform)
	if err != nil {
		return Status{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.roll(g.now())

	return Status{
		Platform:  platform,
		Used:      w.count,
		Remaining: w.cfg.MaxRequests - w.count,
		Max:       w.cfg.MaxRequests,
		ResetAt:   w.resetAt,
	}, nil
}

// Platforms lists the configured platform identifiers
func (g *Gate) Platforms() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.windows))
	for name := range g.windows {
		names = append(names, name)
	}
	return names
}
