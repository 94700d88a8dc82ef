package policy

import "sync/atomic"

// PassGuard ensures at most one processing pass runs at a time. A tick
// that fires while a pass is still running is skipped, not queued; the
// next tick picks up whatever work is left.
type PassGuard struct {
	active atomic.Bool
}

// TryAcquire claims the pass slot; false means a pass is already running
func (g *PassGuard) TryAcquire() bool {
	return g.active.CompareAndSwap(false, true)
}

// Release frees the pass slot. Must be called unconditionally when the
// pass ends, including when the due-post fetch itself fails.
func (g *PassGuard) Release() {
	g.active.Store(false)
}
