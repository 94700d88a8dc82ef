package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DuePostProcessor defines the interface for running one queue pass
type DuePostProcessor interface {
	ProcessDuePosts(ctx context.Context) error
}

// Scheduler drives periodic queue passes on a fixed interval
type Scheduler struct {
	processor DuePostProcessor
	interval  time.Duration
	logger    *slog.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// New creates a new scheduler
func New(processor DuePostProcessor, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		interval:  interval,
		logger:    logger,
	}
}

// Start starts the scheduler. A stopped scheduler can be started again;
// each start gets its own stop channel so earlier stops don't leak into
// the new loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.logger.Info("post queue scheduler started", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx, stopCh)
}

// Stop halts the ticker and waits for an in-flight pass to finish. Due
// posts keep their current status and resume on the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh := s.stopCh
	s.mu.Unlock()

	close(stopCh)
	s.wg.Wait()
	s.logger.Info("post queue scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.process(ctx)

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// process runs one queue pass
func (s *Scheduler) process(ctx context.Context) {
	s.logger.Debug("running queue pass")

	if err := s.processor.ProcessDuePosts(ctx); err != nil {
		s.logger.Error("queue pass failed", "error", err)
	}
}
