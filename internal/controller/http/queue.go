package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postpilot/internal/httpx/response"
	"github.com/vadim/postpilot/internal/ratelimit"
)

// PassRunner defines the interface for running a queue pass on demand
type PassRunner interface {
	ProcessDuePosts(ctx context.Context) error
}

// RateLimitReader defines the interface for rate window snapshots
type RateLimitReader interface {
	Snapshot(platform string) (ratelimit.Status, error)
}

// QueueHandler exposes queue observability and the ops hooks
type QueueHandler struct {
	svc    PostService
	runner PassRunner
	gate   RateLimitReader
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(svc PostService, runner PassRunner, gate RateLimitReader) *QueueHandler {
	return &QueueHandler{svc: svc, runner: runner, gate: gate}
}

// RegisterRoutes registers queue routes
func (h *QueueHandler) RegisterRoutes(r chi.Router) {
	r.Route("/queue", func(r chi.Router) {
		r.Get("/status", h.Status())
		r.Post("/process", h.ForceProcess())
	})
	r.Get("/ratelimits/{platform}", h.RateLimitSnapshot())
}

// Status handles GET /queue/status
func (h *QueueHandler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			response.Unauthorized(w, "missing "+userIDHeader+" header")
			return
		}

		status, err := h.svc.GetQueueStatus(r.Context(), userID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, status)
	}
}

// ForceProcess handles POST /queue/process. Ops/test hook: runs a pass
// immediately instead of waiting for the next tick. If a pass is already
// running the call is a no-op thanks to the pass guard.
func (h *QueueHandler) ForceProcess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.runner.ProcessDuePosts(r.Context()); err != nil {
			response.InternalError(w, err.Error())
			return
		}

		response.OK(w, map[string]string{"status": "pass completed"})
	}
}

// RateLimitSnapshot handles GET /ratelimits/{platform}
func (h *QueueHandler) RateLimitSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.gate.Snapshot(chi.URLParam(r, "platform"))
		if err != nil {
			response.NotFound(w, err.Error())
			return
		}

		response.OK(w, status)
	}
}
