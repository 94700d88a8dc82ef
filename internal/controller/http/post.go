package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postpilot/internal/domain/post/entity"
	"github.com/vadim/postpilot/internal/domain/post/service"
	"github.com/vadim/postpilot/internal/httpx/response"
)

// userIDHeader carries the authenticated user's id. Authentication itself
// is handled upstream of this service.
const userIDHeader = "X-User-ID"

// PostService defines the interface for queue operations
// Interface is defined by consumer (handler), not provider (service)
type PostService interface {
	Enqueue(ctx context.Context, in service.EnqueueInput) (*entity.ScheduledPost, error)
	GetPost(ctx context.Context, id, userID string) (*entity.ScheduledPost, error)
	Cancel(ctx context.Context, id, userID string) (*entity.ScheduledPost, error)
	Retry(ctx context.Context, id, userID string) (*entity.ScheduledPost, error)
	GetQueueStatus(ctx context.Context, userID string) (*service.QueueStatus, error)
	ListAccounts(ctx context.Context, userID string) ([]entity.Account, error)
}

// PostHandler handles HTTP requests for scheduled posts
type PostHandler struct {
	svc PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(svc PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// RegisterRoutes registers post routes
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.Enqueue())
		r.Get("/{id}", h.Get())
		r.Post("/{id}/cancel", h.Cancel())
		r.Post("/{id}/retry", h.Retry())
	})
	r.Get("/accounts", h.ListAccounts())
}

// EnqueueRequest represents the request body for scheduling a post
type EnqueueRequest struct {
	AccountID    string   `json:"account_id"`
	Content      string   `json:"content"`
	MediaURLs    []string `json:"media_urls,omitempty"`
	Hashtags     string   `json:"hashtags,omitempty"`
	ScheduledFor *string  `json:"scheduled_for,omitempty"` // RFC3339; omit to post on next pass
}

// Enqueue handles POST /posts
func (h *PostHandler) Enqueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			response.Unauthorized(w, "missing "+userIDHeader+" header")
			return
		}

		var req EnqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		var scheduledFor time.Time
		if req.ScheduledFor != nil && *req.ScheduledFor != "" {
			t, err := time.Parse(time.RFC3339, *req.ScheduledFor)
			if err != nil {
				response.BadRequest(w, "invalid scheduled_for format, use RFC3339")
				return
			}
			scheduledFor = t
		}

		post, err := h.svc.Enqueue(r.Context(), service.EnqueueInput{
			UserID:       userID,
			AccountID:    req.AccountID,
			Content:      req.Content,
			MediaURLs:    req.MediaURLs,
			Hashtags:     req.Hashtags,
			ScheduledFor: scheduledFor,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.Created(w, post)
	}
}

// Get handles GET /posts/{id}
func (h *PostHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			response.Unauthorized(w, "missing "+userIDHeader+" header")
			return
		}

		post, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, post)
	}
}

// Cancel handles POST /posts/{id}/cancel
func (h *PostHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			response.Unauthorized(w, "missing "+userIDHeader+" header")
			return
		}

		post, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, post)
	}
}

// Retry handles POST /posts/{id}/retry
func (h *PostHandler) Retry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			response.Unauthorized(w, "missing "+userIDHeader+" header")
			return
		}

		post, err := h.svc.Retry(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, post)
	}
}

// ListAccounts handles GET /accounts
func (h *PostHandler) ListAccounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			response.Unauthorized(w, "missing "+userIDHeader+" header")
			return
		}

		accounts, err := h.svc.ListAccounts(r.Context(), userID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, accounts)
	}
}

// handleDomainError maps domain errors onto HTTP status codes
func handleDomainError(w http.ResponseWriter, err error) {
	switch err {
	case entity.ErrPostNotFound, entity.ErrAccountNotFound:
		response.NotFound(w, err.Error())
	case entity.ErrAlreadyPosted, entity.ErrNotCancellable, entity.ErrNotRetryable:
		response.Conflict(w, err.Error())
	case entity.ErrEmptyContent, entity.ErrEmptyAccountID,
		entity.ErrInvalidPlatform, entity.ErrAccountInactive:
		response.BadRequest(w, err.Error())
	case entity.ErrPostNotOwnedByYou:
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
