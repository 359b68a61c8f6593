// Clip HTTP handlers.
//
// This file exposes REST endpoints for clip resources:
//   - POST   /clips        (save a URL for the current user)
//   - GET    /clips/{id}   (fetch one saved clip with tags)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. The duplicate-save
// case maps to 409 Conflict carrying the existing clip's ID both in the
// body and the X-Clip-Id header.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipvault/go-clipvault-api/internal/domain"
	"github.com/clipvault/go-clipvault-api/internal/http/middleware"
	"github.com/clipvault/go-clipvault-api/internal/services"
)

//
// Service contracts (context-aware)
//

// ClipService defines clip lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ClipService interface {
	// Save ingests a URL on behalf of userID. correlationID propagates the
	// request ID into any published event.
	Save(ctx context.Context, userID, sourceURL, correlationID string) (*services.SaveResult, error)
	// Get returns one of the user's saved clips together with its tags.
	Get(ctx context.Context, userID, clipID string) (*domain.ClipDetail, error)
}

// SearchService defines clip search over a user's saved clips.
type SearchService interface {
	Search(ctx context.Context, userID string, req services.SearchRequest) (*services.SearchResult, error)
}

// CollectionService defines collection lifecycle and membership operations.
type CollectionService interface {
	Create(ctx context.Context, userID, name string, description *string, isPublic bool, colorHex *string) (*domain.Collection, error)
	Get(ctx context.Context, userID, collID string) (*domain.Collection, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Collection, int64, error)
	Update(ctx context.Context, userID, collID string, upd services.CollectionUpdate) (*domain.Collection, error)
	Delete(ctx context.Context, userID, collID string) error
	AddClip(ctx context.Context, userID, collID, clipID string) error
	RemoveClip(ctx context.Context, userID, collID, clipID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for clips, search, and collections.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	clipSvc   ClipService
	searchSvc SearchService
	collSvc   CollectionService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(clipSvc ClipService, searchSvc SearchService, collSvc CollectionService) *Handlers {
	return &Handlers{clipSvc: clipSvc, searchSvc: searchSvc, collSvc: collSvc}
}

// requireUser extracts the authenticated user id attached by the identity
// middleware. When absent it writes a 401 and reports false; handlers must
// return immediately in that case.
func requireUser(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing user identity")
		return "", false
	}
	return uid, true
}

//
// DTOs
//

// SaveClipRequest is the JSON payload for saving a URL.
type SaveClipRequest struct {
	// SourceURL is the absolute http(s) URL of the resource to save.
	SourceURL string `json:"source_url" binding:"required"`
}

//
// Handlers
//

// SaveClip handles POST /clips.
//
// Responses:
//   - 201 with {clip_id, status:"queued"} when the save is accepted
//   - 400 on malformed JSON or an invalid source URL
//   - 401 when no user identity is present
//   - 409 with {clip_id} and X-Clip-Id header when this user already saved
//     the URL
//   - 500 on storage failure (event delivery failures do NOT produce 5xx)
func (h *Handlers) SaveClip(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	var req SaveClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: source_url required")
		return
	}

	res, err := h.clipSvc.Save(c.Request.Context(), uid, strings.TrimSpace(req.SourceURL), middleware.RequestIDFrom(c))
	if err != nil {
		var dup *services.DuplicateSaveError
		switch {
		case errors.As(err, &dup):
			c.Header("X-Clip-Id", dup.ClipID)
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       ErrCodeConflict,
				"message":    "clip already saved",
				"clip_id":    dup.ClipID,
			})
		case errors.Is(err, services.ErrInvalidURL):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "source_url must be an absolute http(s) URL")
		case errors.Is(err, services.ErrMissingUser):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing user identity")
		default:
			failInternal(c, ErrCodeSaveFailed, "failed to save clip", err)
		}
		return
	}

	ok(c, http.StatusCreated, res)
}

// GetClip handles GET /clips/{id}.
//
// Responses:
//   - 200 with the clip, its tags, and the user's saved_at timestamp
//   - 400 when the id is not a UUID
//   - 401 when no user identity is present
//   - 404 when the clip does not exist or was never saved by this user
func (h *Handlers) GetClip(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	clipID := c.Param("id")
	if _, err := uuid.Parse(clipID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clip id must be a UUID")
		return
	}

	detail, err := h.clipSvc.Get(c.Request.Context(), uid, clipID)
	if err != nil {
		if errors.Is(err, services.ErrClipNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "clip not found")
			return
		}
		failInternal(c, ErrCodeInternal, "failed to fetch clip", err)
		return
	}

	ok(c, http.StatusOK, detail)
}
