// Collection HTTP handlers.
//
// This file exposes REST endpoints for user-owned collections:
//   - POST   /collections                         (create)
//   - GET    /collections                         (list, paginated, ETag support)
//   - GET    /collections/{id}                    (fetch)
//   - PATCH  /collections/{id}                    (partial update)
//   - DELETE /collections/{id}                    (delete)
//   - POST   /collections/{id}/clips              (add clip)
//   - DELETE /collections/{id}/clips/{clipId}     (remove clip)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including conditional
// responses on the list endpoint).
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipvault/go-clipvault-api/internal/domain"
	"github.com/clipvault/go-clipvault-api/internal/repo"
	"github.com/clipvault/go-clipvault-api/internal/services"
	"github.com/clipvault/go-clipvault-api/internal/sysutil"
)

//
// DTOs
//

// CreateCollectionRequest is the JSON payload for creating a collection.
type CreateCollectionRequest struct {
	// Name is the collection name (1–255 chars).
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description"`
	IsPublic    bool    `json:"is_public"`
	ColorHex    *string `json:"color_hex"`
}

// UpdateCollectionRequest is the JSON payload for a partial collection
// update. Absent fields leave the stored value untouched.
type UpdateCollectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
	ColorHex    *string `json:"color_hex"`
}

// AddClipRequest is the JSON payload for adding a clip to a collection.
type AddClipRequest struct {
	ClipID string `json:"clip_id" binding:"required"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// CollectionItem is a collection as rendered in list responses. ClipCount is
// populated only when the caller asks for it via include_counts.
type CollectionItem struct {
	domain.Collection
	ClipCount *int64 `json:"clip_count,omitempty"`
}

// ListCollectionsResponse wraps a page of collections and pagination
// information.
type ListCollectionsResponse struct {
	Collections []CollectionItem `json:"collections"`
	Pagination  Pagination       `json:"pagination"`
}

//
// Helpers
//

// atoiDefault parses a numeric query parameter, falling back to def when the
// value is absent or malformed. Range clamping stays with the caller.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = atoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = atoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// collectionID validates the :id path param as a UUID, writing a 400 and
// reporting false when it is not.
func collectionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "collection id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// CreateCollection handles POST /collections and returns the created
// resource with 201.
func (h *Handlers) CreateCollection(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	var req CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1–255 chars)")
		return
	}

	coll, err := h.collSvc.Create(c.Request.Context(), uid, req.Name, req.Description, req.IsPublic, req.ColorHex)
	if err != nil {
		if errors.Is(err, services.ErrEmptyCollectionName) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1–255 chars)")
			return
		}
		failInternal(c, ErrCodeCreateFailed, "failed to create collection", err)
		return
	}
	ok(c, http.StatusCreated, coll)
}

// ListCollections handles GET /collections. It supports weak ETags via
// If-None-Match and may return 304 when the user's collections are unchanged.
// With include_counts=true each item carries its clip count.
func (h *Handlers) ListCollections(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.collSvc.(*services.CollectionService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CollectionsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"collections:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.collSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failInternal(c, ErrCodeListFailed, "failed to list collections", err)
		return
	}

	out := make([]CollectionItem, len(items))
	for i := range items {
		out[i] = CollectionItem{Collection: items[i]}
	}
	if sysutil.IsTruthy(c.Query("include_counts")) && db != nil {
		counts, cErr := repo.CollectionClipCounts(ctx, db, uid)
		if cErr != nil {
			failInternal(c, ErrCodeListFailed, "failed to list collections", cErr)
			return
		}
		for i := range out {
			n := counts[out[i].ID]
			out[i].ClipCount = &n
		}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListCollectionsResponse{
		Collections: out,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetCollection handles GET /collections/{id}.
func (h *Handlers) GetCollection(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	id, okID := collectionID(c)
	if !okID {
		return
	}

	coll, err := h.collSvc.Get(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, services.ErrCollectionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
			return
		}
		failInternal(c, ErrCodeInternal, "failed to fetch collection", err)
		return
	}
	ok(c, http.StatusOK, coll)
}

// UpdateCollection handles PATCH /collections/{id} and returns the updated
// resource.
func (h *Handlers) UpdateCollection(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	id, okID := collectionID(c)
	if !okID {
		return
	}

	var req UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	coll, err := h.collSvc.Update(c.Request.Context(), uid, id, services.CollectionUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		ColorHex:    req.ColorHex,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCollectionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
		case errors.Is(err, services.ErrEmptyCollectionName):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name must not be blank")
		default:
			failInternal(c, ErrCodeInternal, "failed to update collection", err)
		}
		return
	}
	ok(c, http.StatusOK, coll)
}

// DeleteCollection handles DELETE /collections/{id} and returns 204.
func (h *Handlers) DeleteCollection(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	id, okID := collectionID(c)
	if !okID {
		return
	}

	if err := h.collSvc.Delete(c.Request.Context(), uid, id); err != nil {
		if errors.Is(err, services.ErrCollectionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
			return
		}
		failInternal(c, ErrCodeInternal, "failed to delete collection", err)
		return
	}
	noContent(c)
}

// AddClipToCollection handles POST /collections/{id}/clips and returns 204.
// Re-adding an existing member is a no-op.
func (h *Handlers) AddClipToCollection(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	id, okID := collectionID(c)
	if !okID {
		return
	}

	var req AddClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clip_id required")
		return
	}
	if _, err := uuid.Parse(req.ClipID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clip_id must be a UUID")
		return
	}

	if err := h.collSvc.AddClip(c.Request.Context(), uid, id, req.ClipID); err != nil {
		switch {
		case errors.Is(err, services.ErrCollectionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
		case errors.Is(err, services.ErrClipNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "clip not found")
		default:
			failInternal(c, ErrCodeInternal, "failed to add clip to collection", err)
		}
		return
	}
	noContent(c)
}

// RemoveClipFromCollection handles DELETE /collections/{id}/clips/{clipId}
// and returns 204.
func (h *Handlers) RemoveClipFromCollection(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	id, okID := collectionID(c)
	if !okID {
		return
	}
	clipID := c.Param("clipId")
	if _, err := uuid.Parse(clipID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clip id must be a UUID")
		return
	}

	if err := h.collSvc.RemoveClip(c.Request.Context(), uid, id, clipID); err != nil {
		switch {
		case errors.Is(err, services.ErrCollectionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
		case errors.Is(err, services.ErrClipNotInCollection):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "clip not in collection")
		default:
			failInternal(c, ErrCodeInternal, "failed to remove clip from collection", err)
		}
		return
	}
	noContent(c)
}
