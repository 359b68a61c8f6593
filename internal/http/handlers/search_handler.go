// Search HTTP handler.
//
// This file exposes GET /search, which queries the current user's saved
// clips by free text and/or tags. At least one criterion is required; the
// response carries the page of matches plus pagination metadata.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clipvault/go-clipvault-api/internal/domain"
	"github.com/clipvault/go-clipvault-api/internal/services"
)

// SearchPagination carries pagination metadata for search responses.
type SearchPagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// SearchResponse wraps a page of matched clips and pagination information.
type SearchResponse struct {
	Results    []domain.ClipDetail `json:"results"`
	Pagination SearchPagination    `json:"pagination"`
}

// SearchClips handles GET /search.
//
// Query parameters:
//   - q:     free-text query matched against transcript, summary, and URL
//   - tags:  comma-separated tag names
//   - page:  page number (default 1)
//   - limit: page size (default 40, max 100)
//
// Responses:
//   - 200 with results and pagination
//   - 400 when neither q nor tags is provided
//   - 401 when no user identity is present
func (h *Handlers) SearchClips(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	var tags []string
	if raw := strings.TrimSpace(c.Query("tags")); raw != "" {
		tags = strings.Split(raw, ",")
	}

	req := services.SearchRequest{
		Query: c.Query("q"),
		Tags:  tags,
		Page:  atoiDefault(c.Query("page"), 1),
		Limit: atoiDefault(c.Query("limit"), services.DefaultSearchLimit),
	}

	res, err := h.searchSvc.Search(c.Request.Context(), uid, req)
	if err != nil {
		if errors.Is(err, services.ErrNoSearchCriteria) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one of q or tags is required")
			return
		}
		failInternal(c, ErrCodeSearchFailed, "search failed", err)
		return
	}

	ok(c, http.StatusOK, SearchResponse{
		Results: res.Items,
		Pagination: SearchPagination{
			Page:       res.Page,
			Limit:      res.Limit,
			Total:      res.Total,
			TotalPages: res.TotalPages,
			HasNext:    res.HasNext,
			HasPrev:    res.HasPrev,
		},
	})
}
