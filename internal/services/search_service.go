// Package services – SearchService
//
// This file implements the SearchService, which normalizes search input
// (query trimming, tag case folding and deduplication, pagination clamping)
// before delegating matching to the repository layer. Result scope is always
// the requesting user's saved clips.
package services

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/clipvault/go-clipvault-api/internal/domain"
	"github.com/clipvault/go-clipvault-api/internal/repo"
)

// Pagination bounds for search results.
const (
	DefaultSearchLimit = 40
	MaxSearchLimit     = 100
)

// SearchStore defines the repository contract required by SearchService.
type SearchStore interface {
	SearchClipsForUser(ctx context.Context, db *gorm.DB, userID string, p repo.SearchParams) ([]domain.ClipDetail, int64, error)
}

// SearchRequest carries raw search input from the handler.
type SearchRequest struct {
	Query string
	Tags  []string
	Page  int
	Limit int
}

// SearchResult bundles a result page with pagination metadata.
type SearchResult struct {
	Items      []domain.ClipDetail
	Total      int64
	Page       int
	Limit      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// SearchService runs clip searches over a user's saved clips.
type SearchService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store is the search repository used by this service.
	Store SearchStore

	// MatchAnyTag selects OR semantics across tags; the default (false)
	// requires a clip to carry every requested tag.
	MatchAnyTag bool
}

// NewSearchService constructs a SearchService with AND tag semantics.
func NewSearchService(db *gorm.DB, store SearchStore) *SearchService {
	return &SearchService{DB: db, Store: store}
}

// folder lowercases tags and queries for case-insensitive matching,
// including non-ASCII input.
var folder = cases.Fold()

// Search validates and normalizes req, then returns the matching page.
// At least one of query and tags must be present; otherwise
// ErrNoSearchCriteria is returned.
func (s *SearchService) Search(ctx context.Context, userID string, req SearchRequest) (*SearchResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}

	query := strings.TrimSpace(req.Query)
	tags := normalizeTags(req.Tags)
	if query == "" && len(tags) == 0 {
		return nil, ErrNoSearchCriteria
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	items, total, err := s.Store.SearchClipsForUser(ctx, s.DB, userID, repo.SearchParams{
		Query:       folder.String(query),
		Tags:        tags,
		MatchAnyTag: s.MatchAnyTag,
		Offset:      (page - 1) * limit,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &SearchResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

// normalizeTags trims, case-folds, and deduplicates tags, preserving the
// first occurrence order.
func normalizeTags(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = folder.String(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
