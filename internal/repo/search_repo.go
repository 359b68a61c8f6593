// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file implements the clip search query: text matching
// is delegated to the storage engine, tag filtering is a join against the
// clip_tags table with AND or OR semantics, and results are scoped to the
// requesting user's saved clips.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/clipvault/go-clipvault-api/internal/domain"
)

// SearchParams captures the search filters after handler-level validation.
// At least one of Query and Tags is expected to be set.
type SearchParams struct {
	Query string
	Tags  []string
	// MatchAnyTag selects OR semantics across Tags; default is AND
	// (the clip must carry every requested tag).
	MatchAnyTag bool
	Offset      int
	Limit       int
}

// SearchClipsForUser returns a page of the user's saved clips matching the
// given filters, plus the total match count for pagination metadata.
//
// Text matching runs in the engine (case-insensitive LIKE over transcript,
// summary, and source URL); no ranking beyond recency (saved_at desc) is
// applied here. Tag filtering joins clip_tags/tags; with AND semantics a
// GROUP BY ... HAVING COUNT(DISTINCT name) enforces full membership.
func SearchClipsForUser(ctx context.Context, db *gorm.DB, userID string, p SearchParams) ([]domain.ClipDetail, int64, error) {
	// GORM query builders are stateful, so the count and the page fetch each
	// get their own instance of the filter query.
	var total int64
	if err := db.WithContext(ctx).
		Table("(?) AS matched", matchedClipIDs(ctx, db, userID, p)).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ClipDetail{}, 0, nil
	}

	// Page of (clip_id, saved_at), most recently saved first.
	var page []struct {
		ID      string
		SavedAt time.Time
	}
	err := matchedClipIDs(ctx, db, userID, p).
		Order("user_clips.saved_at DESC").
		Offset(p.Offset).
		Limit(p.Limit).
		Scan(&page).Error
	if err != nil {
		return nil, 0, err
	}
	if len(page) == 0 {
		return []domain.ClipDetail{}, total, nil
	}

	ids := make([]string, 0, len(page))
	savedAt := make(map[string]time.Time, len(page))
	for _, row := range page {
		ids = append(ids, row.ID)
		savedAt[row.ID] = row.SavedAt
	}

	var clips []domain.Clip
	err = db.WithContext(ctx).
		Preload("Tags").
		Where("id IN ?", ids).
		Find(&clips).Error
	if err != nil {
		return nil, 0, err
	}

	// Restore the saved_at ordering lost by the IN query.
	byID := make(map[string]domain.Clip, len(clips))
	for _, c := range clips {
		byID[c.ID] = c
	}
	out := make([]domain.ClipDetail, 0, len(page))
	for _, row := range page {
		c, ok := byID[row.ID]
		if !ok {
			continue
		}
		out = append(out, domain.ClipDetail{Clip: c, SavedAt: savedAt[row.ID]})
	}
	return out, total, nil
}

// matchedClipIDs composes the filter query shared by the count and the page
// fetch. It selects (clips.id, user_clips.saved_at) for every clip of userID
// matching the text and tag filters.
func matchedClipIDs(ctx context.Context, db *gorm.DB, userID string, p SearchParams) *gorm.DB {
	q := db.WithContext(ctx).
		Model(&domain.Clip{}).
		Select("clips.id AS id, user_clips.saved_at AS saved_at").
		Joins("JOIN user_clips ON user_clips.clip_id = clips.id AND user_clips.user_id = ?", userID)

	if p.Query != "" {
		like := "%" + p.Query + "%"
		q = q.Where(
			"clips.transcript LIKE ? OR clips.summary LIKE ? OR clips.source_url LIKE ?",
			like, like, like,
		)
	}

	if len(p.Tags) > 0 {
		q = q.
			Joins("JOIN clip_tags ON clip_tags.clip_id = clips.id").
			Joins("JOIN tags ON tags.id = clip_tags.tag_id").
			Where("tags.name IN ?", p.Tags).
			Group("clips.id, user_clips.saved_at")
		if !p.MatchAnyTag {
			q = q.Having("COUNT(DISTINCT tags.name) = ?", len(p.Tags))
		}
	}

	return q
}
