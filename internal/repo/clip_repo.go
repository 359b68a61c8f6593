// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for clips and
// user-clip links: the two tables whose uniqueness constraints carry the
// ingestion idempotency guarantees.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a clip is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Concurrency:
//   - UpsertClip and LinkUserClip never perform a check-then-insert. Both
//     issue a single INSERT with an ON CONFLICT DO NOTHING clause and derive
//     the "did this call insert" answer from RowsAffected, so concurrent
//     submitters of the same URL (or the same user double-submitting) race
//     safely inside the database engine, not in application code.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clipvault/go-clipvault-api/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertClip inserts a clip row for sourceURL or, when a row with that URL
// already exists, returns the existing identity. The second return value is
// true iff this call caused the insert.
//
// The insert and the conflict decision are a single atomic statement
// (INSERT ... ON CONFLICT (source_url) DO NOTHING); with N concurrent calls
// for the same URL exactly one observes isNew=true. The follow-up read on
// the conflict path is safe because clips are never deleted.
func UpsertClip(ctx context.Context, db *gorm.DB, sourceURL string) (string, bool, error) {
	now := time.Now().UTC()
	c := &domain.Clip{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_url"}},
		DoNothing: true,
	}).Create(c)
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected > 0 {
		return c.ID, true, nil
	}

	var existing domain.Clip
	err := db.WithContext(ctx).
		Select("id").
		Where("source_url = ?", sourceURL).
		First(&existing).Error
	if err != nil {
		return "", false, err
	}
	return existing.ID, false, nil
}

// LinkUserClip inserts the (userID, clipID) link if absent and reports
// whether this call created it. A pre-existing link is a normal outcome
// (false, nil), not an error.
func LinkUserClip(ctx context.Context, db *gorm.DB, userID, clipID string) (bool, error) {
	link := &domain.UserClip{
		UserID:  userID,
		ClipID:  clipID,
		SavedAt: time.Now().UTC(),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "clip_id"}},
		DoNothing: true,
	}).Create(link)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetClipWithTagsForUser fetches a clip by ID together with its tags and the
// user's saved_at timestamp. Access control is the join predicate itself:
// a clip the user never linked is indistinguishable from a missing one and
// yields ErrNotFound.
func GetClipWithTagsForUser(ctx context.Context, db *gorm.DB, userID, clipID string) (*domain.ClipDetail, error) {
	var link domain.UserClip
	err := db.WithContext(ctx).
		Where("user_id = ? AND clip_id = ?", userID, clipID).
		First(&link).Error
	if err != nil {
		return nil, err
	}

	var clip domain.Clip
	err = db.WithContext(ctx).
		Preload("Tags").
		Where("id = ?", clipID).
		First(&clip).Error
	if err != nil {
		return nil, err
	}

	return &domain.ClipDetail{Clip: clip, SavedAt: link.SavedAt}, nil
}

// UserSavedClip reports whether userID has a saved link to clipID.
func UserSavedClip(ctx context.Context, db *gorm.DB, userID, clipID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UserClip{}).
		Where("user_id = ? AND clip_id = ?", userID, clipID).
		Count(&n).Error
	return n > 0, err
}

// CountUserClips returns the total number of clips saved by userID.
func CountUserClips(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.UserClip{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
