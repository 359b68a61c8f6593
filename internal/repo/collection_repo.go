// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for user-owned
// collections and their clip membership.
//
// Ownership is enforced in the query predicates (user_id scoping); a
// collection belonging to another user is indistinguishable from a missing
// one and yields ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clipvault/go-clipvault-api/internal/domain"
)

// CreateCollection inserts a new collection owned by userID.
func CreateCollection(ctx context.Context, db *gorm.DB, userID, name string, description *string, isPublic bool, colorHex *string) (*domain.Collection, error) {
	now := time.Now().UTC()
	coll := &domain.Collection{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
		ColorHex:    colorHex,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(coll).Error; err != nil {
		return nil, err
	}
	return coll, nil
}

// GetCollection fetches a collection by ID, scoped to its owner.
// Returns ErrNotFound when missing or owned by someone else.
func GetCollection(ctx context.Context, db *gorm.DB, userID, collID string) (*domain.Collection, error) {
	var coll domain.Collection
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", collID, userID).
		First(&coll).Error
	if err != nil {
		return nil, err
	}
	return &coll, nil
}

// CountCollections returns the total number of collections owned by userID.
func CountCollections(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Collection{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListCollectionsPage returns a paginated slice of collections for userID,
// ordered by creation time descending. Use CountCollections for pagination
// metadata.
func ListCollectionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Collection, error) {
	var out []domain.Collection
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateCollection applies the given column updates to a collection owned by
// userID. Returns ErrNotFound when no row matched.
func UpdateCollection(ctx context.Context, db *gorm.DB, userID, collID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Collection{}).
		Where("id = ? AND user_id = ?", collID, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteCollection removes a collection owned by userID along with its
// membership rows. Returns ErrNotFound when no row matched.
func DeleteCollection(ctx context.Context, db *gorm.DB, userID, collID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", collID, userID).Delete(&domain.Collection{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("collection_id = ?", collID).Delete(&domain.CollectionClip{}).Error
	})
}

// AddClipToCollection inserts the membership row if absent and reports
// whether this call created it. Insert-on-conflict, same discipline as the
// user-clip link: no check-then-insert.
func AddClipToCollection(ctx context.Context, db *gorm.DB, collID, clipID string) (bool, error) {
	m := &domain.CollectionClip{
		CollectionID: collID,
		ClipID:       clipID,
		AddedAt:      time.Now().UTC(),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_id"}, {Name: "clip_id"}},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RemoveClipFromCollection deletes the membership row. Returns ErrNotFound
// when the clip was not in the collection.
func RemoveClipFromCollection(ctx context.Context, db *gorm.DB, collID, clipID string) error {
	res := db.WithContext(ctx).
		Where("collection_id = ? AND clip_id = ?", collID, clipID).
		Delete(&domain.CollectionClip{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CollectionClipCounts returns the clip count for every collection owned by
// userID, keyed by collection ID. Collections with no clips are absent from
// the map.
func CollectionClipCounts(ctx context.Context, db *gorm.DB, userID string) (map[string]int64, error) {
	type row struct {
		CollectionID string
		N            int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Table("collection_clips").
		Select("collection_clips.collection_id AS collection_id, COUNT(*) AS n").
		Joins("JOIN collections ON collections.id = collection_clips.collection_id").
		Where("collections.user_id = ?", userID).
		Group("collection_clips.collection_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.CollectionID] = r.N
	}
	return counts, nil
}

// CountCollectionClips returns the number of clips in a collection.
func CountCollectionClips(ctx context.Context, db *gorm.DB, collID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.CollectionClip{}).
		Where("collection_id = ?", collID).
		Count(&total).Error
	return total, err
}
