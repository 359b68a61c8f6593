// Package services – CollectionService
//
// This file implements the CollectionService, which manages user-owned
// collections and their clip membership. It validates and normalizes names,
// enforces ownership rules, and coordinates repository operations for
// creating, listing (with pagination), updating, deleting, and membership
// changes.
//
// Service-level errors (e.g., ErrCollectionNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/clipvault/go-clipvault-api/internal/domain"
)

// CollectionStore defines the repository contract required by
// CollectionService.
type CollectionStore interface {
	// CreateCollection inserts a new collection row for the given user.
	CreateCollection(ctx context.Context, db *gorm.DB, userID, name string, description *string, isPublic bool, colorHex *string) (*domain.Collection, error)

	// GetCollection fetches a collection by ID ensuring it belongs to the user.
	GetCollection(ctx context.Context, db *gorm.DB, userID, collID string) (*domain.Collection, error)

	// CountCollections returns the total number of collections for pagination.
	CountCollections(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListCollectionsPage returns a page of collections belonging to the user.
	ListCollectionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Collection, error)

	// UpdateCollection applies column updates (only if it belongs to the user).
	UpdateCollection(ctx context.Context, db *gorm.DB, userID, collID string, updates map[string]any) error

	// DeleteCollection removes a collection and its membership rows.
	DeleteCollection(ctx context.Context, db *gorm.DB, userID, collID string) error

	// AddClipToCollection inserts the membership row if absent.
	AddClipToCollection(ctx context.Context, db *gorm.DB, collID, clipID string) (bool, error)

	// RemoveClipFromCollection deletes the membership row.
	RemoveClipFromCollection(ctx context.Context, db *gorm.DB, collID, clipID string) error

	// UserSavedClip reports whether the user has saved the clip.
	UserSavedClip(ctx context.Context, db *gorm.DB, userID, clipID string) (bool, error)
}

// CollectionUpdate carries optional field updates; nil pointers leave the
// column untouched.
type CollectionUpdate struct {
	Name        *string
	Description *string
	IsPublic    *bool
	ColorHex    *string
}

// CollectionService provides collection-level operations and enforces
// ownership constraints.
type CollectionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store is the collection repository used by this service.
	Store CollectionStore

	// NameMaxLen caps stored collection names by rune length.
	NameMaxLen int
}

// NewCollectionService constructs a CollectionService with sane defaults.
func NewCollectionService(db *gorm.DB, store CollectionStore) *CollectionService {
	return &CollectionService{DB: db, Store: store, NameMaxLen: 100}
}

// Create inserts a new collection owned by userID. Names are normalized,
// trimmed, and clipped; a blank name is rejected.
func (s *CollectionService) Create(ctx context.Context, userID, name string, description *string, isPublic bool, colorHex *string) (*domain.Collection, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyCollectionName
	}
	return s.Store.CreateCollection(ctx, s.DB, userID, s.clip(name), description, isPublic, colorHex)
}

// Get fetches a collection by ID, scoped to its owner.
func (s *CollectionService) Get(ctx context.Context, userID, collID string) (*domain.Collection, error) {
	coll, err := s.Store.GetCollection(ctx, s.DB, userID, collID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	return coll, nil
}

// ListPage returns a page of collections for a user (paginated).
// It applies defaults for invalid page/pageSize and returns total count.
func (s *CollectionService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Collection, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Store.CountCollections(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Collection{}, 0, nil
	}

	items, err := s.Store.ListCollectionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Update applies the non-nil fields of upd to a collection owned by userID.
// A blank name update is rejected; an update with no fields is a no-op.
func (s *CollectionService) Update(ctx context.Context, userID, collID string, upd CollectionUpdate) (*domain.Collection, error) {
	updates := map[string]any{}
	if upd.Name != nil {
		name := normalizeName(*upd.Name)
		if name == "" {
			return nil, ErrEmptyCollectionName
		}
		updates["name"] = s.clip(name)
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.IsPublic != nil {
		updates["is_public"] = *upd.IsPublic
	}
	if upd.ColorHex != nil {
		updates["color_hex"] = *upd.ColorHex
	}

	if len(updates) > 0 {
		if err := s.Store.UpdateCollection(ctx, s.DB, userID, collID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCollectionNotFound
			}
			return nil, err
		}
	}
	return s.Get(ctx, userID, collID)
}

// Delete removes a collection owned by userID along with its memberships.
func (s *CollectionService) Delete(ctx context.Context, userID, collID string) error {
	if err := s.Store.DeleteCollection(ctx, s.DB, userID, collID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCollectionNotFound
		}
		return err
	}
	return nil
}

// AddClip places one of the user's saved clips into their collection.
// Re-adding an existing member is a no-op, not an error.
func (s *CollectionService) AddClip(ctx context.Context, userID, collID, clipID string) error {
	if _, err := s.Get(ctx, userID, collID); err != nil {
		return err
	}
	saved, err := s.Store.UserSavedClip(ctx, s.DB, userID, clipID)
	if err != nil {
		return err
	}
	if !saved {
		return ErrClipNotFound
	}
	_, err = s.Store.AddClipToCollection(ctx, s.DB, collID, clipID)
	return err
}

// RemoveClip takes a clip out of the user's collection.
func (s *CollectionService) RemoveClip(ctx context.Context, userID, collID, clipID string) error {
	if _, err := s.Get(ctx, userID, collID); err != nil {
		return err
	}
	if err := s.Store.RemoveClipFromCollection(ctx, s.DB, collID, clipID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClipNotInCollection
		}
		return err
	}
	return nil
}

// clip truncates a collection name to the configured maximum rune length.
func (s *CollectionService) clip(name string) string {
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		return string([]rune(name)[:s.NameMaxLen])
	}
	return name
}

// normalizeName trims whitespace and collapses multiple spaces to one.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
