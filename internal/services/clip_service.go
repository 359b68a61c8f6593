// Package services – ClipService
//
// This file implements the ClipService, which orchestrates clip ingestion:
// URL validation, the idempotent clip upsert, the user-clip link, duplicate
// detection, and the clip.created event publication. Persistence succeeds or
// fails on its own; event delivery is observed and logged but never turns a
// saved clip into an error.
//
// Service-level errors (e.g., ErrInvalidURL, DuplicateSaveError) are returned
// for predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/clipvault/go-clipvault-api/internal/domain"
)

// ClipStore defines the repository contract required by ClipService.
// Implementations are responsible for persistence of clips and user links.
type ClipStore interface {
	// UpsertClip inserts a clip for sourceURL or resolves the existing one.
	// The bool reports whether this call created the clip.
	UpsertClip(ctx context.Context, db *gorm.DB, sourceURL string) (string, bool, error)

	// LinkUserClip records that userID saved clipID. The bool reports
	// whether this call created the link.
	LinkUserClip(ctx context.Context, db *gorm.DB, userID, clipID string) (bool, error)

	// GetClipWithTagsForUser fetches a clip with tags, scoped to the user.
	GetClipWithTagsForUser(ctx context.Context, db *gorm.DB, userID, clipID string) (*domain.ClipDetail, error)
}

// ClipPublisher is the event-side contract required by ClipService. The
// returned bool reports confirmed delivery; implementations never error.
type ClipPublisher interface {
	PublishClipCreated(ctx context.Context, clipID, sourceURL, userID, correlationID string) bool
}

// SaveResult is the outcome of a successful save: the clip identity plus a
// processing status for the caller.
type SaveResult struct {
	ClipID string `json:"clip_id"`
	Status string `json:"status"`
}

// StatusQueued is the status of every freshly accepted save: the clip is
// persisted and queued for downstream enrichment.
const StatusQueued = "queued"

// ClipService provides clip-level operations: saving a URL for a user and
// fetching a saved clip with its tags.
type ClipService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store is the clip repository used by this service.
	Store ClipStore
	// Publisher emits clip.created events for brand-new clips. May be nil,
	// in which case events are skipped (and logged as such).
	Publisher ClipPublisher
}

// NewClipService constructs a ClipService.
func NewClipService(db *gorm.DB, store ClipStore, pub ClipPublisher) *ClipService {
	return &ClipService{DB: db, Store: store, Publisher: pub}
}

// Save ingests sourceURL on behalf of userID.
//
// The flow is strictly ordered: validate inputs, upsert the clip, link the
// user, short-circuit on a pre-existing link with DuplicateSaveError, publish
// clip.created only when this call created the clip itself (not merely the
// link), and return the queued result. Publication failure never fails the
// save; the clip is durable the moment the link commits.
func (s *ClipService) Save(ctx context.Context, userID, sourceURL, correlationID string) (*SaveResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	sourceURL = strings.TrimSpace(sourceURL)
	if !validSourceURL(sourceURL) {
		return nil, ErrInvalidURL
	}

	clipID, isNewClip, err := s.Store.UpsertClip(ctx, s.DB, sourceURL)
	if err != nil {
		return nil, err
	}

	isNewLink, err := s.Store.LinkUserClip(ctx, s.DB, userID, clipID)
	if err != nil {
		return nil, err
	}
	if !isNewLink {
		return nil, &DuplicateSaveError{ClipID: clipID}
	}

	if isNewClip {
		if s.Publisher != nil {
			if ok := s.Publisher.PublishClipCreated(ctx, clipID, sourceURL, userID, correlationID); !ok {
				log.Warn().
					Str("clip_id", clipID).
					Str("user_id", userID).
					Msg("clip saved but clip.created event not delivered")
			}
		} else {
			log.Debug().Str("clip_id", clipID).Msg("no event publisher configured, skipping clip.created")
		}
	}

	return &SaveResult{ClipID: clipID, Status: StatusQueued}, nil
}

// Get returns the clip with its tags, provided userID has saved it.
// A clip the user never saved yields ErrClipNotFound.
func (s *ClipService) Get(ctx context.Context, userID, clipID string) (*domain.ClipDetail, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	detail, err := s.Store.GetClipWithTagsForUser(ctx, s.DB, userID, clipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClipNotFound
		}
		return nil, err
	}
	return detail, nil
}

// validSourceURL accepts absolute http/https URLs with a host.
func validSourceURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
