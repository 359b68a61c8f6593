// Package domain defines the persistence models for clips, user-clip links,
// tags, and collections. These types are mapped with GORM and form the core
// data layer of the ClipVault API.
package domain

import "time"

// Clip represents a saved resource (a link), deduplicated globally by its
// source URL. Clips are created on first submission of a URL and later
// enriched downstream with a transcript and summary; they are never deleted
// by this service.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - SourceURL: canonical URL of the resource; globally unique.
//   - Transcript / Summary: optional enrichment fields, populated by the
//     processing pipeline outside this service.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Clip struct {
	ID         string    `json:"clip_id"    gorm:"type:char(36);primaryKey"`
	SourceURL  string    `json:"source_url" gorm:"type:varchar(2048);not null;uniqueIndex:ux_clips_source_url"`
	Transcript *string   `json:"transcript,omitempty" gorm:"type:text"`
	Summary    *string   `json:"summary,omitempty"    gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Tags attached to the clip by the enrichment pipeline.
	Tags []Tag `json:"tags,omitempty" gorm:"many2many:clip_tags;joinForeignKey:ClipID;joinReferences:TagID"`
}

// TableName returns the database table name for Clip.
func (Clip) TableName() string { return "clips" }

// UserClip records that a specific user has saved a specific clip. The
// (user_id, clip_id) pair is unique: re-saving the same URL by the same user
// is a duplicate, surfaced to the caller as a conflict rather than a new row.
type UserClip struct {
	UserID  string    `json:"user_id"  gorm:"type:varchar(64);primaryKey"`
	ClipID  string    `json:"clip_id"  gorm:"type:char(36);primaryKey;index"`
	SavedAt time.Time `json:"saved_at"`

	// Clip is the saved resource. Links are cascade-deleted if the clip
	// is ever removed by an operator.
	Clip Clip `json:"-" gorm:"foreignKey:ClipID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserClip.
func (UserClip) TableName() string { return "user_clips" }

// Tag is a label attached to clips by the enrichment pipeline. Tag names are
// unique; membership lives in the clip_tags join table.
type Tag struct {
	ID   string `json:"tag_id" gorm:"type:char(36);primaryKey"`
	Name string `json:"name"   gorm:"type:varchar(128);not null;uniqueIndex:ux_tags_name"`
}

// TableName returns the database table name for Tag.
func (Tag) TableName() string { return "tags" }

// Collection is a user-owned grouping of clips.
type Collection struct {
	ID          string    `json:"coll_id"     gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_collections"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	IsPublic    bool      `json:"is_public"   gorm:"not null;default:false"`
	ColorHex    *string   `json:"color_hex,omitempty" gorm:"type:varchar(7)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Collection.
func (Collection) TableName() string { return "collections" }

// CollectionClip is the membership record of a clip in a collection.
// The (collection_id, clip_id) pair is unique; re-adding is a no-op.
type CollectionClip struct {
	CollectionID string    `json:"coll_id" gorm:"type:char(36);primaryKey"`
	ClipID       string    `json:"clip_id" gorm:"type:char(36);primaryKey;index"`
	AddedAt      time.Time `json:"added_at"`

	Collection Collection `json:"-" gorm:"foreignKey:CollectionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Clip       Clip       `json:"-" gorm:"foreignKey:ClipID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CollectionClip.
func (CollectionClip) TableName() string { return "collection_clips" }

// ClipDetail is the read model returned when a user fetches one of their
// saved clips: the clip row joined with the user's link (saved_at) and tags.
type ClipDetail struct {
	Clip
	SavedAt time.Time `json:"saved_at"`
}
