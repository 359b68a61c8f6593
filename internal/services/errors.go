// Package services defines the business logic for clip ingestion, retrieval,
// search, and collections. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingUser is returned when a request arrives without an
	// authenticated user identity.
	ErrMissingUser = errors.New("user identity is required")

	// ErrInvalidURL is returned when a submitted source URL is absent,
	// unparseable, or not http/https.
	ErrInvalidURL = errors.New("source URL is missing or invalid")

	// ErrClipNotFound indicates that the requested clip does not exist or
	// was never saved by the current user.
	ErrClipNotFound = errors.New("clip not found")

	// ErrCollectionNotFound indicates that the requested collection does not
	// exist or belongs to another user.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrEmptyCollectionName is returned when a collection create or rename
	// request carries a blank name.
	ErrEmptyCollectionName = errors.New("collection name is empty")

	// ErrClipNotInCollection is returned when removing a clip that is not a
	// member of the collection.
	ErrClipNotInCollection = errors.New("clip not in collection")

	// ErrNoSearchCriteria is returned when a search request provides neither
	// a text query nor tags.
	ErrNoSearchCriteria = errors.New("at least one of query or tags is required")
)

// DuplicateSaveError reports that a user re-submitted a URL they already
// saved. It carries the existing clip's ID so handlers can point the caller
// at the prior resource.
type DuplicateSaveError struct {
	ClipID string
}

func (e *DuplicateSaveError) Error() string {
	return fmt.Sprintf("clip %s already saved by this user", e.ClipID)
}
