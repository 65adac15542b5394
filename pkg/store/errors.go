package store

import (
	"fmt"

	"github.com/fullyloaded/fullyloaded/pkg/models"
)

// MissingListError is returned by PatchLists when a patch targets a list
// that does not exist. The whole batch is rejected.
type MissingListError struct {
	OwnerID string
	Key     string
}

func (e *MissingListError) Error() string {
	return fmt.Sprintf("list %q of user %q does not exist", e.Key, e.OwnerID)
}

// DuplicateShareError is returned by CreateShare when the id is taken.
type DuplicateShareError struct {
	ID models.ShareID
}

func (e *DuplicateShareError) Error() string {
	return fmt.Sprintf("share %s already exists", e.ID)
}

// MalformedListError is returned by GetList when a stored list exists but
// cannot be decoded. Backends without a schema can hold such documents.
type MalformedListError struct {
	OwnerID string
	Key     string
	Err     error
}

func (e *MalformedListError) Error() string {
	return fmt.Sprintf("list %q of user %q is malformed: %v", e.Key, e.OwnerID, e.Err)
}

func (e *MalformedListError) Unwrap() error { return e.Err }
