// Package store defines the persistence contract for checklist data and
// the wrappers shared by every backend.
//
// A Store keeps three kinds of documents:
//
//   - Lists, keyed by (owner, key) where key is the list name. Path
//     users/{uid}/lists/{name} in the document backends.
//   - Share snapshots, keyed by an opaque ShareID. Path shared_lists/{id}.
//   - Profiles, keyed by user id. Path users/{uid}. The profile carries
//     the one-time hasMigrated flag.
//
// # Conventions
//
// All methods take a context and are safe for concurrent use. Get methods
// return (nil, nil) when the record does not exist; callers decide
// whether that is an error. Delete methods are idempotent. Writes are
// whole-document overwrites except PatchLists, which applies field
// patches to several list documents as one atomic unit.
//
// Backend errors are wrapped with a short description of the failed
// operation and returned unchanged otherwise. No method retries.
//
// # Implementations
//
//   - [github.com/fullyloaded/fullyloaded/pkg/store/memory] in-process maps, used by tests and local runs
//   - [github.com/fullyloaded/fullyloaded/pkg/store/firestore] Cloud Firestore
//   - [github.com/fullyloaded/fullyloaded/pkg/store/surrealdb] SurrealDB over its RPC protocol
//   - [github.com/fullyloaded/fullyloaded/pkg/store/postgres] PostgreSQL through GORM
//   - [github.com/fullyloaded/fullyloaded/pkg/store/cqrs] two of the above, for moving data between backends
package store

import (
	"context"
	"time"

	"github.com/fullyloaded/fullyloaded/pkg/models"
)

// Store is the full persistence contract.
type Store interface {
	ListStore
	ShareStore
	ProfileStore
	ChangeLister

	// Migrate prepares the backend schema or indexes. It is safe to run
	// repeatedly.
	Migrate(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// ListStore persists list documents.
type ListStore interface {
	// GetList returns the document stored at (ownerID, key), or nil if
	// there is none.
	GetList(ctx context.Context, ownerID, key string) (*models.ListDocument, error)

	// PutList writes doc at (ownerID, doc.Key), replacing whatever was
	// there. Fields absent from doc are absent afterwards.
	PutList(ctx context.Context, ownerID string, doc *models.ListDocument) error

	// ListLists returns every list document of the owner, in no
	// particular order.
	ListLists(ctx context.Context, ownerID string) ([]*models.ListDocument, error)

	// DeleteList removes the document. Deleting a missing document
	// succeeds.
	DeleteList(ctx context.Context, ownerID, key string) error

	// PatchLists sets the name, title, userId, createdAt and updatedAt
	// fields of each referenced document, leaving categories untouched.
	// Either every patch is applied or none is.
	PatchLists(ctx context.Context, ownerID string, patches []models.ListPatch) error
}

// ShareStore persists immutable share snapshots.
type ShareStore interface {
	// CreateShare inserts snap, assigning snap.ID when it is zero.
	CreateShare(ctx context.Context, snap *models.SharedSnapshot) error

	// GetShare returns the snapshot with the given id, or nil.
	GetShare(ctx context.Context, id models.ShareID) (*models.SharedSnapshot, error)
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	// GetProfile returns the profile of uid, or nil.
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)

	// PutProfile writes the whole profile.
	PutProfile(ctx context.Context, profile *models.Profile) error
}

// ChangeLister reports records written inside a time window. It drives the
// catch-up sync between two backends. since is inclusive, until is
// exclusive.
type ChangeLister interface {
	ListModifiedLists(ctx context.Context, since, until time.Time) ([]models.ListRef, error)
	ListModifiedShareIDs(ctx context.Context, since, until time.Time) ([]models.ShareID, error)
	ListModifiedProfileIDs(ctx context.Context, since, until time.Time) ([]string, error)
}
