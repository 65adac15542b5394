package store

import (
	"context"
	"errors"

	"github.com/fullyloaded/fullyloaded/pkg/models"
)

// ErrReadOnly is returned by every write while the application is in
// read-only mode.
var ErrReadOnly = errors.New("operation denied: application is in read-only mode for data consistency")

// ReadOnlyStore wraps a Store and rejects writes while isReadOnly reports
// true. Reads always pass through.
//
// The mode is evaluated on every call, so the application can switch in
// and out of read-only mode (for a final catch-up sync between backends)
// without rebuilding the store.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) PutList(ctx context.Context, ownerID string, doc *models.ListDocument) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.PutList(ctx, ownerID, doc)
}

func (r *ReadOnlyStore) DeleteList(ctx context.Context, ownerID, key string) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteList(ctx, ownerID, key)
}

func (r *ReadOnlyStore) PatchLists(ctx context.Context, ownerID string, patches []models.ListPatch) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.PatchLists(ctx, ownerID, patches)
}

func (r *ReadOnlyStore) CreateShare(ctx context.Context, snap *models.SharedSnapshot) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateShare(ctx, snap)
}

func (r *ReadOnlyStore) PutProfile(ctx context.Context, profile *models.Profile) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.PutProfile(ctx, profile)
}

// Unwrap strips any ReadOnlyStore layers from s.
func Unwrap(s Store) Store {
	for {
		ro, ok := s.(*ReadOnlyStore)
		if !ok {
			return s
		}
		s = ro.Unwrap()
	}
}
