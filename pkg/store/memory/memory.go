// Package memory provides an in-process implementation of
// [github.com/fullyloaded/fullyloaded/pkg/store.Store].
//
// Every record is deep-copied on the way in and on the way out, so callers
// can never alias stored state. The store is intended for tests and for
// running the server locally without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

type Store struct {
	mu       sync.RWMutex
	lists    map[string]map[string]*models.ListDocument
	shares   map[models.ShareID]*models.SharedSnapshot
	profiles map[string]*models.Profile
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		lists:    map[string]map[string]*models.ListDocument{},
		shares:   map[models.ShareID]*models.SharedSnapshot{},
		profiles: map[string]*models.Profile{},
	}
}

func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) GetList(_ context.Context, ownerID, key string) (*models.ListDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lists[ownerID][key].Clone(), nil
}

func (s *Store) PutList(_ context.Context, ownerID string, doc *models.ListDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.lists[ownerID]
	if !ok {
		owned = map[string]*models.ListDocument{}
		s.lists[ownerID] = owned
	}
	owned[doc.Key] = doc.Clone()
	return nil
}

func (s *Store) ListLists(_ context.Context, ownerID string) ([]*models.ListDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ListDocument, 0, len(s.lists[ownerID]))
	for _, doc := range s.lists[ownerID] {
		out = append(out, doc.Clone())
	}
	return out, nil
}

func (s *Store) DeleteList(_ context.Context, ownerID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists[ownerID], key)
	return nil
}

// PatchLists validates every target before touching any of them, which
// makes the batch all-or-nothing under the write lock.
func (s *Store) PatchLists(_ context.Context, ownerID string, patches []models.ListPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := s.lists[ownerID]
	for _, p := range patches {
		if _, ok := owned[p.Key]; !ok {
			return &store.MissingListError{OwnerID: ownerID, Key: p.Key}
		}
	}
	for _, p := range patches {
		doc := owned[p.Key]
		created, updated := p.CreatedAt, p.UpdatedAt
		doc.Name = p.Name
		doc.Title = p.Title
		doc.UserID = p.UserID
		doc.CreatedAt = &created
		doc.UpdatedAt = &updated
	}
	return nil
}

// CreateShare stores a copy of snap. An id minted here is reported back
// on snap.
func (s *Store) CreateShare(_ context.Context, snap *models.SharedSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneShare(snap)
	if stored.ID.IsZero() {
		stored.ID = models.NewShareID()
	}
	if _, exists := s.shares[stored.ID]; exists {
		return &store.DuplicateShareError{ID: stored.ID}
	}
	s.shares[stored.ID] = stored
	snap.ID = stored.ID
	return nil
}

func (s *Store) GetShare(_ context.Context, id models.ShareID) (*models.SharedSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.shares[id]
	if !ok {
		return nil, nil
	}
	return cloneShare(snap), nil
}

func (s *Store) GetProfile(_ context.Context, uid string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (s *Store) PutProfile(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	s.profiles[profile.UID] = &p
	return nil
}

func (s *Store) ListModifiedLists(_ context.Context, since, until time.Time) ([]models.ListRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []models.ListRef
	for owner, owned := range s.lists {
		for key, doc := range owned {
			if doc.UpdatedAt != nil && inWindow(*doc.UpdatedAt, since, until) {
				refs = append(refs, models.ListRef{OwnerID: owner, Key: key})
			}
		}
	}
	return refs, nil
}

func (s *Store) ListModifiedShareIDs(_ context.Context, since, until time.Time) ([]models.ShareID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []models.ShareID
	for id, snap := range s.shares {
		if inWindow(snap.CreatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) ListModifiedProfileIDs(_ context.Context, since, until time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for uid, p := range s.profiles {
		if inWindow(p.UpdatedAt, since, until) {
			ids = append(ids, uid)
		}
	}
	return ids, nil
}

func inWindow(t, since, until time.Time) bool {
	return !t.Before(since) && t.Before(until)
}

func cloneShare(snap *models.SharedSnapshot) *models.SharedSnapshot {
	out := *snap
	out.Categories = models.CloneCategories(snap.Categories)
	return &out
}
