// Package storetest holds a conformance suite that every
// [github.com/fullyloaded/fullyloaded/pkg/store.Store] implementation runs
// from its own tests.
//
// Each subtest uses fresh random owner ids, so the suite can run against
// a shared database without cleaning it first.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
)

// Factory returns a ready store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"ListRoundTrip", testListRoundTrip},
		{"PutListOverwrites", testPutListOverwrites},
		{"GetMissingList", testGetMissingList},
		{"DeleteIsIdempotent", testDeleteIsIdempotent},
		{"ListsAreScopedByOwner", testListsAreScopedByOwner},
		{"PatchLists", testPatchLists},
		{"PatchListsIsAtomic", testPatchListsIsAtomic},
		{"ShareRoundTrip", testShareRoundTrip},
		{"ProfileRoundTrip", testProfileRoundTrip},
		{"ModifiedWindow", testModifiedWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func owner() string {
	return "user-" + uuid.NewString()
}

// at truncates to milliseconds, the coarsest precision among backends.
func at(t time.Time) *time.Time {
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}

func sampleDoc(name string) *models.ListDocument {
	now := time.Now()
	return &models.ListDocument{
		Key:    name,
		Name:   name,
		Title:  name,
		UserID: "",
		Categories: []models.Category{
			{ID: "c1", Name: "Food", Items: []models.Item{
				{ID: "i1", Text: "Water", Capacity: models.IntPtr(80)},
				{ID: "i2", Text: "Beans", Checked: true},
			}},
		},
		CreatedAt: at(now),
		UpdatedAt: at(now),
	}
}

func testListRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := owner()
	doc := sampleDoc("Trip")
	doc.UserID = uid

	require.NoError(t, s.PutList(ctx, uid, doc))

	got, err := s.GetList(ctx, uid, "Trip")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Trip", got.Key)
	assert.Equal(t, "Trip", got.Name)
	assert.Equal(t, uid, got.UserID)
	assert.True(t, models.EqualCategories(doc.Categories, got.Categories))
	require.NotNil(t, got.Categories[0].Items[0].Capacity)
	assert.Equal(t, 80, *got.Categories[0].Items[0].Capacity)
	assert.Nil(t, got.Categories[0].Items[1].Capacity)
	require.NotNil(t, got.CreatedAt)
	assert.True(t, doc.CreatedAt.Equal(*got.CreatedAt))

	all, err := s.ListLists(ctx, uid)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func testPutListOverwrites(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := owner()

	first := sampleDoc("Trip")
	require.NoError(t, s.PutList(ctx, uid, first))

	second := &models.ListDocument{
		Key:        "Trip",
		Name:       "Trip",
		Categories: []models.Category{{ID: "c9", Name: "Tools", Items: []models.Item{}}},
		UpdatedAt:  at(time.Now()),
	}
	require.NoError(t, s.PutList(ctx, uid, second))

	got, err := s.GetList(ctx, uid, "Trip")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, models.EqualCategories(second.Categories, got.Categories))
	assert.Empty(t, got.Title, "overwrite must not merge old fields")
	assert.Nil(t, got.CreatedAt)

	all, err := s.ListLists(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testGetMissingList(t *testing.T, s store.Store) {
	got, err := s.GetList(context.Background(), owner(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testDeleteIsIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := owner()
	require.NoError(t, s.PutList(ctx, uid, sampleDoc("Trip")))

	require.NoError(t, s.DeleteList(ctx, uid, "Trip"))
	require.NoError(t, s.DeleteList(ctx, uid, "Trip"))
	require.NoError(t, s.DeleteList(ctx, owner(), "never-existed"))

	got, err := s.GetList(ctx, uid, "Trip")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testListsAreScopedByOwner(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice, bob := owner(), owner()
	require.NoError(t, s.PutList(ctx, alice, sampleDoc("Trip")))
	require.NoError(t, s.PutList(ctx, bob, sampleDoc("Trip")))
	require.NoError(t, s.PutList(ctx, bob, sampleDoc("Beach")))

	lists, err := s.ListLists(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	lists, err = s.ListLists(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, lists, 2)

	require.NoError(t, s.DeleteList(ctx, alice, "Trip"))
	got, err := s.GetList(ctx, bob, "Trip")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func testPatchLists(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := owner()
	legacy := &models.ListDocument{
		Key:        "Old",
		Name:       "Old",
		Categories: []models.Category{{ID: "c1", Name: "Misc", Items: []models.Item{{ID: "i1", Text: "Rope"}}}},
	}
	require.NoError(t, s.PutList(ctx, uid, legacy))

	created := at(time.Now().Add(-time.Hour))
	updated := at(time.Now())
	require.NoError(t, s.PatchLists(ctx, uid, []models.ListPatch{{
		Key: "Old", Name: "Old", Title: "Old", UserID: uid,
		CreatedAt: *created, UpdatedAt: *updated,
	}}))

	got, err := s.GetList(ctx, uid, "Old")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsCurrent(uid))
	assert.True(t, models.EqualCategories(legacy.Categories, got.Categories), "patch must not touch categories")
	require.NotNil(t, got.CreatedAt)
	assert.True(t, created.Equal(*got.CreatedAt))
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, updated.Equal(*got.UpdatedAt))

	require.NoError(t, s.PatchLists(ctx, uid, nil))
}

func testPatchListsIsAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := owner()
	require.NoError(t, s.PutList(ctx, uid, &models.ListDocument{Key: "A", Name: "A", Categories: []models.Category{}}))

	now := time.Now().UTC()
	err := s.PatchLists(ctx, uid, []models.ListPatch{
		{Key: "A", Name: "A", Title: "A", UserID: uid, CreatedAt: now, UpdatedAt: now},
		{Key: "missing", Name: "missing", Title: "missing", UserID: uid, CreatedAt: now, UpdatedAt: now},
	})
	require.Error(t, err)

	got, err := s.GetList(ctx, uid, "A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Title, "a failed batch must leave every document untouched")
}

func testShareRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	snap := &models.SharedSnapshot{
		OwnerID:          owner(),
		OwnerDisplayName: "Alex",
		ListName:         "Trip",
		Categories:       sampleDoc("Trip").Categories,
		CreatedAt:        *at(time.Now()),
		IsReadOnly:       true,
	}
	require.NoError(t, s.CreateShare(ctx, snap))
	require.False(t, snap.ID.IsZero())

	got, err := s.GetShare(ctx, snap.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, snap.OwnerID, got.OwnerID)
	assert.Equal(t, "Alex", got.OwnerDisplayName)
	assert.Equal(t, "Trip", got.ListName)
	assert.True(t, got.IsReadOnly)
	assert.True(t, snap.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, models.EqualCategories(snap.Categories, got.Categories))

	missing, err := s.GetShare(ctx, models.NewShareID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testProfileRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := owner()

	got, err := s.GetProfile(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, got)

	p := &models.Profile{UID: uid, DisplayName: "Alex", Email: "alex@example.com", UpdatedAt: *at(time.Now())}
	require.NoError(t, s.PutProfile(ctx, p))

	p.HasMigrated = true
	p.PhotoURL = "https://img.example.com/a.png"
	require.NoError(t, s.PutProfile(ctx, p))

	got, err = s.GetProfile(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alex", got.DisplayName)
	assert.Equal(t, "alex@example.com", got.Email)
	assert.Equal(t, "https://img.example.com/a.png", got.PhotoURL)
	assert.True(t, got.HasMigrated)
}

func testModifiedWindow(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := owner()
	base := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)

	inside := sampleDoc("Inside")
	inside.UpdatedAt = at(base.Add(time.Minute))
	outside := sampleDoc("Outside")
	outside.UpdatedAt = at(base.Add(2 * time.Hour))
	require.NoError(t, s.PutList(ctx, uid, inside))
	require.NoError(t, s.PutList(ctx, uid, outside))

	snap := &models.SharedSnapshot{OwnerID: uid, ListName: "Inside", CreatedAt: base.Add(time.Minute), Categories: []models.Category{}, IsReadOnly: true}
	require.NoError(t, s.CreateShare(ctx, snap))
	require.NoError(t, s.PutProfile(ctx, &models.Profile{UID: uid, UpdatedAt: base.Add(time.Minute)}))

	since, until := base, base.Add(time.Hour)

	refs, err := s.ListModifiedLists(ctx, since, until)
	require.NoError(t, err)
	assert.Contains(t, refs, models.ListRef{OwnerID: uid, Key: "Inside"})
	assert.NotContains(t, refs, models.ListRef{OwnerID: uid, Key: "Outside"})

	shareIDs, err := s.ListModifiedShareIDs(ctx, since, until)
	require.NoError(t, err)
	assert.Contains(t, shareIDs, snap.ID)

	profileIDs, err := s.ListModifiedProfileIDs(ctx, since, until)
	require.NoError(t, err)
	assert.Contains(t, profileIDs, uid)
}
