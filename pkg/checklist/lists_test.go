package checklist_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
	"github.com/fullyloaded/fullyloaded/pkg/store/memory"
)

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 19, 9, 0, 0, 0, time.UTC)}
}

// failingStore fails selected operations with errBackend.
type failingStore struct {
	store.Store
	failGet   bool
	failPut   bool
	failPatch bool
}

var errBackend = errors.New("backend unavailable")

func (f *failingStore) GetList(ctx context.Context, ownerID, key string) (*models.ListDocument, error) {
	if f.failGet {
		return nil, errBackend
	}
	return f.Store.GetList(ctx, ownerID, key)
}

func (f *failingStore) PutList(ctx context.Context, ownerID string, doc *models.ListDocument) error {
	if f.failPut {
		return errBackend
	}
	return f.Store.PutList(ctx, ownerID, doc)
}

func (f *failingStore) PatchLists(ctx context.Context, ownerID string, patches []models.ListPatch) error {
	if f.failPatch {
		return errBackend
	}
	return f.Store.PatchLists(ctx, ownerID, patches)
}

func tripCategories() []models.Category {
	return []models.Category{
		{ID: "food", Name: "Food", Items: []models.Item{
			{ID: "water", Text: "Water", Capacity: models.IntPtr(80)},
		}},
	}
}

func TestSaveThenListScenario(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())

	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))

	got, err := lists.List(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Trip", got[0].Name)
	require.Len(t, got[0].Categories, 1)
	assert.Equal(t, "Food", got[0].Categories[0].Name)
	require.Len(t, got[0].Categories[0].Items, 1)
	assert.Equal(t, "Water", got[0].Categories[0].Items[0].Text)
	require.NotNil(t, got[0].Categories[0].Items[0].Capacity)
	assert.Equal(t, 80, *got[0].Categories[0].Items[0].Capacity)
}

func TestSaveRoundTripFidelity(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())
	input := []models.Category{
		{ID: "a", Name: "Shelter", Items: []models.Item{
			{ID: "1", Text: "Tent", Checked: true},
			{ID: "2", Text: "Pegs", Capacity: models.IntPtr(0)},
			{ID: "3", Text: "Tarp", Capacity: models.IntPtr(100)},
		}},
		{ID: "b", Name: "Empty", Items: []models.Item{}},
	}

	require.NoError(t, lists.Save(ctx, "owner", "Trip", input))
	got, err := lists.Get(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, models.EqualCategories(input, got.Categories))
}

func TestSecondSaveReplacesCategories(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())

	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))
	second := []models.Category{{ID: "tools", Name: "Tools", Items: []models.Item{{ID: "knife", Text: "Knife"}}}}
	require.NoError(t, lists.Save(ctx, "owner", "Trip", second))

	got, err := lists.List(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, models.EqualCategories(second, got[0].Categories))
}

func TestSavePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	lists := checklist.NewLists(memory.New(), checklist.WithClock(clk.Now))

	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))
	first, err := lists.Get(ctx, "owner", "Trip")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))
	second, err := lists.Get(ctx, "owner", "Trip")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "2024-03-19T09:00:00.000Z", second.CreatedAt)
	assert.Equal(t, "2024-03-19T10:00:00.000Z", second.UpdatedAt)
}

func TestSaveTrimsName(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())

	require.NoError(t, lists.Save(ctx, "owner", "  Trip ", tripCategories()))
	exists, err := lists.Exists(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())

	tests := []struct {
		name       string
		owner      string
		list       string
		categories []models.Category
	}{
		{name: "empty owner", owner: "", list: "Trip"},
		{name: "blank name", owner: "o", list: "   "},
		{name: "capacity out of range", owner: "o", list: "Trip", categories: []models.Category{
			{ID: "c", Name: "C", Items: []models.Item{{ID: "i", Text: "x", Capacity: models.IntPtr(150)}}},
		}},
		{name: "category without name", owner: "o", list: "Trip", categories: []models.Category{{ID: "c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lists.Save(ctx, tt.owner, tt.list, tt.categories)
			require.ErrorIs(t, err, checklist.ErrValidation)
		})
	}
}

func TestExistsBeforeAndAfterSave(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())

	exists, err := lists.Exists(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, lists.Save(ctx, "owner", "Trip", nil))

	exists, err = lists.Exists(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())
	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))

	require.NoError(t, lists.Delete(ctx, "owner", "Trip"))
	exists, err := lists.Exists(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, lists.Delete(ctx, "owner", "Trip"))
	require.NoError(t, lists.Delete(ctx, "owner", "Never saved"))
}

func TestGetMissingIsNotFound(t *testing.T) {
	lists := checklist.NewLists(memory.New())
	_, err := lists.Get(context.Background(), "owner", "Nope")
	require.ErrorIs(t, err, checklist.ErrNotFound)
}

func TestSaveNewConflict(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())
	require.NoError(t, lists.SaveNew(ctx, "owner", "Trip", tripCategories(), false))

	replacement := []models.Category{{ID: "x", Name: "X", Items: []models.Item{}}}
	err := lists.SaveNew(ctx, "owner", " Trip", replacement, false)
	require.ErrorIs(t, err, checklist.ErrConflict)

	got, err := lists.Get(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, models.EqualCategories(tripCategories(), got.Categories), "conflict must not write")

	require.NoError(t, lists.SaveNew(ctx, "owner", "Trip", replacement, true))
	got, err = lists.Get(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, models.EqualCategories(replacement, got.Categories))
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())
	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))

	require.NoError(t, lists.Rename(ctx, "owner", "Trip", "Beach", false))

	oldExists, err := lists.Exists(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.False(t, oldExists)

	got, err := lists.Get(ctx, "owner", "Beach")
	require.NoError(t, err)
	assert.True(t, models.EqualCategories(tripCategories(), got.Categories))
}

func TestRenameToSameNameKeepsList(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())
	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))

	require.NoError(t, lists.Rename(ctx, "owner", "Trip", " Trip ", false))

	exists, err := lists.Exists(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRenameConflictAndMissingSource(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())
	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))
	require.NoError(t, lists.Save(ctx, "owner", "Beach", nil))

	require.ErrorIs(t, lists.Rename(ctx, "owner", "Trip", "Beach", false), checklist.ErrConflict)
	require.ErrorIs(t, lists.Rename(ctx, "owner", "Missing", "Other", false), checklist.ErrNotFound)

	require.NoError(t, lists.Rename(ctx, "owner", "Trip", "Beach", true))
	got, err := lists.Get(ctx, "owner", "Beach")
	require.NoError(t, err)
	assert.True(t, models.EqualCategories(tripCategories(), got.Categories))
}

func TestRenameFailedSaveKeepsSource(t *testing.T) {
	ctx := context.Background()
	backend := &failingStore{Store: memory.New()}
	lists := checklist.NewLists(backend)
	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))

	backend.failPut = true
	err := lists.Rename(ctx, "owner", "Trip", "Beach", false)
	require.ErrorIs(t, err, checklist.ErrStore)
	require.ErrorIs(t, err, errBackend)

	backend.failPut = false
	exists, err := lists.Exists(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, exists, "save-then-delete never loses the source")
}

func TestStoreErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(&failingStore{Store: memory.New(), failGet: true})

	_, err := lists.Exists(ctx, "owner", "Trip")
	require.ErrorIs(t, err, checklist.ErrStore)
	require.ErrorIs(t, err, errBackend)

	var cerr *checklist.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "check list", cerr.Op)
}

func TestListSkipsMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.PutList(ctx, "owner", &models.ListDocument{
		Key:        "Broken",
		Name:       "Broken",
		Categories: []models.Category{{ID: "", Name: "No id"}},
	}))
	lists := checklist.NewLists(backend)
	require.NoError(t, lists.Save(ctx, "owner", "Trip", tripCategories()))

	got, err := lists.List(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Trip", got[0].Name)
}

// undecodableStore reports "Broken" as a stored but undecodable list.
type undecodableStore struct {
	*memory.Store
}

func (u undecodableStore) GetList(ctx context.Context, ownerID, key string) (*models.ListDocument, error) {
	if key == "Broken" {
		return nil, &store.MalformedListError{OwnerID: ownerID, Key: key, Err: errors.New("capacity is not an integer")}
	}
	return u.Store.GetList(ctx, ownerID, key)
}

func TestUndecodableListDocument(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(undecodableStore{memory.New()})

	_, err := lists.Get(ctx, "owner", "Broken")
	require.ErrorIs(t, err, checklist.ErrValidation)

	exists, err := lists.Exists(ctx, "owner", "Broken")
	require.NoError(t, err)
	assert.True(t, exists, "a malformed list still occupies its name")

	err = lists.SaveNew(ctx, "owner", "Broken", tripCategories(), false)
	require.ErrorIs(t, err, checklist.ErrConflict)

	require.ErrorIs(t, lists.Rename(ctx, "owner", "Broken", "Fixed", false), checklist.ErrValidation)

	require.NoError(t, lists.Save(ctx, "owner", "Broken", tripCategories()), "saving replaces a malformed list")
}

func TestListOrderAndTimestampFallback(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	require.NoError(t, backend.PutList(ctx, "owner", &models.ListDocument{Key: "b", Name: "b"}))
	require.NoError(t, backend.PutList(ctx, "owner", &models.ListDocument{Key: "a", Title: "a"}))
	clk := newClock()
	lists := checklist.NewLists(backend, checklist.WithClock(clk.Now))

	got, err := lists.List(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "2024-03-19T09:00:00.000Z", got[0].UpdatedAt)
	assert.NotNil(t, got[1].Categories)
}
