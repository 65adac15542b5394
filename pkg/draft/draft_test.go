package draft

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store/memory"
)

type recordingSaver struct {
	calls int
	err   error
	name  string
	cats  []models.Category
}

func (r *recordingSaver) Save(_ context.Context, name string, categories []models.Category) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.name = name
	r.cats = models.CloneCategories(categories)
	return nil
}

func loaded() *Draft {
	d := Load("Trip", []models.Category{
		{ID: "food", Name: "Food", Items: []models.Item{
			{ID: "water", Text: "Water", Capacity: models.IntPtr(80)},
			{ID: "beans", Text: "Beans"},
		}},
		{ID: "shelter", Name: "Shelter", Items: []models.Item{}},
	})
	n := 0
	d.newID = func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
	return d
}

func TestCleanAfterLoad(t *testing.T) {
	assert.False(t, loaded().IsDirty())
	assert.False(t, New().IsDirty())
	assert.Equal(t, models.DefaultListName, New().Name())
}

func TestEveryMutationMakesDirty(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft) error
	}{
		{"toggle item", func(d *Draft) error { return d.ToggleItem("food", "water") }},
		{"add item", func(d *Draft) error { _, err := d.AddItem("food", "Stove", nil); return err }},
		{"edit item text", func(d *Draft) error { return d.EditItem("food", "beans", "Rice", nil) }},
		{"edit item capacity", func(d *Draft) error { return d.EditItem("food", "water", "Water", models.IntPtr(40)) }},
		{"delete item", func(d *Draft) error { return d.DeleteItem("food", "beans") }},
		{"add category", func(d *Draft) error { _, err := d.AddCategory("Tools"); return err }},
		{"rename category", func(d *Draft) error { return d.RenameCategory("shelter", "Sleep") }},
		{"delete category", func(d *Draft) error { return d.DeleteCategory("shelter") }},
		{"rename list", func(d *Draft) error { return d.SetName("Beach") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := loaded()
			require.NoError(t, tt.mutate(d))
			assert.True(t, d.IsDirty())
		})
	}
}

func TestToggleTwiceIsClean(t *testing.T) {
	d := loaded()
	require.NoError(t, d.ToggleItem("food", "water"))
	require.NoError(t, d.ToggleItem("food", "water"))
	assert.False(t, d.IsDirty(), "dirtiness is structural, not a flag")
}

func TestReorderIsDirty(t *testing.T) {
	d := loaded()
	cats := d.working.categories
	cats[0], cats[1] = cats[1], cats[0]
	assert.True(t, d.IsDirty())
}

func TestSaveResetsSnapshot(t *testing.T) {
	ctx := context.Background()
	d := loaded()
	saver := &recordingSaver{}

	require.NoError(t, d.ToggleItem("food", "beans"))
	require.NoError(t, d.Save(ctx, saver))
	assert.False(t, d.IsDirty())
	assert.Equal(t, "Trip", saver.name)
	assert.True(t, saver.cats[0].Items[1].Checked)

	require.NoError(t, d.Save(ctx, saver))
	assert.False(t, d.IsDirty())
	assert.Equal(t, 2, saver.calls)

	_, snap := d.Snapshot()
	snap[0].Name = "mutated"
	assert.False(t, d.IsDirty(), "Snapshot returns a copy")
}

func TestFailedSaveStaysDirty(t *testing.T) {
	d := loaded()
	require.NoError(t, d.DeleteItem("food", "water"))

	err := d.Save(context.Background(), &recordingSaver{err: errors.New("offline")})
	require.Error(t, err)
	assert.True(t, d.IsDirty())
}

func TestReset(t *testing.T) {
	d := loaded()
	require.NoError(t, d.DeleteCategory("food"))
	d.Reset()
	assert.False(t, d.IsDirty())
	assert.Len(t, d.Working(), 2)
}

func TestDeleteCategoryCascades(t *testing.T) {
	d := loaded()
	require.NoError(t, d.DeleteCategory("food"))
	require.Len(t, d.Working(), 1)
	require.ErrorIs(t, d.ToggleItem("food", "water"), checklist.ErrNotFound)

	_, snap := d.Snapshot()
	assert.Len(t, snap, 2, "the snapshot is untouched")
}

func TestAddItemAssignsIDAndAppends(t *testing.T) {
	d := loaded()
	id, err := d.AddItem("shelter", " Tent ", models.IntPtr(100))
	require.NoError(t, err)
	assert.Equal(t, "new-1", id)

	items := d.Working()[1].Items
	require.Len(t, items, 1)
	assert.Equal(t, models.Item{ID: "new-1", Text: "Tent", Capacity: models.IntPtr(100)}, items[0])
}

func TestDisplayItemsPutsCheckedLast(t *testing.T) {
	d := loaded()
	require.NoError(t, d.ToggleItem("food", "water"))

	items, err := d.DisplayItems("food")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "beans", items[0].ID)
	assert.Equal(t, "water", items[1].ID)

	assert.Equal(t, "water", d.Working()[0].Items[0].ID, "display order does not reorder the list")
	assert.True(t, d.IsDirty())

	_, err = d.DisplayItems("missing")
	require.ErrorIs(t, err, checklist.ErrNotFound)
}

func TestMutationErrors(t *testing.T) {
	d := loaded()

	_, err := d.AddItem("missing", "Tent", nil)
	require.ErrorIs(t, err, checklist.ErrNotFound)
	_, err = d.AddItem("food", "  ", nil)
	require.ErrorIs(t, err, checklist.ErrValidation)
	_, err = d.AddItem("food", "Tent", models.IntPtr(101))
	require.ErrorIs(t, err, checklist.ErrValidation)
	require.ErrorIs(t, d.EditItem("food", "water", "Water", models.IntPtr(-5)), checklist.ErrValidation)
	require.ErrorIs(t, d.EditItem("food", "nope", "x", nil), checklist.ErrNotFound)
	require.ErrorIs(t, d.DeleteItem("food", "nope"), checklist.ErrNotFound)
	require.ErrorIs(t, d.DeleteCategory("nope"), checklist.ErrNotFound)
	require.ErrorIs(t, d.RenameCategory("food", ""), checklist.ErrValidation)
	_, err = d.AddCategory(" ")
	require.ErrorIs(t, err, checklist.ErrValidation)
	require.ErrorIs(t, d.SetName(""), checklist.ErrValidation)

	assert.False(t, d.IsDirty(), "rejected mutations leave the draft untouched")
}

func TestSaveThroughListsService(t *testing.T) {
	ctx := context.Background()
	lists := checklist.NewLists(memory.New())
	d := loaded()
	require.NoError(t, d.SetName("  Weekend "))
	require.NoError(t, d.Save(ctx, ForOwner(lists, "owner")))

	got, err := lists.Get(ctx, "owner", "Weekend")
	require.NoError(t, err)
	assert.True(t, models.EqualCategories(d.Working(), got.Categories))
	assert.False(t, d.IsDirty())
	assert.Equal(t, "Weekend", d.Name())
}
