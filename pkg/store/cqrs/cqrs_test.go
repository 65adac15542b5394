package cqrs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
	"github.com/fullyloaded/fullyloaded/pkg/store/cqrs"
	"github.com/fullyloaded/fullyloaded/pkg/store/memory"
	"github.com/fullyloaded/fullyloaded/pkg/store/storetest"
)

func TestConformance(t *testing.T) {
	for _, mode := range []cqrs.MigrationMode{cqrs.ModeSingle, cqrs.ModeSwitching, cqrs.ModeReversed} {
		t.Run(string(mode), func(t *testing.T) {
			storetest.Run(t, func(t *testing.T) store.Store {
				return cqrs.NewCQRSStore(memory.New(), memory.New(), mode, zerolog.Nop())
			})
		})
	}
}

func list(name string, updated time.Time) *models.ListDocument {
	return &models.ListDocument{Key: name, Name: name, Title: name, Categories: []models.Category{}, UpdatedAt: &updated}
}

func TestModeRouting(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeSingle, zerolog.Nop())
	now := time.Now().UTC()

	require.NoError(t, c.PutList(ctx, "u1", list("Trip", now)))
	got, err := secondary.GetList(ctx, "u1", "Trip")
	require.NoError(t, err)
	assert.NotNil(t, got, "single mode mirrors writes")

	require.NoError(t, secondary.PutList(ctx, "u1", list("OnlySecondary", now)))
	got, err = c.GetList(ctx, "u1", "OnlySecondary")
	require.NoError(t, err)
	assert.Nil(t, got, "single mode reads the primary")

	require.NoError(t, c.SetMode(cqrs.ModeSwitching))
	got, err = c.GetList(ctx, "u1", "OnlySecondary")
	require.NoError(t, err)
	assert.NotNil(t, got, "switching mode reads the secondary")

	require.NoError(t, c.PutList(ctx, "u1", list("Beach", now)))
	for _, s := range []store.Store{primary, secondary} {
		got, err = s.GetList(ctx, "u1", "Beach")
		require.NoError(t, err)
		assert.NotNil(t, got, "switching mode writes both stores")
	}

	require.NoError(t, c.SetMode(cqrs.ModeReversed))
	require.NoError(t, c.PutList(ctx, "u1", list("Lake", now)))
	got, err = primary.GetList(ctx, "u1", "Lake")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = secondary.GetList(ctx, "u1", "Lake")
	require.NoError(t, err)
	assert.NotNil(t, got, "reversed mode writes the secondary")
}

// failingStore rejects every list write.
type failingStore struct {
	*memory.Store
}

func (failingStore) PutList(context.Context, string, *models.ListDocument) error {
	return errors.New("disk full")
}

func TestSwitchingModeRequiresSecondaryWrites(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	c := cqrs.NewCQRSStore(primary, failingStore{memory.New()}, cqrs.ModeSingle, zerolog.Nop())

	require.NoError(t, c.PutList(ctx, "u1", list("Trip", time.Now())), "single mode only logs mirror failures")

	require.NoError(t, c.SetMode(cqrs.ModeSwitching))
	err := c.PutList(ctx, "u1", list("Beach", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSwitchingModeServices(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeSingle, zerolog.Nop())
	require.NoError(t, c.SetMode(cqrs.ModeSwitching))

	lists := checklist.NewLists(c)
	cats := []models.Category{{ID: "c1", Name: "Food", Items: []models.Item{{ID: "i1", Text: "Water"}}}}

	require.NoError(t, lists.Save(ctx, "u1", "Trip", cats))
	exists, err := lists.Exists(ctx, "u1", "Trip")
	require.NoError(t, err)
	assert.True(t, exists)
	got, err := lists.Get(ctx, "u1", "Trip")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cats, got.Categories)

	err = lists.SaveNew(ctx, "u1", "Trip", []models.Category{}, false)
	require.ErrorIs(t, err, checklist.ErrConflict)

	created := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	legacy := &models.ListDocument{Key: "Beach", Title: "Beach", Categories: []models.Category{}, CreatedAt: &created}
	require.NoError(t, c.PutList(ctx, "u2", legacy))

	migrator := checklist.NewMigrator(c, c)
	count, err := migrator.Run(ctx, "u2", "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, s := range []store.Store{primary, secondary} {
		doc, err := s.GetList(ctx, "u2", "Beach")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.True(t, doc.IsCurrent("u2"))
		assert.Equal(t, created, *doc.CreatedAt)
	}
}

func TestReadOnlyMode(t *testing.T) {
	ctx := context.Background()
	c := cqrs.NewCQRSStore(memory.New(), memory.New(), cqrs.ModeSingle, zerolog.Nop())
	require.NoError(t, c.PutList(ctx, "u1", list("Trip", time.Now())))

	require.NoError(t, c.SetMode(cqrs.ModeReadOnly))
	require.ErrorIs(t, c.PutList(ctx, "u1", list("Beach", time.Now())), store.ErrReadOnly)
	require.ErrorIs(t, c.DeleteList(ctx, "u1", "Trip"), store.ErrReadOnly)
	require.ErrorIs(t, c.CreateShare(ctx, &models.SharedSnapshot{}), store.ErrReadOnly)

	got, err := c.GetList(ctx, "u1", "Trip")
	require.NoError(t, err)
	assert.NotNil(t, got)

	require.Error(t, c.SetMode(cqrs.ModeReversed), "read_only may only lead to switching or single")
	require.NoError(t, c.SetMode(cqrs.ModeSwitching))
	assert.Equal(t, cqrs.ModeSwitching, c.GetMode())
}

func TestModeValidation(t *testing.T) {
	c := cqrs.NewCQRSStore(memory.New(), nil, cqrs.ModeSingle, zerolog.Nop())
	require.Error(t, c.SetMode(cqrs.ModeSwitching))
	require.Error(t, c.SetMode(cqrs.ModeReversed))
	require.Error(t, c.SetMode("sideways"))
	require.NoError(t, c.SetMode(cqrs.ModeReadOnly))

	_, err := cqrs.ParseMode("read_only")
	require.NoError(t, err)
	_, err = cqrs.ParseMode("")
	require.Error(t, err)
}

func TestSyncMissedUpdates(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	base := time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC)

	require.NoError(t, primary.PutList(ctx, "u1", list("Inside", base.Add(time.Minute))))
	require.NoError(t, primary.PutList(ctx, "u1", list("Before", base.Add(-time.Minute))))
	require.NoError(t, primary.PutList(ctx, "u2", list("AtUntil", base.Add(time.Hour))))
	snap := &models.SharedSnapshot{OwnerID: "u1", ListName: "Inside", CreatedAt: base.Add(time.Minute), IsReadOnly: true}
	require.NoError(t, primary.CreateShare(ctx, snap))
	require.NoError(t, primary.PutProfile(ctx, &models.Profile{UID: "u1", DisplayName: "Alex", UpdatedAt: base}))

	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeSingle, zerolog.Nop())
	stats, err := c.SyncMissedUpdates(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, cqrs.SyncStats{Lists: 1, Shares: 1, Profiles: 1}, stats)

	got, err := secondary.GetList(ctx, "u1", "Inside")
	require.NoError(t, err)
	assert.NotNil(t, got)
	got, err = secondary.GetList(ctx, "u1", "Before")
	require.NoError(t, err)
	assert.Nil(t, got, "since is inclusive, records before it are skipped")
	got, err = secondary.GetList(ctx, "u2", "AtUntil")
	require.NoError(t, err)
	assert.Nil(t, got, "until is exclusive")

	share, err := secondary.GetShare(ctx, snap.ID)
	require.NoError(t, err)
	require.NotNil(t, share)
	assert.Equal(t, "Inside", share.ListName)

	again, err := c.SyncMissedUpdates(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, again.Shares, "shares already present are not copied twice")
	assert.Zero(t, again.Failed)
}

// malformedSource reports every list as undecodable.
type malformedSource struct {
	*memory.Store
}

func (malformedSource) GetList(_ context.Context, ownerID, key string) (*models.ListDocument, error) {
	return nil, &store.MalformedListError{OwnerID: ownerID, Key: key, Err: errors.New("bad categories")}
}

func TestSyncSkipsMalformedLists(t *testing.T) {
	ctx := context.Background()
	source, target := memory.New(), memory.New()
	base := time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, source.PutList(ctx, "u1", list("Broken", base)))
	require.NoError(t, source.PutProfile(ctx, &models.Profile{UID: "u1", UpdatedAt: base}))

	stats, err := cqrs.SyncMissed(ctx, malformedSource{source}, target, base, base.Add(time.Hour), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cqrs.SyncStats{Profiles: 1, Skipped: 1}, stats)
}

func TestSyncCopiesAutoIDShares(t *testing.T) {
	ctx := context.Background()
	source, target := memory.New(), memory.New()
	base := time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC)
	id, err := models.ParseShareID("AbCdEf0123456789wxyz")
	require.NoError(t, err)
	require.NoError(t, source.CreateShare(ctx, &models.SharedSnapshot{ID: id, ListName: "Trip", CreatedAt: base}))

	stats, err := cqrs.SyncMissed(ctx, source, target, base, base.Add(time.Hour), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Shares)
	got, err := target.GetShare(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Trip", got.ListName)
}

func TestReverseSync(t *testing.T) {
	ctx := context.Background()
	primary, secondary := memory.New(), memory.New()
	now := time.Now().UTC()
	require.NoError(t, secondary.PutList(ctx, "u1", list("New", now)))

	c := cqrs.NewCQRSStore(primary, secondary, cqrs.ModeReversed, zerolog.Nop())
	stats, err := c.ReverseSyncMissedUpdates(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Lists)

	got, err := primary.GetList(ctx, "u1", "New")
	require.NoError(t, err)
	assert.NotNil(t, got)

	require.NoError(t, c.SwapStores())
	assert.Equal(t, cqrs.ModeSingle, c.GetMode())
	require.NoError(t, secondary.DeleteList(ctx, "u1", "New"))
	got, err = c.GetList(ctx, "u1", "New")
	require.NoError(t, err)
	assert.Nil(t, got, "after a swap the old secondary serves reads")

	require.NoError(t, c.PutList(ctx, "u1", list("Mirrored", now)))
	got, err = primary.GetList(ctx, "u1", "Mirrored")
	require.NoError(t, err)
	assert.NotNil(t, got, "the old primary receives mirrored writes")

	require.Error(t, c.SwapStores(), "swapping needs reversed mode")
}

func TestSyncWithoutSecondary(t *testing.T) {
	c := cqrs.NewCQRSStore(memory.New(), nil, cqrs.ModeSingle, zerolog.Nop())
	_, err := c.SyncMissedUpdates(context.Background(), time.Time{}, time.Now())
	require.Error(t, err)
	_, err = c.ReverseSyncMissedUpdates(context.Background(), time.Time{}, time.Now())
	require.Error(t, err)
}
