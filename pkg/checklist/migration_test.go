package checklist_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullyloaded/fullyloaded/pkg/checklist"
	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store/memory"
)

func seedLegacy(t *testing.T, s *memory.Store, owner string) time.Time {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	docs := []*models.ListDocument{
		{Key: "Trip", Name: "Trip", Categories: tripCategories(), CreatedAt: &created},
		{Key: "Beach", Title: "Beach", Categories: []models.Category{}},
		{Key: "Done", Name: "Done", Title: "Done", UserID: owner, Categories: []models.Category{}, CreatedAt: &created, UpdatedAt: &created},
	}
	for _, d := range docs {
		require.NoError(t, s.PutList(ctx, owner, d))
	}
	return created
}

func TestMigrationPatchesLegacyDocuments(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	created := seedLegacy(t, backend, "owner")
	clk := newClock()
	migrator := checklist.NewMigrator(backend, backend, checklist.WithClock(clk.Now))

	count, err := migrator.Run(ctx, "owner", "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	trip, err := backend.GetList(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.True(t, trip.IsCurrent("owner"))
	assert.Equal(t, created, *trip.CreatedAt, "existing createdAt is preserved")
	assert.Equal(t, clk.Now(), *trip.UpdatedAt)
	assert.True(t, models.EqualCategories(tripCategories(), trip.Categories))

	beach, err := backend.GetList(ctx, "owner", "Beach")
	require.NoError(t, err)
	assert.Equal(t, "Beach", beach.Name)
	assert.Equal(t, clk.Now(), *beach.CreatedAt, "missing createdAt is stamped now")

	done, err := backend.GetList(ctx, "owner", "Done")
	require.NoError(t, err)
	assert.Equal(t, created, *done.UpdatedAt, "current documents are not touched")
}

func TestMigrationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	seedLegacy(t, backend, "owner")
	migrator := checklist.NewMigrator(backend, backend)

	first, err := migrator.Run(ctx, "owner", "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	second, err := migrator.Run(ctx, "owner", "owner")
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestMigrationRequiresOwner(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	seedLegacy(t, backend, "owner")
	migrator := checklist.NewMigrator(backend, backend)

	_, err := migrator.Run(ctx, "intruder", "owner")
	require.ErrorIs(t, err, checklist.ErrAuthorization)
	_, err = migrator.Run(ctx, "", "")
	require.ErrorIs(t, err, checklist.ErrAuthorization)

	trip, err := backend.GetList(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.False(t, trip.IsCurrent("owner"))
}

func TestEnsureMigratedSetsFlagOnce(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	seedLegacy(t, backend, "owner")
	require.NoError(t, backend.PutProfile(ctx, &models.Profile{UID: "owner", DisplayName: "Alex"}))
	migrator := checklist.NewMigrator(backend, backend)

	count, ran, err := migrator.EnsureMigrated(ctx, "owner", "owner")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, count)

	done, err := migrator.Status(ctx, "owner")
	require.NoError(t, err)
	assert.True(t, done)

	profile, err := backend.GetProfile(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "Alex", profile.DisplayName, "setting the flag keeps other profile fields")

	count, ran, err = migrator.EnsureMigrated(ctx, "owner", "owner")
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, count)
}

func TestFailedCommitLeavesFlagUnset(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	seedLegacy(t, mem, "owner")
	backend := &failingStore{Store: mem, failPatch: true}
	migrator := checklist.NewMigrator(backend, backend)

	_, ran, err := migrator.EnsureMigrated(ctx, "owner", "owner")
	require.True(t, ran)
	require.ErrorIs(t, err, checklist.ErrStore)
	require.ErrorIs(t, err, errBackend)

	done, err := migrator.Status(ctx, "owner")
	require.NoError(t, err)
	assert.False(t, done)

	trip, err := mem.GetList(ctx, "owner", "Trip")
	require.NoError(t, err)
	assert.False(t, trip.IsCurrent("owner"), "nothing is committed")

	backend.failPatch = false
	count, ran, err := migrator.EnsureMigrated(ctx, "owner", "owner")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, count)
}

func TestPlanPatches(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []*models.ListDocument{
		{Key: "k1", Name: "Trip", Title: "Old title", UserID: "owner"},
		{Key: "k2", Name: "Same", Title: "Same", UserID: "someone-else"},
		{Key: "k3", Name: "Ok", Title: "Ok", UserID: "owner"},
		{Key: "k4"},
	}
	patches := checklist.PlanPatches(docs, "owner", now)
	require.Len(t, patches, 3)

	assert.Equal(t, models.ListPatch{Key: "k1", Name: "Trip", Title: "Trip", UserID: "owner", CreatedAt: now, UpdatedAt: now}, patches[0])
	assert.Equal(t, "k2", patches[1].Key)
	assert.Equal(t, "owner", patches[1].UserID)
	assert.Equal(t, "k4", patches[2].Name, "the key is the last resort for a name")
}
