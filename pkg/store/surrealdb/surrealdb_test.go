package surrealdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullyloaded/fullyloaded/pkg/models"
	"github.com/fullyloaded/fullyloaded/pkg/store"
	"github.com/fullyloaded/fullyloaded/pkg/store/storetest"
)

// newTestStore connects to the server named by SURREALDB_TEST_URL, for
// example ws://localhost:8000/rpc started with
//
//	surreal start --user root --pass root memory
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	url := os.Getenv("SURREALDB_TEST_URL")
	if url == "" {
		t.Skip("SURREALDB_TEST_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, Config{
		URL:       url,
		Namespace: "fullyloaded_test",
		Database:  "fullyloaded_test",
		Username:  envOr("SURREALDB_TEST_USER", "root"),
		Password:  envOr("SURREALDB_TEST_PASS", "root"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestListRowRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 19, 10, 0, 0, 0, time.UTC)
	doc := &models.ListDocument{
		Key:  "Trip",
		Name: "Trip",
		Categories: []models.Category{{ID: "c", Name: "Food", Items: []models.Item{
			{ID: "i", Text: "Water", Capacity: models.IntPtr(50)},
		}}},
		CreatedAt: &created,
	}

	row := newListRow("owner", doc)
	assert.Equal(t, "owner", row.Owner)
	assert.Nil(t, row.UpdatedAt, "missing timestamps stay missing")

	back := row.toModel()
	assert.Equal(t, doc.Key, back.Key)
	assert.True(t, created.Equal(*back.CreatedAt))
	assert.Nil(t, back.UpdatedAt)
	assert.True(t, models.EqualCategories(doc.Categories, back.Categories))
}

func TestListRowNilCategoriesBecomeEmpty(t *testing.T) {
	row := newListRow("owner", &models.ListDocument{Key: "Empty"})
	require.NotNil(t, row.Categories)

	data, err := cbor.Marshal(row)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "createdAt")
	assert.Contains(t, decoded, "categories")
}

func TestShareRowKeepsID(t *testing.T) {
	id := models.NewShareID()
	created := time.Now().UTC().Truncate(time.Millisecond)
	row := shareRow{
		ID: id,
		shareContent: newShareContent(&models.SharedSnapshot{
			OwnerID:          "owner",
			OwnerDisplayName: "Alex",
			ListName:         "Trip",
			CreatedAt:        created,
			IsReadOnly:       true,
		}),
	}
	snap := row.toModel()
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "Alex", snap.OwnerDisplayName)
	assert.True(t, created.Equal(snap.CreatedAt))
	assert.NotNil(t, snap.Categories)
}
