package repository

import (
	"context"
	"path/filepath"
	"testing"

	"axie-market-cache/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func units(ids ...string) []model.Unit {
	out := make([]model.Unit, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.Unit{
			ID:    id,
			Class: "Beast",
			Genes: "0x" + id,
			Level: i + 1,
			Stats: model.Stats{HP: 30 + i, Speed: 40, Skill: 31, Morale: 35},
			Parts: []model.Part{{ID: "horn-" + id, Class: "Beast", Type: "Horn", Abilities: []model.Ability{}}},
		})
	}
	return out
}

func ids[T Record](records []T) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.RecordID()
	}
	return out
}

func TestSQLiteCollection_ReplaceAndFind(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	latest := store.LatestUnits()

	all, err := latest.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, latest.ReplaceAll(ctx, units("C", "A", "B")))

	all, err = latest.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, ids(all))
	assert.Equal(t, units("C", "A", "B"), all)

	n, err := latest.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSQLiteCollection_ReplaceRemovesPriorContent(t *testing.T) {
	ctx := context.Background()
	latest := newTestSQLiteStore(t).LatestUnits()

	require.NoError(t, latest.ReplaceAll(ctx, units("X", "Y", "Z")))
	require.NoError(t, latest.ReplaceAll(ctx, units("A", "B")))

	all, err := latest.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids(all))
}

func TestSQLiteCollection_ReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	latest := newTestSQLiteStore(t).LatestUnits()

	require.NoError(t, latest.ReplaceAll(ctx, units("A", "B")))
	first, err := latest.FindAll(ctx)
	require.NoError(t, err)

	require.NoError(t, latest.ReplaceAll(ctx, units("A", "B")))
	second, err := latest.FindAll(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, first, second)
}

func TestSQLiteCollection_FailedWriteKeepsOldContent(t *testing.T) {
	ctx := context.Background()
	latest := newTestSQLiteStore(t).LatestUnits()

	old := units("A", "B", "C")
	require.NoError(t, latest.ReplaceAll(ctx, old))

	// The empty identity fails the third insert, after the delete and two
	// inserts already ran inside the transaction.
	err := latest.ReplaceAll(ctx, units("D", "E", "", "F"))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindPersistence))

	all, err := latest.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, old, all)
}

func TestSQLiteCollection_KeepsRepeatedIdentities(t *testing.T) {
	ctx := context.Background()
	latest := newTestSQLiteStore(t).LatestUnits()

	require.NoError(t, latest.ReplaceAll(ctx, units("A", "B", "A")))

	all, err := latest.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "A"}, ids(all))
}

func TestSQLiteCollection_ReplaceWithEmptyClears(t *testing.T) {
	ctx := context.Background()
	sold := newTestSQLiteStore(t).RecentlySold()

	require.NoError(t, sold.ReplaceAll(ctx, []model.SoldRecord{{ID: "1", Class: "Bird", Timestamp: 10}}))
	require.NoError(t, sold.ReplaceAll(ctx, nil))

	all, err := sold.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteCollection_CollectionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.LatestUnits().ReplaceAll(ctx, units("A")))
	require.NoError(t, store.RecentlySold().ReplaceAll(ctx, []model.SoldRecord{{ID: "S1", Class: "Bug", Timestamp: 5}}))
	require.NoError(t, store.DecodedUnits().ReplaceAll(ctx, []model.DecodedUnit{{ID: "D1", Class: "Plant", Quality: 80}}))

	require.NoError(t, store.RecentlySold().ReplaceAll(ctx, nil))

	latest, err := store.LatestUnits().FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(latest))

	decoded, err := store.DecodedUnits().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, 80, decoded[0].Quality)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats["engine"])
	assert.Equal(t, map[string]int64{
		LatestUnitsCollection:  1,
		RecentlySoldCollection: 0,
		DecodedUnitsCollection: 1,
	}, stats["collections"])
}

func TestSQLiteCollection_CanceledContext(t *testing.T) {
	latest := newTestSQLiteStore(t).LatestUnits()
	require.NoError(t, latest.ReplaceAll(context.Background(), units("A")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := latest.ReplaceAll(ctx, units("B"))
	require.Error(t, err)

	all, err := latest.FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(all))
}
