package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otakulab/animesommelier/store"
)

func cacheEntry(malID int, title string, expiresTs int64) *store.AnimeCacheEntry {
	return &store.AnimeCacheEntry{
		MALID:     malID,
		Title:     title,
		Data:      `{"mal_id": 0}`,
		CachedTs:  time.Now().Unix(),
		ExpiresTs: expiresTs,
	}
}

func TestAnimeCacheStore(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Unix()
	fresh := now + 3600
	stale := now - 3600

	t.Run("UpsertRefreshesExistingRow", func(t *testing.T) {
		ts := NewTestingStore(ctx, t)

		_, err := ts.UpsertAnimeCache(ctx, cacheEntry(5114, "FMA:B", stale))
		require.NoError(t, err)
		_, err = ts.UpsertAnimeCache(ctx, cacheEntry(5114, "Fullmetal Alchemist: Brotherhood", fresh))
		require.NoError(t, err)

		entries, err := ts.ListAnimeCache(ctx, &store.FindAnimeCache{MALIDs: []int{5114}})
		require.NoError(t, err)
		require.Len(t, entries, 1, "upsert must not duplicate the row")
		assert.Equal(t, "Fullmetal Alchemist: Brotherhood", entries[0].Title)
		assert.Equal(t, fresh, entries[0].ExpiresTs)
	})

	t.Run("ExpiresAfterFilterExcludesStaleRows", func(t *testing.T) {
		ts := NewTestingStore(ctx, t)

		_, err := ts.UpsertAnimeCache(ctx, cacheEntry(1, "Cowboy Bebop", fresh))
		require.NoError(t, err)
		_, err = ts.UpsertAnimeCache(ctx, cacheEntry(20, "Naruto", stale))
		require.NoError(t, err)
		// An entry expiring exactly now is already stale.
		_, err = ts.UpsertAnimeCache(ctx, cacheEntry(21, "One Piece", now))
		require.NoError(t, err)

		entries, err := ts.ListAnimeCache(ctx, &store.FindAnimeCache{
			MALIDs:         []int{1, 20, 21},
			ExpiresAfterTs: &now,
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 1, entries[0].MALID)
	})

	t.Run("QueryMatchesTitleCaseInsensitively", func(t *testing.T) {
		ts := NewTestingStore(ctx, t)

		_, err := ts.UpsertAnimeCache(ctx, cacheEntry(30, "Neon Genesis Evangelion", fresh))
		require.NoError(t, err)
		_, err = ts.UpsertAnimeCache(ctx, cacheEntry(9253, "Steins;Gate", fresh))
		require.NoError(t, err)

		query := "EVANGELION"
		entries, err := ts.ListAnimeCache(ctx, &store.FindAnimeCache{Query: &query})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 30, entries[0].MALID)
	})

	t.Run("LimitBoundsResult", func(t *testing.T) {
		ts := NewTestingStore(ctx, t)

		for malID := 1; malID <= 5; malID++ {
			_, err := ts.UpsertAnimeCache(ctx, cacheEntry(malID, "Gintama", fresh))
			require.NoError(t, err)
		}

		limit := 3
		query := "gintama"
		entries, err := ts.ListAnimeCache(ctx, &store.FindAnimeCache{Query: &query, Limit: &limit})
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})
}
