package jikan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const animeJSON = `{
	"mal_id": 5114,
	"title": "Fullmetal Alchemist: Brotherhood",
	"title_japanese": "鋼の錬金術師 FULLMETAL ALCHEMIST",
	"images": {"jpg": {"image_url": "https://cdn.example/small.jpg", "large_image_url": "https://cdn.example/large.jpg"}},
	"score": 9.1,
	"genres": [{"name": "Action"}, {"name": "Drama"}],
	"episodes": 64,
	"status": "Finished Airing",
	"synopsis": "Two brothers search for the Philosopher's Stone.",
	"url": "https://myanimelist.net/anime/5114"
}`

func TestGetAnimeByID(t *testing.T) {
	ctx := context.Background()

	t.Run("NormalizesPayload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/anime/5114", r.URL.Path)
			w.Write([]byte(`{"data": ` + animeJSON + `}`))
		}))
		defer srv.Close()

		anime, err := NewClient(srv.URL).GetAnimeByID(ctx, 5114)
		require.NoError(t, err)
		assert.Equal(t, 5114, anime.MALID)
		assert.Equal(t, "Fullmetal Alchemist: Brotherhood", anime.Title)
		assert.Equal(t, "鋼の錬金術師 FULLMETAL ALCHEMIST", anime.TitleJapanese)
		assert.Equal(t, "https://cdn.example/large.jpg", anime.ImageURL, "the large rendition wins")
		require.NotNil(t, anime.Score)
		assert.InDelta(t, 9.1, *anime.Score, 0.001)
		assert.Equal(t, []string{"Action", "Drama"}, anime.Genres)
		require.NotNil(t, anime.Episodes)
		assert.Equal(t, 64, *anime.Episodes)
	})

	t.Run("NullFields", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": {"mal_id": 1, "title": "Cowboy Bebop", "score": null, "episodes": null, "genres": [], "images": {"jpg": {"image_url": "https://cdn.example/bebop.jpg"}}, "url": "https://myanimelist.net/anime/1"}}`))
		}))
		defer srv.Close()

		anime, err := NewClient(srv.URL).GetAnimeByID(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, anime.Score)
		assert.Nil(t, anime.Episodes)
		assert.Empty(t, anime.Genres)
		assert.Equal(t, "https://cdn.example/bebop.jpg", anime.ImageURL)
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).GetAnimeByID(ctx, 999999)
		assert.True(t, errors.Is(err, ErrAnimeNotFound))
	})

	t.Run("ServerError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).GetAnimeByID(ctx, 1)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrAnimeNotFound))
	})
}

func TestSearchAnime(t *testing.T) {
	ctx := context.Background()

	t.Run("QueryParamsAndTotal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "fullmetal", q.Get("q"))
			assert.Equal(t, "5", q.Get("limit"))
			assert.Equal(t, "members", q.Get("order_by"))
			assert.Equal(t, "desc", q.Get("sort"))
			w.Write([]byte(`{"data": [` + animeJSON + `], "pagination": {"items": {"total": 37}}}`))
		}))
		defer srv.Close()

		result, err := NewClient(srv.URL).SearchAnime(ctx, "fullmetal", 5)
		require.NoError(t, err)
		require.Len(t, result.Animes, 1)
		assert.Equal(t, 37, result.Total)
	})

	t.Run("LimitIsCapped", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"data": [], "pagination": {"items": {"total": 0}}}`))
		}))
		defer srv.Close()

		result, err := NewClient(srv.URL).SearchAnime(ctx, "one", 100)
		require.NoError(t, err)
		assert.Empty(t, result.Animes)
	})

	t.Run("MissingPaginationFallsBackToLen", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": [` + animeJSON + `]}`))
		}))
		defer srv.Close()

		result, err := NewClient(srv.URL).SearchAnime(ctx, "fullmetal", 5)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Total)
	})
}
