// Package catalog implements the cache-then-remote lookup gateway for
// anime metadata. Reads prefer the anime_cache table; misses fall
// through to the rate-limited Jikan client and refresh the cache with
// a freshness window that depends on how the entry was discovered:
// direct id lookups stay fresh for 7 days, search hits for 24 hours.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/plugin/jikan"
	"github.com/otakulab/animesommelier/store"
)

const (
	lookupTTL = 7 * 24 * time.Hour
	searchTTL = 24 * time.Hour

	// minQueryLength is the shortest query worth a lookup; shorter
	// inputs yield an empty result, not an error.
	minQueryLength = 2
)

// Record is a catalog entry served by the gateway. CachedTs is zero
// when the record came straight from the remote catalog.
type Record struct {
	Anime    *jikan.Anime
	CachedTs int64
}

// Store is the persistence surface the gateway needs.
type Store interface {
	UpsertAnimeCache(ctx context.Context, upsert *store.AnimeCacheEntry) (*store.AnimeCacheEntry, error)
	ListAnimeCache(ctx context.Context, find *store.FindAnimeCache) ([]*store.AnimeCacheEntry, error)
}

// Client is the remote catalog surface the gateway needs.
type Client interface {
	GetAnimeByID(ctx context.Context, malID int) (*jikan.Anime, error)
	SearchAnime(ctx context.Context, query string, limit int) (*jikan.SearchResult, error)
}

// Service is the catalog cache gateway.
type Service struct {
	store  Store
	client Client
	group  singleflight.Group
	logger *slog.Logger

	// now is injectable so tests can sit exactly on the expiry boundary.
	now func() time.Time
}

// NewService creates a new catalog gateway.
func NewService(s Store, c Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		client: c,
		logger: logger,
		now:    time.Now,
	}
}

// ResolveByID returns the record for one catalog key, serving a
// non-expired cache entry when present and otherwise fetching from the
// remote catalog and refreshing the cache with the 7-day window.
// A remote 404 surfaces as NOT_FOUND; other remote failures as
// UPSTREAM_UNAVAILABLE.
func (s *Service) ResolveByID(ctx context.Context, malID int) (*Record, error) {
	if cached := s.readCache(ctx, malID); cached != nil {
		return cached, nil
	}

	// Concurrent turns recommending the same title share one fetch.
	v, err, _ := s.group.Do(strconv.Itoa(malID), func() (any, error) {
		// Re-check under the flight: another caller may have refreshed
		// the cache while this one was queued.
		if cached := s.readCache(ctx, malID); cached != nil {
			return cached, nil
		}

		anime, err := s.client.GetAnimeByID(ctx, malID)
		if err != nil {
			if errors.Is(err, jikan.ErrAnimeNotFound) {
				return nil, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "anime not found in catalog")
			}
			return nil, apperrors.UpstreamUnavailable("anime catalog is unavailable", err)
		}

		s.writeCache(ctx, anime, lookupTTL)
		return &Record{Anime: anime}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

// SearchByText searches the catalog. The cache is authoritative when
// it can satisfy the requested limit; otherwise the remote result set
// replaces it entirely. Remote failures degrade to whatever the cache
// already had — search is best-effort and never propagates an outage.
func (s *Service) SearchByText(ctx context.Context, query string, limit int) ([]*Record, int, error) {
	if utf8.RuneCountInString(query) < minQueryLength {
		return []*Record{}, 0, nil
	}

	nowTs := s.now().Unix()
	cached, err := s.store.ListAnimeCache(ctx, &store.FindAnimeCache{
		Query:          &query,
		ExpiresAfterTs: &nowTs,
		Limit:          &limit,
	})
	if err != nil {
		s.logger.Warn("anime cache search failed", "query", query, "error", err)
		cached = nil
	}

	cachedRecords := make([]*Record, 0, len(cached))
	for _, entry := range cached {
		if record := decodeEntry(entry, s.logger); record != nil {
			cachedRecords = append(cachedRecords, record)
		}
	}
	if len(cachedRecords) >= limit {
		return cachedRecords, len(cachedRecords), nil
	}

	result, err := s.client.SearchAnime(ctx, query, limit)
	if err != nil {
		s.logger.Warn("remote anime search failed, serving cache", "query", query, "error", err)
		return cachedRecords, len(cachedRecords), nil
	}

	records := make([]*Record, 0, len(result.Animes))
	for _, anime := range result.Animes {
		s.writeCache(ctx, anime, searchTTL)
		records = append(records, &Record{Anime: anime})
	}
	return records, result.Total, nil
}

// ResolveMany hydrates a list of catalog keys: one batched cache read,
// then a remote fetch per miss, in input order. A failing key is
// logged and omitted; a partial list is valid output.
func (s *Service) ResolveMany(ctx context.Context, malIDs []int) []*Record {
	if len(malIDs) == 0 {
		return nil
	}

	nowTs := s.now().Unix()
	cached, err := s.store.ListAnimeCache(ctx, &store.FindAnimeCache{
		MALIDs:         malIDs,
		ExpiresAfterTs: &nowTs,
	})
	if err != nil {
		s.logger.Warn("batched anime cache read failed", "error", err)
		cached = nil
	}

	cachedByID := make(map[int]*Record, len(cached))
	for _, entry := range cached {
		if record := decodeEntry(entry, s.logger); record != nil {
			cachedByID[entry.MALID] = record
		}
	}

	records := make([]*Record, 0, len(malIDs))
	for _, malID := range malIDs {
		if record, ok := cachedByID[malID]; ok {
			records = append(records, record)
			continue
		}
		record, err := s.ResolveByID(ctx, malID)
		if err != nil {
			s.logger.Warn("failed to resolve recommended anime",
				"mal_id", malID, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records
}

// readCache returns a decoded non-expired entry or nil.
func (s *Service) readCache(ctx context.Context, malID int) *Record {
	nowTs := s.now().Unix()
	entries, err := s.store.ListAnimeCache(ctx, &store.FindAnimeCache{
		MALIDs:         []int{malID},
		ExpiresAfterTs: &nowTs,
	})
	if err != nil {
		s.logger.Warn("anime cache read failed", "mal_id", malID, "error", err)
		return nil
	}
	if len(entries) == 0 {
		return nil
	}
	return decodeEntry(entries[0], s.logger)
}

// writeCache upserts a normalized record. Cache write failures are
// logged, never surfaced: the record in hand is still good.
func (s *Service) writeCache(ctx context.Context, anime *jikan.Anime, ttl time.Duration) {
	data, err := json.Marshal(anime)
	if err != nil {
		s.logger.Warn("failed to marshal anime payload", "mal_id", anime.MALID, "error", err)
		return
	}
	now := s.now()
	_, err = s.store.UpsertAnimeCache(ctx, &store.AnimeCacheEntry{
		MALID:         anime.MALID,
		Title:         anime.Title,
		TitleJapanese: anime.TitleJapanese,
		Data:          string(data),
		CachedTs:      now.Unix(),
		ExpiresTs:     now.Add(ttl).Unix(),
	})
	if err != nil {
		s.logger.Warn("failed to upsert anime cache", "mal_id", anime.MALID, "error", err)
	}
}

func decodeEntry(entry *store.AnimeCacheEntry, logger *slog.Logger) *Record {
	anime := &jikan.Anime{}
	if err := json.Unmarshal([]byte(entry.Data), anime); err != nil {
		logger.Warn("corrupt anime cache payload", "mal_id", entry.MALID, "error", err)
		return nil
	}
	return &Record{Anime: anime, CachedTs: entry.CachedTs}
}
