package store

// AnimeCacheEntry caches a normalized remote catalog record keyed by
// its MyAnimeList id. At most one entry exists per key; refreshes
// overwrite in place. An entry whose ExpiresTs is not strictly in the
// future is logically absent even if physically present.
type AnimeCacheEntry struct {
	MALID         int
	Title         string
	TitleJapanese string // empty when the catalog has no native title
	Data          string // normalized payload JSON
	CachedTs      int64
	ExpiresTs     int64
}

type FindAnimeCache struct {
	MALIDs []int
	// Query matches as a case-insensitive substring against title and
	// title_japanese.
	Query *string
	// ExpiresAfterTs restricts results to entries expiring strictly
	// after the given instant.
	ExpiresAfterTs *int64
	Limit          *int
}
