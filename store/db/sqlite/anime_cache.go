package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/otakulab/animesommelier/store"
)

func (d *DB) UpsertAnimeCache(ctx context.Context, upsert *store.AnimeCacheEntry) (*store.AnimeCacheEntry, error) {
	fields := []string{"mal_id", "title", "title_japanese", "data", "cached_ts", "expires_ts"}
	args := []any{upsert.MALID, upsert.Title, upsert.TitleJapanese, upsert.Data, upsert.CachedTs, upsert.ExpiresTs}

	stmt := `INSERT INTO anime_cache (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (mal_id) DO UPDATE SET
			title = excluded.title,
			title_japanese = excluded.title_japanese,
			data = excluded.data,
			cached_ts = excluded.cached_ts,
			expires_ts = excluded.expires_ts`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert anime_cache: %w", err)
	}

	return upsert, nil
}

func (d *DB) ListAnimeCache(ctx context.Context, find *store.FindAnimeCache) ([]*store.AnimeCacheEntry, error) {
	where, args := []string{"1 = 1"}, []any{}

	if len(find.MALIDs) > 0 {
		inPlaceholders := make([]string, 0, len(find.MALIDs))
		for _, id := range find.MALIDs {
			inPlaceholders = append(inPlaceholders, placeholder(len(args)+1))
			args = append(args, id)
		}
		where = append(where, "mal_id IN ("+strings.Join(inPlaceholders, ", ")+")")
	}
	if find.Query != nil {
		pattern := "%" + strings.ToLower(*find.Query) + "%"
		where = append(where, "(LOWER(title) LIKE "+placeholder(len(args)+1)+
			" OR LOWER(title_japanese) LIKE "+placeholder(len(args)+2)+")")
		args = append(args, pattern, pattern)
	}
	if find.ExpiresAfterTs != nil {
		where, args = append(where, "expires_ts > "+placeholder(len(args)+1)), append(args, *find.ExpiresAfterTs)
	}

	query := `SELECT mal_id, title, title_japanese, data, cached_ts, expires_ts FROM anime_cache WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY mal_id ASC`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list anime_cache: %w", err)
	}
	defer rows.Close()

	list := make([]*store.AnimeCacheEntry, 0)
	for rows.Next() {
		e := &store.AnimeCacheEntry{}
		if err := rows.Scan(&e.MALID, &e.Title, &e.TitleJapanese, &e.Data, &e.CachedTs, &e.ExpiresTs); err != nil {
			return nil, fmt.Errorf("failed to scan anime_cache: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anime_cache: %w", err)
	}

	return list, nil
}
