package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
)

// SQLGeocodeCache keeps address -> coordinate lookups in the geocode_cache
// table. Entries older than maxAge are treated as misses; zero disables aging.
type SQLGeocodeCache struct {
	DB     *sql.DB
	maxAge time.Duration
}

func NewSQLGeocodeCache(db *sql.DB, maxAge time.Duration) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db, maxAge: maxAge}
}

func (s *SQLGeocodeCache) GetMany(ctx context.Context, addresses []string) (_ map[string]domain.Point, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	keys := nonBlankUnique(addresses)
	out := make(map[string]domain.Point, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT address, lon, lat
		FROM geocode_cache
		WHERE address = ANY($1::text[])
		  AND ($2::bigint = 0 OR cached_at > now() - make_interval(secs => $2::bigint))`,
		keys, int64(s.maxAge/time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("geocode cache: select: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			addr     string
			lon, lat float64
		)
		if err := rows.Scan(&addr, &lon, &lat); err != nil {
			return nil, fmt.Errorf("geocode cache: scan: %w", err)
		}
		out[addr] = domain.NewPoint(lat, lon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("geocode cache: rows: %w", err)
	}
	return out, nil
}

// PutMany upserts every result in one statement and refreshes cached_at.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Point) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if len(results) == 0 {
		return nil
	}

	addrs := make([]string, 0, len(results))
	lons := make([]float64, 0, len(results))
	lats := make([]float64, 0, len(results))
	for addr, p := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("geocode cache: empty address key")
		}
		addrs = append(addrs, addr)
		lons = append(lons, p.Longitude())
		lats = append(lats, p.Latitude())
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO geocode_cache (address, lon, lat, cached_at)
		SELECT a, x, y, now()
		FROM unnest($1::text[], $2::float8[], $3::float8[]) AS t(a, x, y)
		ON CONFLICT (address) DO UPDATE
		SET lon = EXCLUDED.lon, lat = EXCLUDED.lat, cached_at = EXCLUDED.cached_at`,
		addrs, lons, lats,
	)
	if err != nil {
		return fmt.Errorf("geocode cache: upsert %d addresses: %w", len(addrs), err)
	}
	return nil
}

func nonBlankUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
