package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

// SQLDistanceCache keeps origin -> destination results in the distance_cache
// table, with both points stored by their "lon,lat" key. Entries older than
// maxAge are treated as misses; zero disables aging.
type SQLDistanceCache struct {
	DB     *sql.DB
	maxAge time.Duration
}

func NewSQLDistanceCache(db *sql.DB, maxAge time.Duration) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db, maxAge: maxAge}
}

func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	origin domain.Point,
	destinations []domain.Point,
) (_ map[domain.Point]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	byKey := make(map[string]domain.Point, len(destinations))
	for _, d := range destinations {
		byKey[d.Key()] = d
	}
	out := make(map[domain.Point]ports.DistanceResult, len(byKey))
	if len(byKey) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT destination, distance_meters, duration_seconds
		FROM distance_cache
		WHERE origin = $1
		  AND destination = ANY($2::text[])
		  AND ($3::bigint = 0 OR cached_at > now() - make_interval(secs => $3::bigint))`,
		origin.Key(), keys, int64(s.maxAge/time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("distance cache: select from %s: %w", origin.Key(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dest string
			r    ports.DistanceResult
		)
		if err := rows.Scan(&dest, &r.DistanceMeters, &r.DurationSeconds); err != nil {
			return nil, fmt.Errorf("distance cache: scan: %w", err)
		}
		if p, ok := byKey[dest]; ok {
			out[p] = r
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("distance cache: rows: %w", err)
	}
	return out, nil
}

// PutMany upserts all results of one origin in a single statement.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	origin domain.Point,
	results map[domain.Point]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}
	if len(results) == 0 {
		return nil
	}

	dests := make([]string, 0, len(results))
	meters := make([]int64, 0, len(results))
	seconds := make([]int64, 0, len(results))
	for d, r := range results {
		dests = append(dests, d.Key())
		meters = append(meters, int64(r.DistanceMeters))
		seconds = append(seconds, int64(r.DurationSeconds))
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds, cached_at)
		SELECT $1, d, m, s, now()
		FROM unnest($2::text[], $3::bigint[], $4::bigint[]) AS t(d, m, s)
		ON CONFLICT (origin, destination) DO UPDATE
		SET distance_meters  = EXCLUDED.distance_meters,
		    duration_seconds = EXCLUDED.duration_seconds,
		    cached_at        = EXCLUDED.cached_at`,
		origin.Key(), dests, meters, seconds,
	)
	if err != nil {
		return fmt.Errorf("distance cache: upsert %d results from %s: %w", len(dests), origin.Key(), err)
	}
	return nil
}
