package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

const (
	geocodePrefix  = "geocode:"
	distancePrefix = "distance:"
)

// RedisCache implements both GeocodeCache and DistanceCache on a single
// Redis keyspace. Entries expire after ttl; zero keeps them forever.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("open redis: parse url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open redis: ping: %w", err)
	}
	return rdb, nil
}

// Geocode returns a GeocodeCache view of c.
func (c *RedisCache) Geocode() ports.GeocodeCache { return redisGeocode{c} }

// Distance returns a DistanceCache view of c.
func (c *RedisCache) Distance() ports.DistanceCache { return redisDistance{c} }

type redisGeocode struct{ c *RedisCache }

func (g redisGeocode) GetMany(ctx context.Context, addresses []string) (_ map[string]domain.Point, err error) {
	defer obs.Time(ctx, "geocode.redis.GetMany")(&err)

	out := make(map[string]domain.Point, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	keys := make([]string, len(addresses))
	for i, a := range addresses {
		keys[i] = geocodePrefix + a
	}

	vals, err := g.c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: mget: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.Point
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("get geocode cache: decode %q: %w", addresses[i], err)
		}
		out[addresses[i]] = p
	}
	return out, nil
}

func (g redisGeocode) PutMany(ctx context.Context, results map[string]domain.Point) error {
	if len(results) == 0 {
		return nil
	}

	pipe := g.c.rdb.TxPipeline()
	for addr, p := range results {
		if addr == "" {
			return errors.New("insert geocode cache: empty address key")
		}
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("insert geocode cache: encode %q: %w", addr, err)
		}
		pipe.Set(ctx, geocodePrefix+addr, b, g.c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert geocode cache: exec: %w", err)
	}
	return nil
}

type redisDistance struct{ c *RedisCache }

// One hash per origin; fields are destination keys.
func (d redisDistance) GetMany(ctx context.Context, origin domain.Point, destinations []domain.Point) (_ map[domain.Point]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.redis.GetMany")(&err)

	out := make(map[domain.Point]ports.DistanceResult, len(destinations))
	if len(destinations) == 0 {
		return out, nil
	}

	fields := make([]string, len(destinations))
	for i, p := range destinations {
		fields[i] = p.Key()
	}

	vals, err := d.c.rdb.HMGet(ctx, distancePrefix+origin.Key(), fields...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get distance cache: hmget: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var r ports.DistanceResult
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("get distance cache: decode %s: %w", fields[i], err)
		}
		out[destinations[i]] = r
	}
	return out, nil
}

func (d redisDistance) PutMany(ctx context.Context, origin domain.Point, results map[domain.Point]ports.DistanceResult) error {
	if len(results) == 0 {
		return nil
	}

	values := make([]any, 0, 2*len(results))
	for p, r := range results {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("insert distance cache: encode %s: %w", p.Key(), err)
		}
		values = append(values, p.Key(), string(b))
	}

	key := distancePrefix + origin.Key()
	pipe := d.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, values...)
	if d.c.ttl > 0 {
		pipe.Expire(ctx, key, d.c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert distance cache: exec: %w", err)
	}
	return nil
}
