package ports

import (
	"context"

	"visit-route-service/internal/domain"
)

// Persistent address -> coordinate cache.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Point, error)
	PutMany(ctx context.Context, results map[string]domain.Point) error
}

// Persistent origin -> destination distance cache.
type DistanceCache interface {
	GetMany(ctx context.Context, origin domain.Point, destinations []domain.Point) (map[domain.Point]DistanceResult, error)
	PutMany(ctx context.Context, origin domain.Point, results map[domain.Point]DistanceResult) error
}
