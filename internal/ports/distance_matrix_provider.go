package ports

import (
	"context"

	"visit-route-service/internal/domain"
)

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return distances from one origin to many destinations.
	GetDistances(ctx context.Context, origin domain.Point, destinations []domain.Point) (map[domain.Point]DistanceResult, error)
}
