package ports

import (
	"context"

	"visit-route-service/internal/domain"
)

// Port: the route optimizer. The algorithm behind it is opaque to the pipeline.
type RoutingEngine interface {
	// Assign orders to routes and sequence them.
	RunVRP(ctx context.Context, payload domain.ModelPayload) (*domain.Solution, error)
	// Sequence orders already assigned to a route.
	RunRoute(ctx context.Context, payload domain.ModelPayload) (*domain.Solution, error)
}
