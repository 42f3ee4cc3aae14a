package ports

import (
	"context"

	"visit-route-service/internal/domain"
)

// Port: geoprocessing steps run against the leads before synchronization.
type GeoEngine interface {
	// Resolve coordinates for leads that still lack them.
	Geocode(ctx context.Context) error
	// Clean up lead attributes used for geocoding and routing.
	NormalizeCompanies(ctx context.Context) error
}

// Port: address to coordinate resolution.
type Geocoder interface {
	Geocode(ctx context.Context, addresses []string) (map[string]domain.Point, error)
}
