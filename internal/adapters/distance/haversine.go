package distance

import (
	"context"
	"math"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/ports"
)

const earthRadiusMeters = 6371000.0

// HaversineProvider estimates road travel from great-circle distance, a
// detour factor and a constant average speed. It needs no network.
type HaversineProvider struct {
	speedKmh float64
	detour   float64
}

func NewHaversineProvider(averageSpeedKmh float64) *HaversineProvider {
	if averageSpeedKmh <= 0 {
		averageSpeedKmh = 30
	}
	return &HaversineProvider{speedKmh: averageSpeedKmh, detour: 1.3}
}

func (h *HaversineProvider) GetDistance(_ context.Context, origin, destination domain.Point) (ports.DistanceResult, error) {
	return h.estimate(origin, destination), nil
}

func (h *HaversineProvider) GetDistances(_ context.Context, origin domain.Point, destinations []domain.Point) (map[domain.Point]ports.DistanceResult, error) {
	out := make(map[domain.Point]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		out[d] = h.estimate(origin, d)
	}
	return out, nil
}

func (h *HaversineProvider) estimate(a, b domain.Point) ports.DistanceResult {
	if a == b {
		return ports.DistanceResult{}
	}
	meters := Haversine(a, b) * h.detour
	seconds := meters / (h.speedKmh * 1000 / 3600)
	return ports.DistanceResult{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(seconds)),
	}
}

// Haversine returns the great-circle distance in meters.
func Haversine(a, b domain.Point) float64 {
	lat1 := a.Latitude() * math.Pi / 180
	lat2 := b.Latitude() * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude() - a.Longitude()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
