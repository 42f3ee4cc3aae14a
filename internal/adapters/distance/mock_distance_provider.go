package distance

import (
	"context"
	"fmt"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/ports"
)

type MockPair struct {
	From, To domain.Point
	Meters   int
	Seconds  int
}

// MockDistanceProvider answers from a fixed table; pairs are directional.
type MockDistanceProvider struct {
	m map[[2]domain.Point]ports.DistanceResult
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[[2]domain.Point]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[[2]domain.Point{p.From, p.To}] = ports.DistanceResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) GetDistance(ctx context.Context, origin, destination domain.Point) (ports.DistanceResult, error) {
	if origin == destination {
		return ports.DistanceResult{}, nil
	}

	r, ok := p.m[[2]domain.Point{origin, destination}]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("missing pair %s -> %s", origin.Key(), destination.Key())
	}

	return r, nil
}
