package services

import (
	"context"
	"fmt"
	"slices"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

// WorkAreaCache loads the active work areas once per process. One instance
// is built in main and shared by every component that needs it.
type WorkAreaCache struct {
	features ports.FeatureClient
	url      string

	areas  []domain.WorkArea
	loaded bool
}

func NewWorkAreaCache(features ports.FeatureClient, url string) *WorkAreaCache {
	return &WorkAreaCache{features: features, url: url}
}

// Get returns the active work areas, fetching them on first use. A failed
// fetch is not remembered; the next call tries again.
func (c *WorkAreaCache) Get(ctx context.Context) (_ []domain.WorkArea, err error) {
	if c.loaded {
		return slices.Clone(c.areas), nil
	}
	defer obs.Time(ctx, "workareas.Get")(&err)

	features, err := c.features.Fetch(ctx, c.url, ports.FetchOptions{
		Where:          domain.WorkAreaActivePredicate,
		ReturnGeometry: false,
	})
	if err != nil {
		return nil, fmt.Errorf("get work areas: %w", err)
	}

	areas := make([]domain.WorkArea, 0, len(features))
	for _, f := range features {
		wa, err := domain.WorkAreaFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("get work areas: %w", err)
		}
		if !wa.Active {
			continue
		}
		areas = append(areas, wa)
	}

	c.areas = areas
	c.loaded = true
	return slices.Clone(areas), nil
}

// Portfolios returns the distinct portfolios of the active work areas in
// first-seen order.
func (c *WorkAreaCache) Portfolios(ctx context.Context) ([]any, error) {
	areas, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(areas))
	for _, wa := range areas {
		items = append(items, map[string]any{domain.FieldPortfolio: wa.Portfolio})
	}
	return domain.UniqueValues(domain.FieldPortfolio, items), nil
}
