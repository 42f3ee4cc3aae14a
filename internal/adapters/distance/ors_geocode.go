package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves addresses to points, consulting the geocode cache first.
// Keys of the result are normalized addresses; addresses the service cannot
// resolve are left out rather than failing the batch.
func (o *ORSProvider) Geocode(ctx context.Context, addresses []string) (_ map[string]domain.Point, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	seen := make(map[string]struct{}, len(addresses))
	needed := make([]string, 0, len(addresses))
	for _, a := range addresses {
		norm := domain.NormalizeAddress(a)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		needed = append(needed, norm)
	}

	out := make(map[string]domain.Point, len(needed))
	if len(needed) == 0 {
		return out, nil
	}

	if o.geocodeCache != nil {
		hits, err := o.geocodeCache.GetMany(ctx, needed)
		if err != nil {
			return nil, fmt.Errorf("ors geocode: cache: %w", err)
		}
		for k, v := range hits {
			out[k] = v
		}
	}

	misses := make([]string, 0, len(needed))
	for _, a := range needed {
		if _, ok := out[a]; !ok {
			misses = append(misses, a)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := o.geocodeMany(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("ors geocode: %w", err)
	}

	if o.geocodeCache != nil && len(fresh) > 0 {
		if err := o.geocodeCache.PutMany(ctx, fresh); err != nil {
			obs.Log(ctx).WithError(err).Warn("geocode cache write failed")
		}
	}

	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}

// geocodeMany resolves addresses one request at a time; the search endpoint
// takes a single text query.
func (o *ORSProvider) geocodeMany(
	ctx context.Context,
	addresses []string,
) (map[string]domain.Point, error) {
	endpoint := o.baseURL + "/geocode/search"

	out := make(map[string]domain.Point, len(addresses))
	for _, a := range addresses {
		p, ok, err := o.geocodeOne(ctx, endpoint, a)
		if err != nil {
			return nil, err
		}
		if !ok {
			obs.Log(ctx).WithField("address", a).Warn("no geocode result")
			continue
		}
		out[a] = p
	}

	return out, nil
}

func (o *ORSProvider) geocodeOne(ctx context.Context, endpoint, address string) (domain.Point, bool, error) {
	resp, err := o.http.Do(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", address)
		q.Set("boundary.country", o.country)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Point{}, false, fmt.Errorf("geocode %q: %w", address, errors.Join(domain.ErrTransport, err))
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Point{}, false, fmt.Errorf("decode geocode response: %w", errors.Join(domain.ErrTransport, err))
	}

	if len(decoded.Features) == 0 {
		return domain.Point{}, false, nil
	}

	coords := decoded.Features[0].Geometry.Coordinates
	// GeoJSON positions may carry an elevation after lon/lat.
	if len(coords) < 2 {
		return domain.Point{}, false, fmt.Errorf("geocode %q: %d coordinates: %w", address, len(coords), domain.ErrUpstreamData)
	}

	return domain.NewPoint(coords[1], coords[0]), true, nil
}
