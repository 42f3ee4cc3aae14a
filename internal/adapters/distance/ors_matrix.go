package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// GetDistance goes through GetDistances so single lookups share the cache.
func (o *ORSProvider) GetDistance(
	ctx context.Context,
	origin domain.Point,
	destination domain.Point,
) (ports.DistanceResult, error) {
	results, err := o.GetDistances(ctx, origin, []domain.Point{destination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf(
			"get distances %s -> %s: %w",
			origin.Key(), destination.Key(), err,
		)
	}

	result, ok := results[destination]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("no distance result for %s -> %s", origin.Key(), destination.Key())
	}

	return result, nil
}

// Compute distances from a single origin to many destinations. A destination
// equal to the origin is reported with a zero result.
func (o *ORSProvider) GetDistances(
	ctx context.Context,
	origin domain.Point,
	destinations []domain.Point,
) (_ map[domain.Point]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	out := make(map[domain.Point]ports.DistanceResult, len(destinations))

	seen := make(map[domain.Point]struct{}, len(destinations))
	destList := make([]domain.Point, 0, len(destinations))
	for _, d := range destinations {
		if d == origin {
			out[d] = ports.DistanceResult{}
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}

		seen[d] = struct{}{}
		destList = append(destList, d)
	}

	if len(destList) == 0 {
		return out, nil
	}

	if o.distanceCache != nil {
		hits, err := o.distanceCache.GetMany(ctx, origin, destList)
		if err != nil {
			return nil, fmt.Errorf("ors distances: cache: %w", err)
		}
		for k, v := range hits {
			out[k] = v
		}
	}

	misses := make([]domain.Point, 0, len(destList))
	for _, d := range destList {
		if _, ok := out[d]; !ok {
			misses = append(misses, d)
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := o.fetchMatrixRow(ctx, origin, misses)
	if err != nil {
		return nil, fmt.Errorf("ors distances: %w", err)
	}

	if o.distanceCache != nil {
		if err := o.distanceCache.PutMany(ctx, origin, fetched); err != nil {
			obs.Log(ctx).WithError(err).Warn("distance cache write failed")
		}
	}

	for k, v := range fetched {
		out[k] = v
	}

	return out, nil
}

// maxMatrixDestinations keeps each request under the ORS public API
// location limit (one source plus destinations).
const maxMatrixDestinations = 49

// fetchMatrixRow asks the ORS matrix endpoint for one origin row, splitting
// destinations into requests the service accepts.
func (o *ORSProvider) fetchMatrixRow(
	ctx context.Context,
	origin domain.Point,
	destinations []domain.Point,
) (map[domain.Point]ports.DistanceResult, error) {
	out := make(map[domain.Point]ports.DistanceResult, len(destinations))
	for start := 0; start < len(destinations); start += maxMatrixDestinations {
		chunk := destinations[start:min(start+maxMatrixDestinations, len(destinations))]
		row, err := o.requestMatrix(ctx, origin, chunk)
		if err != nil {
			return nil, err
		}
		for k, v := range row {
			out[k] = v
		}
	}
	return out, nil
}

func (o *ORSProvider) requestMatrix(
	ctx context.Context,
	origin domain.Point,
	destinations []domain.Point,
) (map[domain.Point]ports.DistanceResult, error) {
	locations := [][]float64{origin.CoordsToList()}
	destIdx := make([]int, 0, len(destinations))
	for i, d := range destinations {
		locations = append(locations, d.CoordsToList())
		destIdx = append(destIdx, i+1)
	}

	payload, err := json.Marshal(matrixRequest{
		Locations:    locations,
		Destinations: destIdx,
		Metrics:      []string{"distance", "duration"},
		Sources:      []int{0},
	})
	if err != nil {
		return nil, fmt.Errorf("encode matrix request: %w", err)
	}

	endpoint := o.baseURL + "/v2/matrix/" + o.profile
	resp, err := o.http.Do(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("matrix from %s: %w", origin.Key(), errors.Join(domain.ErrTransport, err))
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", errors.Join(domain.ErrTransport, err))
	}
	return mr.row(destinations)
}

// row maps the single source row back onto destinations. ORS reports
// unroutable pairs as null, which is an error for the whole row.
func (mr matrixResponse) row(destinations []domain.Point) (map[domain.Point]ports.DistanceResult, error) {
	if len(mr.Distances) != 1 || len(mr.Durations) != 1 {
		return nil, fmt.Errorf("matrix response: want 1 source row, got distances=%d durations=%d: %w",
			len(mr.Distances), len(mr.Durations), domain.ErrTransport)
	}
	meters, seconds := mr.Distances[0], mr.Durations[0]
	if len(meters) != len(destinations) || len(seconds) != len(destinations) {
		return nil, fmt.Errorf("matrix response: row has %d/%d cells for %d destinations: %w",
			len(meters), len(seconds), len(destinations), domain.ErrTransport)
	}

	out := make(map[domain.Point]ports.DistanceResult, len(destinations))
	for i, d := range destinations {
		if meters[i] == nil || seconds[i] == nil {
			return nil, fmt.Errorf("matrix response: %s is unroutable: %w", d.Key(), domain.ErrUpstreamData)
		}
		out[d] = ports.DistanceResult{
			DistanceMeters:  int(math.Round(*meters[i])),
			DurationSeconds: int(math.Round(*seconds[i])),
		}
	}
	return out, nil
}
