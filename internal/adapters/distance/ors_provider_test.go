package distance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/httpx"
	"visit-route-service/internal/ports"
)

type memGeocodeCache struct {
	m    map[string]domain.Point
	puts int
}

func (c *memGeocodeCache) GetMany(_ context.Context, addresses []string) (map[string]domain.Point, error) {
	out := map[string]domain.Point{}
	for _, a := range addresses {
		if p, ok := c.m[a]; ok {
			out[a] = p
		}
	}
	return out, nil
}

func (c *memGeocodeCache) PutMany(_ context.Context, results map[string]domain.Point) error {
	c.puts++
	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

type memDistanceCache struct {
	m map[[2]domain.Point]ports.DistanceResult
}

func (c *memDistanceCache) GetMany(_ context.Context, origin domain.Point, destinations []domain.Point) (map[domain.Point]ports.DistanceResult, error) {
	out := map[domain.Point]ports.DistanceResult{}
	for _, d := range destinations {
		if r, ok := c.m[[2]domain.Point{origin, d}]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (c *memDistanceCache) PutMany(_ context.Context, origin domain.Point, results map[domain.Point]ports.DistanceResult) error {
	for d, r := range results {
		c.m[[2]domain.Point{origin, d}] = r
	}
	return nil
}

func newTestProvider(t *testing.T, srv *httptest.Server, dc ports.DistanceCache, gc ports.GeocodeCache) *ORSProvider {
	t.Helper()
	p, err := NewORSProvider("key", dc, gc)
	require.NoError(t, err)
	return p.WithEndpoint(srv.URL, httpx.New(time.Second).WithBackoff(time.Millisecond))
}

func TestNewORSProvider_RequiresKey(t *testing.T) {
	_, err := NewORSProvider("", nil, nil)
	assert.Error(t, err)
}

func TestGeocode_UsesCacheAndSkipsUnresolved(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Authorization"))
		assert.Equal(t, "BR", r.URL.Query().Get("boundary.country"))

		switch r.URL.Query().Get("text") {
		case "Rua A 10, Sao Paulo":
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-46.63,-23.55]}}]}`))
		default:
			_, _ = w.Write([]byte(`{"features":[]}`))
		}
	}))
	defer srv.Close()

	gc := &memGeocodeCache{m: map[string]domain.Point{
		"Rua B 20, Campinas": domain.NewPoint(-22.9, -47.06),
	}}
	p := newTestProvider(t, srv, nil, gc)

	got, err := p.Geocode(context.Background(), []string{
		"  Rua A   10, Sao Paulo ",
		"Rua B 20, Campinas",
		"Nowhere",
		"Rua A 10, Sao Paulo",
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, got, 2)
	assert.Equal(t, domain.NewPoint(-23.55, -46.63), got["Rua A 10, Sao Paulo"])
	assert.Equal(t, domain.NewPoint(-22.9, -47.06), got["Rua B 20, Campinas"])
	assert.Equal(t, 1, gc.puts)
	assert.Contains(t, gc.m, "Rua A 10, Sao Paulo")
}

func TestGeocode_ElevationAndRejectedRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") == "rua rejeitada" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-46.6,-23.5,760]}}]}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, nil, nil)
	got, err := p.Geocode(context.Background(), []string{"Rua Alta 1"})
	require.NoError(t, err)
	assert.Equal(t, domain.NewPoint(-23.5, -46.6), got[domain.NormalizeAddress("Rua Alta 1")])

	_, err = p.Geocode(context.Background(), []string{"rua rejeitada"})
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestGetDistances_FetchesMissesOnly(t *testing.T) {
	origin := domain.NewPoint(-23.5, -46.6)
	cached := domain.NewPoint(-23.6, -46.7)
	fresh := domain.NewPoint(-23.7, -46.8)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v2/matrix/driving-car", r.URL.Path)

		var req matrixRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, [][]float64{{-46.6, -23.5}, {-46.8, -23.7}}, req.Locations)
		assert.Equal(t, []int{0}, req.Sources)
		assert.Equal(t, []int{1}, req.Destinations)

		_, _ = w.Write([]byte(`{"distances":[[1234.6]],"durations":[[300.2]]}`))
	}))
	defer srv.Close()

	dc := &memDistanceCache{m: map[[2]domain.Point]ports.DistanceResult{
		{origin, cached}: {DistanceMeters: 10, DurationSeconds: 1},
	}}
	p := newTestProvider(t, srv, dc, nil)

	got, err := p.GetDistances(context.Background(), origin, []domain.Point{cached, fresh, fresh, origin})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ports.DistanceResult{DistanceMeters: 10, DurationSeconds: 1}, got[cached])
	assert.Equal(t, ports.DistanceResult{DistanceMeters: 1235, DurationSeconds: 300}, got[fresh])
	assert.Equal(t, ports.DistanceResult{}, got[origin])
	assert.Contains(t, dc.m, [2]domain.Point{origin, fresh})

	one, err := p.GetDistance(context.Background(), origin, fresh)
	require.NoError(t, err)
	assert.Equal(t, 1235, one.DistanceMeters)
	assert.Equal(t, int32(1), calls.Load(), "second lookup served from cache")
}

func TestGetDistances_NullCellFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distances":[[null]],"durations":[[null]]}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, nil, nil)
	_, err := p.GetDistance(context.Background(), domain.NewPoint(1, 1), domain.NewPoint(2, 2))
	assert.ErrorIs(t, err, domain.ErrUpstreamData)
}

func TestGetDistances_MalformedRowIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distances":[],"durations":[]}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, nil, nil)
	_, err := p.GetDistance(context.Background(), domain.NewPoint(1, 1), domain.NewPoint(2, 2))
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestGetDistances_SplitsLargeRows(t *testing.T) {
	origin := domain.NewPoint(0, 0)
	dests := make([]domain.Point, maxMatrixDestinations+3)
	for i := range dests {
		dests[i] = domain.NewPoint(float64(i+1)/100, 0)
	}

	var sizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req matrixRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sizes = append(sizes, len(req.Destinations))

		row := make([]float64, len(req.Destinations))
		for i := range row {
			row[i] = 100
		}
		_ = json.NewEncoder(w).Encode(map[string][][]float64{
			"distances": {row},
			"durations": {row},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, nil, nil)
	got, err := p.GetDistances(context.Background(), origin, dests)
	require.NoError(t, err)

	assert.Equal(t, []int{maxMatrixDestinations, 3}, sizes)
	assert.Len(t, got, len(dests))
	assert.Equal(t, 100, got[dests[len(dests)-1]].DistanceMeters)
}

func TestHaversineProvider(t *testing.T) {
	h := NewHaversineProvider(36)
	a := domain.NewPoint(-23.5505, -46.6333)
	b := domain.NewPoint(-22.9056, -47.0608)

	// Sao Paulo to Campinas is roughly 84 km as the crow flies.
	crow := Haversine(a, b)
	assert.InDelta(t, 84000, crow, 3000)

	r, err := h.GetDistance(context.Background(), a, b)
	require.NoError(t, err)
	assert.InDelta(t, crow*1.3, float64(r.DistanceMeters), 1)
	assert.InDelta(t, float64(r.DistanceMeters)/10, float64(r.DurationSeconds), 1)

	same, err := h.GetDistance(context.Background(), a, a)
	require.NoError(t, err)
	assert.Zero(t, same)
}

func TestMockDistanceProvider(t *testing.T) {
	a, b := domain.NewPoint(1, 1), domain.NewPoint(2, 2)
	m := NewMockDistanceProvider([]MockPair{{From: a, To: b, Meters: 5, Seconds: 6}})

	r, err := m.GetDistance(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, 5, r.DistanceMeters)

	_, err = m.GetDistance(context.Background(), b, a)
	assert.Error(t, err)
}
