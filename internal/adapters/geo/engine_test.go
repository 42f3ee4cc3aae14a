package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visit-route-service/internal/adapters/featureservice"
	"visit-route-service/internal/config"
	"visit-route-service/internal/domain"
)

const leadsURL = "https://example.test/leads/FeatureServer/0"

type stubGeocoder struct {
	points map[string]domain.Point
	asked  []string
	err    error
}

func (s *stubGeocoder) Geocode(_ context.Context, addresses []string) (map[string]domain.Point, error) {
	s.asked = append(s.asked, addresses...)
	return s.points, s.err
}

func testParams() config.Params {
	return config.Params{
		LeadsFeatureURL: leadsURL,
		GeocodeWhere:    "geocoded = 0",
		AddressField:    "endereco",
	}
}

func newEngine(fc *featureservice.MemoryClient, g *stubGeocoder) *Engine {
	logger, _ := test.NewNullLogger()
	return NewEngine(fc, g, testParams(), logger)
}

func TestGeocode_PushesResolvedLeadsOnly(t *testing.T) {
	fc := featureservice.NewMemoryClient()
	fc.Layers[leadsURL] = []domain.Feature{
		{Attributes: map[string]any{"OBJECTID": float64(1), "endereco": "Rua  A 10"}},
		{Attributes: map[string]any{"OBJECTID": float64(2), "endereco": "Unknown"}},
		{Attributes: map[string]any{"OBJECTID": float64(3)}},
	}
	g := &stubGeocoder{points: map[string]domain.Point{"Rua A 10": domain.NewPoint(-23.5, -46.6)}}

	require.NoError(t, newEngine(fc, g).Geocode(context.Background()))

	assert.Equal(t, []string{"Rua A 10", "Unknown"}, g.asked)
	require.Len(t, fc.Fetches, 1)
	assert.Equal(t, "geocoded = 0", fc.Fetches[0].Opts.Where)

	require.Len(t, fc.Pushes[leadsURL], 1)
	ups := fc.Pushes[leadsURL][0].Updates
	require.Len(t, ups, 1)
	assert.Equal(t, float64(1), ups[0].Attributes["OBJECTID"])
	assert.Equal(t, -23.5, ups[0].Attributes["latitude"])
	assert.Equal(t, 1, ups[0].Attributes["geocoded"])
	assert.Equal(t, -46.6, ups[0].Geometry.X)
}

func TestGeocode_GeocoderFailureIsFatal(t *testing.T) {
	fc := featureservice.NewMemoryClient()
	fc.Layers[leadsURL] = []domain.Feature{{Attributes: map[string]any{"OBJECTID": float64(1), "endereco": "Rua A"}}}
	g := &stubGeocoder{err: errors.New("quota exceeded")}

	err := newEngine(fc, g).Geocode(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, fc.Pushes[leadsURL])
}

func TestGeocode_NoGeocoderIsConfigError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := NewEngine(featureservice.NewMemoryClient(), nil, testParams(), logger)
	assert.True(t, errors.Is(e.Geocode(context.Background()), domain.ErrConfig))
}

func TestNormalizeCompanies_UpdatesChangedAddresses(t *testing.T) {
	fc := featureservice.NewMemoryClient()
	fc.Layers[leadsURL] = []domain.Feature{
		{Attributes: map[string]any{"OBJECTID": float64(1), "endereco": " Rua   A  10 "}},
		{Attributes: map[string]any{"OBJECTID": float64(2), "endereco": "Rua B 20"}},
	}

	require.NoError(t, newEngine(fc, &stubGeocoder{}).NormalizeCompanies(context.Background()))

	assert.Equal(t, "endereco IS NOT NULL", fc.Fetches[0].Opts.Where)
	require.Len(t, fc.Pushes[leadsURL], 1)
	ups := fc.Pushes[leadsURL][0].Updates
	require.Len(t, ups, 1)
	assert.Equal(t, "Rua A 10", ups[0].Attributes["endereco"])

	assert.Equal(t, "Rua A 10", fc.Layers[leadsURL][0].Attributes["endereco"])
}

func TestDouble_RecordsOrder(t *testing.T) {
	d := &Double{NormalizeErr: errors.New("x")}
	require.NoError(t, d.Geocode(context.Background()))
	assert.Error(t, d.NormalizeCompanies(context.Background()))
	assert.Equal(t, []string{"geocode", "normalize"}, d.Calls)
}
