package routing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/ports"
)

const day = "20261017"

// lineProvider places every point on the x axis: one unit is 1 km and
// secondsPerUnit of driving.
type lineProvider struct {
	secondsPerUnit float64
	calls          int
	err            error
}

func (p *lineProvider) GetDistance(_ context.Context, a, b domain.Point) (ports.DistanceResult, error) {
	p.calls++
	if p.err != nil {
		return ports.DistanceResult{}, p.err
	}
	d := math.Abs(a.X - b.X)
	return ports.DistanceResult{
		DistanceMeters:  int(d * 1000),
		DurationSeconds: int(d * p.secondsPerUnit),
	}, nil
}

func at(x float64) domain.Point { return domain.NewPoint(0, x) }

type routeSpec struct {
	exec      string
	depotX    float64
	maxOrders int
	maxKm     float64
}

type orderSpec struct {
	name  string
	route string
	x     float64
}

func payload(t *testing.T, routes []routeSpec, orders []orderSpec) domain.ModelPayload {
	t.Helper()

	var (
		depots []domain.Depot
		rs     []domain.Route
		bs     []domain.Breaks
		os     []domain.Order
	)
	for _, r := range routes {
		dep, err := domain.NewDepot("DEP-"+r.exec, at(r.depotX))
		require.NoError(t, err)
		depots = append(depots, dep)

		name := r.exec + "#" + day
		route, err := domain.NewRoute(name, dep.Name(), r.maxOrders, r.maxKm, time.UTC)
		require.NoError(t, err)
		rs = append(rs, route)

		b, err := domain.NewBreaks(name, 60, time.UTC)
		require.NoError(t, err)
		bs = append(bs, b)
	}
	for _, o := range orders {
		ord, err := domain.NewOrder(o.name, o.route+"#"+day, 0, at(o.x), time.UTC)
		require.NoError(t, err)
		os = append(os, ord)
	}
	return domain.NewModelPayload(depots, os, rs, bs)
}

func clock(h, m int) time.Time {
	return time.Date(2026, 10, 17, h, m, 0, 0, time.UTC)
}

func stopNames(p domain.RoutePlan) []string {
	out := make([]string, 0, len(p.Stops))
	for _, s := range p.Stops {
		out = append(out, s.OrderName)
	}
	return out
}

func TestRunRoute_NearestNeighbourOrder(t *testing.T) {
	e := NewEngine(&lineProvider{secondsPerUnit: 600})
	sol, err := e.RunRoute(context.Background(), payload(t,
		[]routeSpec{{exec: "R1", maxOrders: 12, maxKm: 200}},
		[]orderSpec{{"A", "R1", 3}, {"B", "R1", 1}, {"C", "R1", 2}},
	))
	require.NoError(t, err)

	require.Len(t, sol.Routes, 1)
	plan := sol.Routes[0]
	assert.Equal(t, []string{"B", "C", "A"}, stopNames(plan))
	assert.Equal(t, "DEP-R1", plan.StartDepotName)
	assert.Equal(t, clock(9, 0), plan.StartAt)

	assert.Equal(t, clock(9, 10), plan.Stops[0].ArriveAt)
	assert.Equal(t, clock(9, 30), plan.Stops[0].DepartAt)
	assert.Equal(t, 3, plan.Stops[2].Sequence)
	assert.Equal(t, clock(10, 30), plan.Stops[2].DepartAt)

	assert.Equal(t, 3000, plan.TotalDistanceMeters)
	assert.Equal(t, 90*60, plan.TotalDurationSeconds)
	assert.Nil(t, plan.BreakAt)
	assert.Empty(t, sol.Unassigned)
}

func TestRunRoute_MaxOrderCount(t *testing.T) {
	e := NewEngine(&lineProvider{secondsPerUnit: 60})
	sol, err := e.RunRoute(context.Background(), payload(t,
		[]routeSpec{{exec: "R1", maxOrders: 2, maxKm: 200}},
		[]orderSpec{{"A", "R1", 3}, {"B", "R1", 1}, {"C", "R1", 2}},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C"}, stopNames(sol.Routes[0]))
	assert.Equal(t, []string{"A"}, sol.Unassigned)
}

func TestRunRoute_BreakInsertedOnceWindowReached(t *testing.T) {
	e := NewEngine(&lineProvider{secondsPerUnit: 3600})
	sol, err := e.RunRoute(context.Background(), payload(t,
		[]routeSpec{{exec: "R1", maxOrders: 12, maxKm: 200}},
		[]orderSpec{{"A", "R1", 1}, {"B", "R1", 2}, {"C", "R1", 3}, {"D", "R1", 4}},
	))
	require.NoError(t, err)

	plan := sol.Routes[0]
	require.Equal(t, []string{"A", "B", "C", "D"}, stopNames(plan))
	require.NotNil(t, plan.BreakAt)
	assert.Equal(t, clock(13, 0), *plan.BreakAt)
	assert.Equal(t, clock(15, 0), plan.Stops[3].ArriveAt)
	assert.Equal(t, 380*60, plan.TotalDurationSeconds)
}

func TestRunRoute_MaxTotalTime(t *testing.T) {
	e := NewEngine(&lineProvider{secondsPerUnit: 5 * 3600})
	sol, err := e.RunRoute(context.Background(), payload(t,
		[]routeSpec{{exec: "R1", maxOrders: 12, maxKm: 200}},
		[]orderSpec{{"A", "R1", 1}, {"B", "R1", 2}},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, stopNames(sol.Routes[0]))
	assert.Equal(t, []string{"B"}, sol.Unassigned)
}

func TestRunRoute_MaxTotalDistance(t *testing.T) {
	e := NewEngine(&lineProvider{secondsPerUnit: 60})
	sol, err := e.RunRoute(context.Background(), payload(t,
		[]routeSpec{{exec: "R1", maxOrders: 12, maxKm: 2.5}},
		[]orderSpec{{"A", "R1", 1}, {"B", "R1", 2}, {"C", "R1", 3}},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, stopNames(sol.Routes[0]))
	assert.Equal(t, []string{"C"}, sol.Unassigned)
}

func TestRunRoute_OrdersOfUnknownRouteAreUnassigned(t *testing.T) {
	e := NewEngine(&lineProvider{secondsPerUnit: 60})
	sol, err := e.RunRoute(context.Background(), payload(t,
		[]routeSpec{{exec: "R1", maxOrders: 12, maxKm: 200}},
		[]orderSpec{{"A", "R1", 1}, {"X", "company-7", 2}},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, stopNames(sol.Routes[0]))
	assert.Equal(t, []string{"X"}, sol.Unassigned)
	assert.Equal(t, 1, sol.StopCount())
}

func TestRunVRP_SharedPool(t *testing.T) {
	e := NewEngine(&lineProvider{secondsPerUnit: 60})
	sol, err := e.RunVRP(context.Background(), payload(t,
		[]routeSpec{
			{exec: "R1", depotX: 0, maxOrders: 2, maxKm: 200},
			{exec: "R2", depotX: 10, maxOrders: 2, maxKm: 200},
		},
		[]orderSpec{{"o9", "x", 9}, {"o1", "x", 1}, {"o8", "x", 8}, {"o2", "x", 2}, {"o5", "x", 5}},
	))
	require.NoError(t, err)

	require.Len(t, sol.Routes, 2)
	assert.Equal(t, []string{"o1", "o2"}, stopNames(sol.Routes[0]))
	assert.Equal(t, []string{"o9", "o8"}, stopNames(sol.Routes[1]))
	assert.Equal(t, []string{"o5"}, sol.Unassigned)
}

func TestRun_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("provider down")
	e := NewEngine(&lineProvider{err: boom})
	_, err := e.RunVRP(context.Background(), payload(t,
		[]routeSpec{{exec: "R1", maxOrders: 2, maxKm: 200}},
		[]orderSpec{{"A", "x", 1}},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestRun_UnknownDepotIsUpstreamError(t *testing.T) {
	route, err := domain.NewRoute("R1#"+day, "DEP-missing", 2, 10, time.UTC)
	require.NoError(t, err)

	_, err = NewEngine(&lineProvider{}).RunRoute(context.Background(),
		domain.NewModelPayload(nil, nil, []domain.Route{route}, nil))
	assert.True(t, errors.Is(err, domain.ErrUpstreamData))
}
