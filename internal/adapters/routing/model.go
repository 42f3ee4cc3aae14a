package routing

import (
	"fmt"
	"time"

	"visit-route-service/internal/domain"
)

type depot struct {
	name     string
	location domain.Point
}

type order struct {
	name        string
	description string
	location    domain.Point
	service     time.Duration
}

type route struct {
	name          string
	depot         string
	start         time.Time
	maxOrders     int
	maxTotalTime  time.Duration
	maxDistanceM  float64
	breakWindow   time.Time
	breakDuration time.Duration
	hasBreak      bool
}

type model struct {
	depots map[string]depot
	orders []order
	routes []route
}

// decodeModel reads the entity value maps back into typed records. The maps
// are produced by the domain model builders, so anything unexpected is a
// programming or upstream data error rather than user input.
func decodeModel(p domain.ModelPayload) (*model, error) {
	m := &model{depots: make(map[string]depot, len(p.Depots))}

	for i, v := range p.Depots {
		attrs, loc, err := featureParts(v)
		if err != nil {
			return nil, fmt.Errorf("depot #%d: %w", i+1, err)
		}
		name, _ := attrs["Name"].(string)
		m.depots[name] = depot{name: name, location: loc}
	}

	for i, v := range p.Orders {
		attrs, loc, err := featureParts(v)
		if err != nil {
			return nil, fmt.Errorf("order #%d: %w", i+1, err)
		}
		name, _ := attrs["Name"].(string)
		desc, _ := attrs["Description"].(string)
		svc, _ := domain.ToFloat(attrs["ServiceTime"])
		m.orders = append(m.orders, order{
			name:        name,
			description: desc,
			location:    loc,
			service:     minutes(svc),
		})
	}

	breaks := make(map[string]map[string]any, len(p.Breaks))
	for _, b := range p.Breaks {
		if name, ok := b["RouteName"].(string); ok {
			breaks[name] = b
		}
	}

	for i, v := range p.Routes {
		name, _ := v["Name"].(string)
		start, ok := v["EarliestStartTime"].(time.Time)
		if !ok {
			return nil, fmt.Errorf("route #%d %q: EarliestStartTime is not a time: %w", i+1, name, domain.ErrUpstreamData)
		}
		dep, _ := v["StartDepotName"].(string)
		if _, ok := m.depots[dep]; !ok {
			return nil, fmt.Errorf("route %q: unknown start depot %q: %w", name, dep, domain.ErrUpstreamData)
		}
		maxOrders, _ := domain.ToFloat(v["MaxOrderCount"])
		maxTime, _ := domain.ToFloat(v["MaxTotalTime"])
		maxKm, _ := domain.ToFloat(v["MaxTotalDistance"])

		r := route{
			name:         name,
			depot:        dep,
			start:        start,
			maxOrders:    int(maxOrders),
			maxTotalTime: minutes(maxTime),
			maxDistanceM: maxKm * 1000,
		}
		if b, ok := breaks[name]; ok {
			ws, ok := b["TimeWindowStart"].(time.Time)
			if !ok {
				return nil, fmt.Errorf("break of route %q: TimeWindowStart is not a time: %w", name, domain.ErrUpstreamData)
			}
			svc, _ := domain.ToFloat(b["ServiceTime"])
			r.hasBreak = true
			r.breakWindow = ws
			r.breakDuration = minutes(svc)
		}
		m.routes = append(m.routes, r)
	}

	return m, nil
}

func featureParts(v map[string]any) (map[string]any, domain.Point, error) {
	attrs, ok := v["attributes"].(map[string]any)
	if !ok {
		return nil, domain.Point{}, fmt.Errorf("missing attributes: %w", domain.ErrUpstreamData)
	}
	geom, ok := v["geometry"].(map[string]any)
	if !ok {
		return nil, domain.Point{}, fmt.Errorf("missing geometry: %w", domain.ErrUpstreamData)
	}
	x, okX := domain.ToFloat(geom["x"])
	y, okY := domain.ToFloat(geom["y"])
	if !okX || !okY {
		return nil, domain.Point{}, fmt.Errorf("geometry is not numeric: %w", domain.ErrUpstreamData)
	}
	return attrs, domain.Point{X: x, Y: y}, nil
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
