package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Solver parameter names of the feature sets in a ModelPayload.
const (
	ParamDepots = "depots"
	ParamOrders = "orders"
	ParamRoutes = "routes"
	ParamBreaks = "breaks"
)

// ModelPayload is the optimizer input: the Values() of every model entity.
// Depots and orders carry geometry; routes and breaks are flat attribute maps.
type ModelPayload struct {
	Depots []map[string]any
	Orders []map[string]any
	Routes []map[string]any
	Breaks []map[string]any
}

func NewModelPayload(depots []Depot, orders []Order, routes []Route, breaks []Breaks) ModelPayload {
	p := ModelPayload{
		Depots: make([]map[string]any, 0, len(depots)),
		Orders: make([]map[string]any, 0, len(orders)),
		Routes: make([]map[string]any, 0, len(routes)),
		Breaks: make([]map[string]any, 0, len(breaks)),
	}
	for _, d := range depots {
		p.Depots = append(p.Depots, d.Values())
	}
	for _, o := range orders {
		p.Orders = append(p.Orders, o.Values())
	}
	for _, r := range routes {
		p.Routes = append(p.Routes, r.Values())
	}
	for _, b := range breaks {
		p.Breaks = append(p.Breaks, b.Values())
	}
	return p
}

// FeatureSets renders each list as a feature-set JSON document keyed by its
// solver parameter name. Time values are encoded as epoch milliseconds.
func (p ModelPayload) FeatureSets() (map[string]string, error) {
	sets := map[string][]map[string]any{
		ParamDepots: p.Depots,
		ParamOrders: p.Orders,
		ParamRoutes: wrapAttributes(p.Routes),
		ParamBreaks: wrapAttributes(p.Breaks),
	}

	out := make(map[string]string, len(sets))
	for name, features := range sets {
		encoded := make([]map[string]any, 0, len(features))
		for _, f := range features {
			encoded = append(encoded, epochTimes(f))
		}

		b, err := json.Marshal(map[string]any{"features": encoded})
		if err != nil {
			return nil, fmt.Errorf("encode %s feature set: %w", name, err)
		}
		out[name] = string(b)
	}
	return out, nil
}

func wrapAttributes(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{"attributes": r})
	}
	return out
}

// epochTimes copies m, replacing time.Time values (at any depth) with epoch ms.
func epochTimes(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.UnixMilli()
		case map[string]any:
			out[k] = epochTimes(t)
		default:
			out[k] = v
		}
	}
	return out
}
