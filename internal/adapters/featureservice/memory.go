package featureservice

import (
	"context"
	"sync"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/ports"
)

// FetchCall records one Fetch against a MemoryClient.
type FetchCall struct {
	URL  string
	Opts ports.FetchOptions
}

// MemoryClient is an in-process ports.FeatureClient for tests. Layers are
// keyed by URL; Fetch ignores the where clause unless a Filter is installed.
type MemoryClient struct {
	mu sync.Mutex

	Layers map[string][]domain.Feature
	// Filter, when set, decides which features of a layer match a query.
	Filter func(url string, opts ports.FetchOptions, f domain.Feature) bool
	// Errors forces Fetch/Push/Remove on a URL to fail.
	Errors map[string]error

	Fetches []FetchCall
	// Ops lists "fetch|push|remove <url>" in call order.
	Ops     []string
	Pushes  map[string][]ports.PushRequest
	Removes map[string][]ports.RemoveRequest
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		Layers:  map[string][]domain.Feature{},
		Errors:  map[string]error{},
		Pushes:  map[string][]ports.PushRequest{},
		Removes: map[string][]ports.RemoveRequest{},
	}
}

func (m *MemoryClient) Fetch(_ context.Context, url string, opts ports.FetchOptions) ([]domain.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Fetches = append(m.Fetches, FetchCall{URL: url, Opts: opts})
	m.Ops = append(m.Ops, "fetch "+url)
	if err := m.Errors[url]; err != nil {
		return nil, err
	}

	var out []domain.Feature
	seen := map[string]bool{}
	for _, f := range m.Layers[url] {
		if m.Filter != nil && !m.Filter(url, opts, f) {
			continue
		}
		if opts.DistinctField != "" {
			v, ok := f.Attributes[opts.DistinctField]
			if !ok || v == nil || seen[domain.KeyOf(v)] {
				continue
			}
			seen[domain.KeyOf(v)] = true
			out = append(out, domain.Feature{Attributes: map[string]any{opts.DistinctField: v}})
			continue
		}
		cp := domain.Feature{Attributes: f.CloneAttributes()}
		if opts.ReturnGeometry && f.Geometry != nil {
			g := *f.Geometry
			cp.Geometry = &g
		}
		out = append(out, cp)
	}
	return out, nil
}

// FetchCount returns how many times url was queried.
func (m *MemoryClient) FetchCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Fetches {
		if c.URL == url {
			n++
		}
	}
	return n
}

func (m *MemoryClient) Push(_ context.Context, url string, req ports.PushRequest) (*ports.EditResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Pushes[url] = append(m.Pushes[url], req)
	m.Ops = append(m.Ops, "push "+url)
	if err := m.Errors[url]; err != nil {
		return nil, err
	}

	res := &ports.EditResult{}
	for _, f := range req.Adds {
		m.Layers[url] = append(m.Layers[url], domain.Feature{Attributes: f.CloneAttributes(), Geometry: f.Geometry})
		res.Adds = append(res.Adds, ports.EditOutcome{ObjectID: int64(len(m.Layers[url])), Success: true})
	}
	for _, f := range req.Updates {
		oid := domain.KeyOf(f.Attributes[domain.FieldObjectID])
		for i, existing := range m.Layers[url] {
			if domain.KeyOf(existing.Attributes[domain.FieldObjectID]) != oid {
				continue
			}
			for k, v := range f.Attributes {
				m.Layers[url][i].Attributes[k] = v
			}
			if f.Geometry != nil {
				g := *f.Geometry
				m.Layers[url][i].Geometry = &g
			}
		}
		res.Updates = append(res.Updates, ports.EditOutcome{Success: true})
	}
	return res, nil
}

// Remove records the request and clears the layer; the where clause is not
// evaluated.
func (m *MemoryClient) Remove(_ context.Context, url string, req ports.RemoveRequest) (*ports.EditResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Removes[url] = append(m.Removes[url], req)
	m.Ops = append(m.Ops, "remove "+url)
	if err := m.Errors[url]; err != nil {
		return nil, err
	}

	res := &ports.EditResult{}
	for range m.Layers[url] {
		res.Deletes = append(res.Deletes, ports.EditOutcome{Success: true})
	}
	delete(m.Layers, url)
	return res, nil
}
