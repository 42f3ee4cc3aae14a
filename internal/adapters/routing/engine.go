// Package routing is a local RoutingEngine: a greedy nearest-neighbour
// solver over a DistanceProvider.
//
// It does not attempt global optimization. Ties are broken by order name so
// the same input always yields the same plan.
package routing

import (
	"context"
	"fmt"
	"slices"
	"time"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

type Engine struct {
	provider ports.DistanceProvider
}

func NewEngine(provider ports.DistanceProvider) *Engine {
	return &Engine{provider: provider}
}

// RunRoute sequences each route's preassigned orders (Description equal to
// the route name). Orders that fit no route are reported unassigned.
func (e *Engine) RunRoute(ctx context.Context, payload domain.ModelPayload) (_ *domain.Solution, err error) {
	defer obs.Time(ctx, "routing.RunRoute")(&err)

	m, err := decodeModel(payload)
	if err != nil {
		return nil, fmt.Errorf("run route: %w", err)
	}

	byRoute := make(map[string][]order, len(m.routes))
	known := make(map[string]struct{}, len(m.routes))
	for _, r := range m.routes {
		known[r.name] = struct{}{}
	}

	sol := &domain.Solution{}
	for _, o := range m.orders {
		if _, ok := known[o.description]; !ok {
			sol.Unassigned = append(sol.Unassigned, o.name)
			continue
		}
		byRoute[o.description] = append(byRoute[o.description], o)
	}

	for _, r := range m.routes {
		plan, left, err := e.sequence(ctx, r, m.depots[r.depot], byRoute[r.name])
		if err != nil {
			return nil, fmt.Errorf("run route %q: %w", r.name, err)
		}
		sol.Routes = append(sol.Routes, plan)
		for _, o := range left {
			sol.Unassigned = append(sol.Unassigned, o.name)
		}
	}

	return sol, nil
}

// RunVRP fills routes one after another from a shared order pool.
func (e *Engine) RunVRP(ctx context.Context, payload domain.ModelPayload) (_ *domain.Solution, err error) {
	defer obs.Time(ctx, "routing.RunVRP")(&err)

	m, err := decodeModel(payload)
	if err != nil {
		return nil, fmt.Errorf("run vrp: %w", err)
	}

	pool := slices.Clone(m.orders)
	sol := &domain.Solution{}
	for _, r := range m.routes {
		plan, left, err := e.sequence(ctx, r, m.depots[r.depot], pool)
		if err != nil {
			return nil, fmt.Errorf("run vrp %q: %w", r.name, err)
		}
		sol.Routes = append(sol.Routes, plan)
		pool = left
	}

	for _, o := range pool {
		sol.Unassigned = append(sol.Unassigned, o.name)
	}
	return sol, nil
}

// sequence builds one route greedily: from the current location, visit the
// nearest (by travel duration) candidate that still fits the route limits.
// It returns the candidates it did not take.
func (e *Engine) sequence(ctx context.Context, r route, dep depot, candidates []order) (domain.RoutePlan, []order, error) {
	plan := domain.RoutePlan{
		RouteName:      r.name,
		StartDepotName: r.depot,
		StartAt:        r.start,
		Stops:          []domain.RouteStop{},
	}

	remaining := slices.Clone(candidates)
	clock := r.start
	current := dep.location
	breakTaken := !r.hasBreak

	for len(remaining) > 0 {
		if r.maxOrders > 0 && len(plan.Stops) >= r.maxOrders {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.RoutePlan{}, nil, err
		}

		// Take the break as soon as the clock reaches its window.
		if !breakTaken && !clock.Before(r.breakWindow) {
			at := clock
			plan.BreakAt = &at
			clock = clock.Add(r.breakDuration)
			breakTaken = true
		}

		dests := make([]domain.Point, 0, len(remaining))
		for _, o := range remaining {
			dests = append(dests, o.location)
		}
		results, err := e.distancesFrom(ctx, current, dests)
		if err != nil {
			return domain.RoutePlan{}, nil, err
		}

		// Candidates by travel duration, ties broken by order name.
		idx := make([]int, len(remaining))
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			da := results[remaining[a].location].DurationSeconds
			db := results[remaining[b].location].DurationSeconds
			if da != db {
				return da - db
			}
			if remaining[a].name < remaining[b].name {
				return -1
			}
			if remaining[a].name > remaining[b].name {
				return 1
			}
			return 0
		})

		chosen := -1
		for _, i := range idx {
			leg := results[remaining[i].location]
			if e.fits(r, plan, clock, leg, remaining[i], breakTaken) {
				chosen = i
				break
			}
		}
		if chosen < 0 {
			break
		}

		o := remaining[chosen]
		leg := results[o.location]
		arrive := clock.Add(time.Duration(leg.DurationSeconds) * time.Second)
		depart := arrive.Add(o.service)

		plan.Stops = append(plan.Stops, domain.RouteStop{
			OrderName: o.name,
			Sequence:  len(plan.Stops) + 1,
			Location:  o.location,
			ArriveAt:  arrive,
			DepartAt:  depart,
		})
		plan.TotalDistanceMeters += leg.DistanceMeters

		clock = depart
		current = o.location
		remaining = slices.Delete(remaining, chosen, chosen+1)
	}

	plan.TotalDurationSeconds = int(clock.Sub(r.start) / time.Second)
	return plan, remaining, nil
}

// fits reports whether visiting o next keeps the route within its time and
// distance limits. A break still owed is counted against the time limit.
func (e *Engine) fits(r route, plan domain.RoutePlan, clock time.Time, leg ports.DistanceResult, o order, breakTaken bool) bool {
	if r.maxDistanceM > 0 && float64(plan.TotalDistanceMeters+leg.DistanceMeters) > r.maxDistanceM {
		return false
	}
	if r.maxTotalTime <= 0 {
		return true
	}

	end := clock.Add(time.Duration(leg.DurationSeconds)*time.Second + o.service)
	if !breakTaken && !end.Before(r.breakWindow) {
		end = end.Add(r.breakDuration)
	}
	return end.Sub(r.start) <= r.maxTotalTime
}

// Prefer batched distance lookups when supported to reduce external API calls.
func (e *Engine) distancesFrom(ctx context.Context, origin domain.Point, dests []domain.Point) (map[domain.Point]ports.DistanceResult, error) {
	var results map[domain.Point]ports.DistanceResult

	if mp, ok := e.provider.(ports.DistanceMatrixProvider); ok {
		var err error
		results, err = mp.GetDistances(ctx, origin, dests)
		if err != nil {
			return nil, fmt.Errorf("get distances matrix from %s: %w", origin.Key(), err)
		}
	} else {
		results = make(map[domain.Point]ports.DistanceResult, len(dests))
		for _, d := range dests {
			if _, ok := results[d]; ok {
				continue
			}
			r, err := e.provider.GetDistance(ctx, origin, d)
			if err != nil {
				return nil, fmt.Errorf("get distance: from %s to %s: %w", origin.Key(), d.Key(), err)
			}
			results[d] = r
		}
	}

	for _, d := range dests {
		if _, ok := results[d]; !ok {
			return nil, fmt.Errorf("missing distance result from %s to %s", origin.Key(), d.Key())
		}
	}
	return results, nil
}
