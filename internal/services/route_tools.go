package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"visit-route-service/internal/config"
	"visit-route-service/internal/domain"
	"visit-route-service/internal/jobrun"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

// Attributes of the published route result features.
const (
	ResultRouteName   = "routeName"
	ResultRouteDate   = "routeDate"
	ResultExecutiveID = "executiveId"
	ResultCompanyID   = "companyId"
	ResultSequence    = "sequence"
	ResultArriveAt    = "arriveAt"
	ResultDepartAt    = "departAt"
	ResultRunID       = "runId"
)

// RouteTool generates the routes of a run.
type RouteTool interface {
	Generate(ctx context.Context) error
}

// ToolSelector resolves the type_tool discriminator.
type ToolSelector func(kind string) (RouteTool, error)

type ToolDeps struct {
	Run       *jobrun.Run
	Features  ports.FeatureClient
	Staging   ports.StagingStore
	WorkAreas *WorkAreaCache
	Engine    ports.RoutingEngine
	Log       logrus.FieldLogger
}

// SelectTool returns the VRP or Route tool. Any other kind is a
// configuration error.
func SelectTool(kind string, deps ToolDeps) (RouteTool, error) {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Engine == nil && (kind == config.ToolVRP || kind == config.ToolRoute) {
		return nil, fmt.Errorf("select tool %q: no routing engine configured: %w", kind, domain.ErrConfig)
	}
	switch kind {
	case config.ToolVRP:
		return &routeTool{deps: deps, kind: kind, solve: deps.Engine.RunVRP}, nil
	case config.ToolRoute:
		return &routeTool{deps: deps, kind: kind, solve: deps.Engine.RunRoute}, nil
	default:
		return nil, fmt.Errorf("select tool: unknown type_tool %q (want %q or %q): %w",
			kind, config.ToolVRP, config.ToolRoute, domain.ErrConfig)
	}
}

// Selector binds deps so the orchestrator only needs the discriminator.
func Selector(deps ToolDeps) ToolSelector {
	return func(kind string) (RouteTool, error) { return SelectTool(kind, deps) }
}

type routeTool struct {
	deps  ToolDeps
	kind  string
	solve func(context.Context, domain.ModelPayload) (*domain.Solution, error)
}

func (t *routeTool) Generate(ctx context.Context) (err error) {
	defer obs.Time(ctx, "routes.Generate")(&err)

	payload, execByRoute, err := t.buildModel(ctx)
	if err != nil {
		return fmt.Errorf("generate routes (%s): %w", t.kind, err)
	}
	if len(payload.Routes) == 0 {
		t.deps.Log.WithField("tool", t.kind).Warn("no executive in an active work area; nothing to route")
		return nil
	}

	sol, err := t.solve(ctx, payload)
	if err != nil {
		return fmt.Errorf("generate routes (%s): solve: %w", t.kind, err)
	}

	t.deps.Log.WithFields(logrus.Fields{
		"tool":       t.kind,
		"routes":     len(sol.Routes),
		"stops":      sol.StopCount(),
		"unassigned": len(sol.Unassigned),
	}).Info("routes solved")

	if err := t.publish(ctx, sol, execByRoute); err != nil {
		return fmt.Errorf("generate routes (%s): %w", t.kind, err)
	}
	return nil
}

// buildModel turns staged companies and active executives into the optimizer
// payload. It also returns the executive id of each route name.
func (t *routeTool) buildModel(ctx context.Context) (domain.ModelPayload, map[string]any, error) {
	run := t.deps.Run
	params := run.Params()
	loc := run.Location()

	records, err := t.deps.Staging.Records(ctx, params.CompaniesStagingPath, params.FieldMapping)
	if err != nil {
		return domain.ModelPayload{}, nil, fmt.Errorf("read staged companies: %w", err)
	}

	portfolios, err := t.deps.WorkAreas.Portfolios(ctx)
	if err != nil {
		return domain.ModelPayload{}, nil, err
	}
	active := make(map[string]struct{}, len(portfolios))
	for _, p := range portfolios {
		active[domain.KeyOf(p)] = struct{}{}
	}

	features, err := t.deps.Features.Fetch(ctx, params.ExecutiveFeatureURL, ports.FetchOptions{
		Where:          "1=1",
		ReturnGeometry: true,
	})
	if err != nil {
		return domain.ModelPayload{}, nil, fmt.Errorf("fetch executives: %w", err)
	}

	var (
		depots []domain.Depot
		routes []domain.Route
		breaks []domain.Breaks
		orders []domain.Order
	)
	execByRoute := map[string]any{}

	for _, f := range features {
		ex, err := domain.ExecutiveFromFeature(f)
		if err != nil {
			return domain.ModelPayload{}, nil, err
		}
		if _, ok := active[domain.KeyOf(ex.PortfolioID)]; !ok {
			continue
		}
		name := run.RouteName(ex.Key())
		if _, dup := execByRoute[name]; dup {
			continue
		}
		if ex.Location == nil {
			t.deps.Log.WithField("executive", ex.Key()).Warn("executive has no location; no route built")
			continue
		}

		depot, err := domain.NewDepot("DEP-"+ex.Key(), *ex.Location)
		if err != nil {
			return domain.ModelPayload{}, nil, err
		}
		route, err := domain.NewRoute(name, depot.Name(), params.MaxOrderCount, params.MaxTotalDistanceKm, loc)
		if err != nil {
			return domain.ModelPayload{}, nil, err
		}
		brk, err := domain.NewBreaks(name, params.BreakServiceTimeMinutes, loc)
		if err != nil {
			return domain.ModelPayload{}, nil, err
		}

		depots = append(depots, depot)
		routes = append(routes, route)
		breaks = append(breaks, brk)
		execByRoute[name] = ex.ID
	}

	skipped := 0
	for _, rec := range records {
		lat, okLat := domain.ToFloat(rec[domain.FieldLatitude])
		lon, okLon := domain.ToFloat(rec[domain.FieldLongitude])
		id := domain.KeyOf(rec[domain.FieldCompanyID])
		if !okLat || !okLon || id == "" {
			skipped++
			continue
		}

		desc := run.RouteName(id)
		if exec := rec[domain.FieldExecutiveID]; exec != nil {
			if name := run.RouteName(domain.KeyOf(exec)); execByRoute[name] != nil {
				desc = name
			}
		}
		revenue, _ := domain.ToFloat(rec[domain.FieldRevenue])

		o, err := domain.NewOrder(id, desc, revenue, domain.NewPoint(lat, lon), loc)
		if err != nil {
			return domain.ModelPayload{}, nil, err
		}
		orders = append(orders, o)
	}
	if skipped > 0 {
		t.deps.Log.WithField("skipped", skipped).Warn("staged companies without id or coordinates")
	}

	return domain.NewModelPayload(depots, orders, routes, breaks), execByRoute, nil
}

// publish replaces the run date's results: remove first, then add one
// feature per stop.
func (t *routeTool) publish(ctx context.Context, sol *domain.Solution, execByRoute map[string]any) error {
	url := t.deps.Run.Params().RoutesResultFeatureURL
	if url == "" {
		return nil
	}
	token := t.deps.Run.DateToken()

	if _, err := t.deps.Features.Remove(ctx, url, ports.RemoveRequest{
		Where: ResultRouteDate + " = " + sqlLiteral(token),
	}); err != nil {
		return fmt.Errorf("publish: remove previous results: %w", err)
	}

	var adds []domain.Feature
	for _, r := range sol.Routes {
		for _, s := range r.Stops {
			loc := s.Location
			adds = append(adds, domain.Feature{
				Attributes: map[string]any{
					ResultRouteName:   r.RouteName,
					ResultRouteDate:   token,
					ResultExecutiveID: execByRoute[r.RouteName],
					ResultCompanyID:   s.OrderName,
					ResultSequence:    s.Sequence,
					ResultArriveAt:    s.ArriveAt.UnixMilli(),
					ResultDepartAt:    s.DepartAt.UnixMilli(),
					ResultRunID:       t.deps.Run.ID(),
				},
				Geometry: &loc,
			})
		}
	}
	if len(adds) == 0 {
		return nil
	}

	res, err := t.deps.Features.Push(ctx, url, ports.PushRequest{Adds: adds})
	if err != nil {
		return fmt.Errorf("publish: push results: %w", err)
	}
	if n := res.Failed(); n > 0 {
		return fmt.Errorf("publish: %d of %d result features rejected: %w", n, len(adds), domain.ErrTransport)
	}
	return nil
}
