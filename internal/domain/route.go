package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RouteCostPerUnitTime = 1.0
	RouteAssignmentRule  = 2
	// MaxTotalTime is expressed in minutes.
	RouteMaxTotalTime = 580

	routeEarliestHour = 9
	routeLatestHour   = 18
)

// Route is an empty route shell handed to the optimizer. Its start window is
// derived from the date token in its name.
type Route struct {
	name             string
	startDepotName   string
	earliestStart    time.Time
	latestStart      time.Time
	maxOrderCount    int
	maxTotalDistance float64
}

func NewRoute(name, startDepotName string, maxOrderCount int, maxTotalDistanceKm float64, loc *time.Location) (Route, error) {
	if strings.TrimSpace(startDepotName) == "" {
		return Route{}, errors.New("new route: start depot name must be non-empty")
	}

	day, err := ParseRouteDate(name, loc)
	if err != nil {
		return Route{}, fmt.Errorf("new route: %w", err)
	}

	return Route{
		name:             name,
		startDepotName:   startDepotName,
		earliestStart:    atClock(day, routeEarliestHour, 0),
		latestStart:      atClock(day, routeLatestHour, 0),
		maxOrderCount:    maxOrderCount,
		maxTotalDistance: maxTotalDistanceKm,
	}, nil
}

func (r Route) Name() string                 { return r.name }
func (r Route) StartDepotName() string       { return r.startDepotName }
func (r Route) EarliestStartTime() time.Time { return r.earliestStart }
func (r Route) LatestStartTime() time.Time   { return r.latestStart }

func (r Route) Values() map[string]any {
	return map[string]any{
		"Name":              r.name,
		"StartDepotName":    r.startDepotName,
		"EarliestStartTime": r.earliestStart,
		"LatestStartTime":   r.latestStart,
		"CostPerUnitTime":   RouteCostPerUnitTime,
		"MaxOrderCount":     r.maxOrderCount,
		"AssignmentRule":    RouteAssignmentRule,
		"MaxTotalTime":      RouteMaxTotalTime,
		"MaxTotalDistance":  r.maxTotalDistance,
	}
}
