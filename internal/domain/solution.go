package domain

import "time"

// Represents a single visit in a solved route.
// A RouteStop corresponds to arriving at an order's location at a computed
// time and leaving after its service time.
type RouteStop struct {
	OrderName string
	Sequence  int
	Location  Point
	ArriveAt  time.Time
	DepartAt  time.Time
}

// Represents the solved visit sequence of a single route.
// A RoutePlan is the output of a routing engine and describes the ordered
// stops along with aggregate distance and duration metrics.
// It is immutable planning data and contains no side effects.
type RoutePlan struct {
	RouteName            string
	StartDepotName       string
	StartAt              time.Time
	BreakAt              *time.Time
	Stops                []RouteStop
	TotalDurationSeconds int
	TotalDistanceMeters  int
}

// Solution is the routing engine result for a whole model.
type Solution struct {
	Routes     []RoutePlan
	Unassigned []string
}

// StopCount returns the number of assigned orders across all routes.
func (s *Solution) StopCount() int {
	n := 0
	for _, r := range s.Routes {
		n += len(r.Stops)
	}
	return n
}
