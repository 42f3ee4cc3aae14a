package domain

import (
	"fmt"
	"time"
)

const (
	BreakPrecedence = 1

	breakStartHour = 12
	breakEndHour   = 13
)

// Breaks is the lunch break of one route, placed in the 12:00-13:00 window of
// the route's date.
type Breaks struct {
	routeName   string
	serviceTime int
	windowStart time.Time
	windowEnd   time.Time
}

func NewBreaks(routeName string, serviceTime int, loc *time.Location) (Breaks, error) {
	day, err := ParseRouteDate(routeName, loc)
	if err != nil {
		return Breaks{}, fmt.Errorf("new breaks: %w", err)
	}

	return Breaks{
		routeName:   routeName,
		serviceTime: serviceTime,
		windowStart: atClock(day, breakStartHour, 0),
		windowEnd:   atClock(day, breakEndHour, 0),
	}, nil
}

func (b Breaks) RouteName() string { return b.routeName }

func (b Breaks) Values() map[string]any {
	return map[string]any{
		"RouteName":       b.routeName,
		"ServiceTime":     b.serviceTime,
		"TimeWindowStart": b.windowStart,
		"TimeWindowEnd":   b.windowEnd,
		"Precedence":      BreakPrecedence,
	}
}
