package domain

import (
	"fmt"
	"regexp"
	"time"
)

const routeDateLayout = "20060102"

var routeDateToken = regexp.MustCompile(`#(\d{8})$`)

// ParseRouteDate extracts the #YYYYMMDD suffix of a route name and returns
// midnight of that date in loc (UTC when loc is nil).
//
// Absent or malformed tokens are an upstream data error; there is no default date.
func ParseRouteDate(name string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	m := routeDateToken.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("parse route date: %q has no #YYYYMMDD suffix: %w", name, ErrUpstreamData)
	}

	d, err := time.ParseInLocation(routeDateLayout, m[1], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse route date: %q: %v: %w", name, err, ErrUpstreamData)
	}

	return d, nil
}

// RouteDateToken renders date as the 8-digit token used after '#'.
func RouteDateToken(date time.Time) string {
	return date.Format(routeDateLayout)
}

// FormatRouteName builds "<prefix>#YYYYMMDD".
func FormatRouteName(prefix string, date time.Time) string {
	return prefix + "#" + RouteDateToken(date)
}

// atClock returns the same calendar day as day at hour:minute.
func atClock(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
