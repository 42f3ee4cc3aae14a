package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	OrderServiceTime    = 20
	OrderAssignmentRule = 3
)

// Order is a company visit. Description carries the route-name date token of
// the route the order belongs to.
type Order struct {
	location    Point
	name        string
	description string
	revenue     float64
	date        time.Time
}

func NewOrder(name, description string, revenue float64, location Point, loc *time.Location) (Order, error) {
	if strings.TrimSpace(name) == "" {
		return Order{}, fmt.Errorf("new order: name must be non-empty: %w", ErrUpstreamData)
	}

	date, err := ParseRouteDate(description, loc)
	if err != nil {
		return Order{}, fmt.Errorf("new order %q: %w", name, err)
	}

	return Order{
		location:    location,
		name:        name,
		description: description,
		revenue:     revenue,
		date:        date,
	}, nil
}

func (o Order) Name() string                   { return o.name }
func (o Order) Description() string            { return o.description }
func (o Order) Date() time.Time                { return o.date }
func (o Order) Location() Point                { return o.location }
func (o Order) RenderGeometry() map[string]any { return o.location.RenderGeometry() }

func (o Order) Values() map[string]any {
	return map[string]any{
		"geometry": o.RenderGeometry(),
		"attributes": map[string]any{
			"Name":           o.name,
			"Description":    o.description,
			"Revenue":        o.revenue,
			"ServiceTime":    OrderServiceTime,
			"AssignmentRule": OrderAssignmentRule,
		},
	}
}
