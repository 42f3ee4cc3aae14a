package domain

import (
	"errors"
	"strings"
)

// Depot is the start location of a route.
type Depot struct {
	location Point
	name     string
}

func NewDepot(name string, location Point) (Depot, error) {
	if strings.TrimSpace(name) == "" {
		return Depot{}, errors.New("new depot: name must be non-empty")
	}
	return Depot{location: location, name: name}, nil
}

func (d Depot) Name() string                   { return d.name }
func (d Depot) Location() Point                { return d.location }
func (d Depot) RenderGeometry() map[string]any { return d.location.RenderGeometry() }

func (d Depot) Values() map[string]any {
	return map[string]any{
		"geometry": d.RenderGeometry(),
		"attributes": map[string]any{
			"Name": d.name,
		},
	}
}
