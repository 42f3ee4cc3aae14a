package domain

import "fmt"

const (
	FieldExecutiveKey  = "id"
	FieldExecutiveName = "nome"
)

// Executive is a field executive responsible for one portfolio. Location is
// the executive's base and becomes the route depot.
type Executive struct {
	ID          any
	PortfolioID any
	Name        string
	Location    *Point
}

func ExecutiveFromFeature(f Feature) (Executive, error) {
	a := f.Attributes
	if a[FieldExecutiveKey] == nil {
		return Executive{}, fmt.Errorf("executive without %q attribute: %w", FieldExecutiveKey, ErrUpstreamData)
	}

	name, _ := a[FieldExecutiveName].(string)
	e := Executive{
		ID:          a[FieldExecutiveKey],
		PortfolioID: a[FieldPortfolioID],
		Name:        name,
	}
	if f.Geometry != nil {
		p := *f.Geometry
		e.Location = &p
	}
	return e, nil
}

// Key is the executive id rendered as a route-name prefix.
func (e Executive) Key() string { return KeyOf(e.ID) }
