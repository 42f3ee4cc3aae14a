package geo

import "context"

// Double is a GeoEngine test double. Calls lists the steps in invocation order.
type Double struct {
	Calls []string

	GeocodeErr   error
	NormalizeErr error
	// GeocodePanic makes Geocode panic with this value.
	GeocodePanic any
}

func (d *Double) Geocode(context.Context) error {
	d.Calls = append(d.Calls, "geocode")
	if d.GeocodePanic != nil {
		panic(d.GeocodePanic)
	}
	return d.GeocodeErr
}

func (d *Double) NormalizeCompanies(context.Context) error {
	d.Calls = append(d.Calls, "normalize")
	return d.NormalizeErr
}
