package domain

import "fmt"

const (
	FieldWorkAreaID = "id"
	FieldRegion     = "polo"
	FieldPortfolio  = "carteira"
	FieldInactive   = "inativo"
)

// WorkAreaActivePredicate selects work areas with a region and a portfolio
// that are not flagged inactive.
var WorkAreaActivePredicate = fmt.Sprintf(
	"%s IS NOT NULL AND %s IS NOT NULL AND %s = 0",
	FieldRegion, FieldPortfolio, FieldInactive,
)

// WorkArea ties a portfolio (carteira) to a region (polo).
type WorkArea struct {
	ID        any
	Region    string
	Portfolio any
	Active    bool
}

func WorkAreaFromFeature(f Feature) (WorkArea, error) {
	a := f.Attributes
	if a[FieldRegion] == nil || a[FieldPortfolio] == nil {
		return WorkArea{}, fmt.Errorf("work area %v: region and portfolio are required: %w", a[FieldWorkAreaID], ErrUpstreamData)
	}

	inactive, _ := ToFloat(a[FieldInactive])
	return WorkArea{
		ID:        a[FieldWorkAreaID],
		Region:    KeyOf(a[FieldRegion]),
		Portfolio: a[FieldPortfolio],
		Active:    inactive == 0,
	}, nil
}
