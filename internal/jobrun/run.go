// Package jobrun holds the identity and parameters of one batch run. A Run is
// built once at process start and handed to every component; it is never
// mutated afterwards.
package jobrun

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"visit-route-service/internal/config"
	"visit-route-service/internal/domain"

	"github.com/google/uuid"
)

type Run struct {
	id          uuid.UUID
	processName string
	generatedAt time.Time
	planDate    time.Time
	location    *time.Location
	params      config.Params
}

// New builds the run context. The plan date is params.RouteDate when set,
// otherwise the day after generatedAt in loc.
func New(processName string, generatedAt time.Time, loc *time.Location, params config.Params) (*Run, error) {
	if strings.TrimSpace(processName) == "" {
		return nil, errors.New("new run: process name must be non-empty")
	}
	if loc == nil {
		loc = time.UTC
	}

	generatedAt = generatedAt.In(loc)
	planDate := time.Date(generatedAt.Year(), generatedAt.Month(), generatedAt.Day()+1, 0, 0, 0, 0, loc)
	if params.RouteDate != "" {
		d, err := domain.ParseRouteDate("#"+params.RouteDate, loc)
		if err != nil {
			return nil, fmt.Errorf("new run: route_date %q: %w", params.RouteDate, errors.Join(domain.ErrConfig, err))
		}
		planDate = d
	}

	return &Run{
		id:          uuid.New(),
		processName: processName,
		generatedAt: generatedAt,
		planDate:    planDate,
		location:    loc,
		params:      params,
	}, nil
}

func (r *Run) ID() string                { return r.id.String() }
func (r *Run) ProcessName() string       { return r.processName }
func (r *Run) GeneratedAt() time.Time    { return r.generatedAt }
func (r *Run) PlanDate() time.Time       { return r.planDate }
func (r *Run) Location() *time.Location  { return r.location }
func (r *Run) Params() config.Params     { return r.params }
func (r *Run) DateToken() string         { return domain.RouteDateToken(r.planDate) }
func (r *Run) RouteName(p string) string { return domain.FormatRouteName(p, r.planDate) }

// FullName is "<process>-YYYY-M-D-H-Min-S" without zero padding. It names the
// staging working area and correlates notifications.
func (r *Run) FullName() string {
	t := r.generatedAt
	return fmt.Sprintf("%s-%d-%d-%d-%d-%d-%d",
		r.processName, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}
