package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"visit-route-service/internal/config"
	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

// SchedulePredicate builds the where clause selecting active schedules.
type SchedulePredicate func(ctx context.Context) (string, error)

// CompanySynchronizer pulls the routeable and scheduled companies from the
// leads service, enriches them and stages them for route generation.
type CompanySynchronizer struct {
	features          ports.FeatureClient
	staging           ports.StagingStore
	params            config.Params
	log               logrus.FieldLogger
	schedulePredicate SchedulePredicate
}

func NewCompanySynchronizer(
	features ports.FeatureClient,
	staging ports.StagingStore,
	workAreas *WorkAreaCache,
	params config.Params,
	log logrus.FieldLogger,
) *CompanySynchronizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CompanySynchronizer{
		features:          features,
		staging:           staging,
		params:            params,
		log:               log,
		schedulePredicate: ActiveSchedulePredicate(params.ScheduleWhere, workAreas),
	}
}

// WithSchedulePredicate replaces the schedule-activity predicate.
func (s *CompanySynchronizer) WithSchedulePredicate(p SchedulePredicate) *CompanySynchronizer {
	cp := *s
	cp.schedulePredicate = p
	return &cp
}

// ActiveSchedulePredicate restricts base to schedules whose portfolio
// belongs to an active work area. With no active work area nothing matches.
func ActiveSchedulePredicate(base string, workAreas *WorkAreaCache) SchedulePredicate {
	return func(ctx context.Context) (string, error) {
		portfolios, err := workAreas.Portfolios(ctx)
		if err != nil {
			return "", fmt.Errorf("schedule predicate: %w", err)
		}
		where := base
		if where == "" {
			where = "1=1"
		}
		if len(portfolios) == 0 {
			return "(" + where + ") AND 1=0", nil
		}
		return "(" + where + ") AND " + inClause(domain.FieldPortfolioID, portfolios), nil
	}
}

// CompanyFilter selects routeable companies plus the scheduled ones.
func CompanyFilter(scheduledIDs []any) string {
	base := domain.FieldRouteable + " = true"
	if len(scheduledIDs) == 0 {
		return base
	}
	return base + " OR " + inClause(domain.FieldCompanyID, scheduledIDs)
}

func (s *CompanySynchronizer) Synchronize(ctx context.Context) (err error) {
	defer obs.Time(ctx, "companies.Synchronize")(&err)

	where, err := s.schedulePredicate(ctx)
	if err != nil {
		return fmt.Errorf("synchronize companies: %w", err)
	}

	schedules, err := s.features.Fetch(ctx, s.params.SchedulesFeatureURL, ports.FetchOptions{
		Where:          where,
		DistinctField:  domain.FieldScheduleCompanyID,
		ReturnGeometry: false,
	})
	if err != nil {
		return fmt.Errorf("synchronize companies: fetch schedules: %w", err)
	}
	scheduled := domain.UniqueValues(domain.FieldScheduleCompanyID, domain.Attributes(schedules))

	companies, err := s.features.Fetch(ctx, s.params.LeadsFeatureURL, ports.FetchOptions{
		Where:          CompanyFilter(scheduled),
		ReturnGeometry: true,
	})
	if err != nil {
		return fmt.Errorf("synchronize companies: fetch companies: %w", err)
	}

	executives, err := s.features.Fetch(ctx, s.params.ExecutiveFeatureURL, ports.FetchOptions{
		Where:          "1=1",
		ReturnGeometry: false,
	})
	if err != nil {
		return fmt.Errorf("synchronize companies: fetch executives: %w", err)
	}

	// First executive per portfolio with both keys set wins.
	execByPortfolio := make(map[string]any, len(executives))
	for _, e := range executives {
		p := e.Attributes[domain.FieldPortfolioID]
		if p == nil || e.Attributes[domain.FieldExecutiveKey] == nil {
			continue
		}
		if _, ok := execByPortfolio[domain.KeyOf(p)]; !ok {
			execByPortfolio[domain.KeyOf(p)] = e.Attributes[domain.FieldExecutiveKey]
		}
	}

	records := make([]map[string]any, 0, len(companies))
	for _, f := range companies {
		rec, err := s.transform(f, execByPortfolio)
		if err != nil {
			return fmt.Errorf("synchronize companies: %w", err)
		}
		records = append(records, rec)
	}

	s.log.WithFields(logrus.Fields{
		"scheduled":  len(scheduled),
		"companies":  len(records),
		"executives": len(executives),
	}).Info("companies transformed")

	if err := s.staging.Write(ctx, records, s.params.CompaniesStagingPath, s.params.FieldMapping); err != nil {
		return fmt.Errorf("synchronize companies: stage: %w", err)
	}
	return nil
}

// transform works on a copy of the attributes; the fetched feature is not
// modified.
func (s *CompanySynchronizer) transform(f domain.Feature, execByPortfolio map[string]any) (map[string]any, error) {
	rec := f.CloneAttributes()
	id := rec[domain.FieldCompanyID]

	delete(rec, domain.FieldObjectID)
	delete(rec, domain.FieldGlobalID)

	if f.Geometry == nil {
		return nil, fmt.Errorf("company %v has no geometry: %w", id, domain.ErrUpstreamData)
	}
	rec[domain.FieldLatitude] = f.Geometry.Latitude()
	rec[domain.FieldLongitude] = f.Geometry.Longitude()

	if p := rec[domain.FieldPortfolioID]; p != nil {
		if exec, ok := execByPortfolio[domain.KeyOf(p)]; ok {
			rec[domain.FieldExecutiveID] = exec
		}
	}

	date, err := domain.TimestampToDate(rec[domain.FieldHighestRevenueDate])
	if err != nil {
		return nil, fmt.Errorf("company %v: %s: %w", id, domain.FieldHighestRevenueDate, err)
	}
	rec[domain.FieldHighestRevenueDate] = date

	rec[domain.FieldServiceTime] = s.params.ServiceTimeMinutes

	q1, q2, ambiguous := domain.DeliveryQuantities(rec[domain.FieldAlertType])
	if ambiguous {
		s.log.WithField("company", id).Warn("blank alert type treated as no alert")
	}
	rec[domain.FieldDeliveryQuantity1] = q1
	rec[domain.FieldDeliveryQuantity2] = q2

	return rec, nil
}
