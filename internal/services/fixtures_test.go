package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"visit-route-service/internal/config"
	"visit-route-service/internal/domain"
	"visit-route-service/internal/jobrun"
)

const (
	schedulesURL = "https://example.test/schedules/FeatureServer/0"
	leadsURL     = "https://example.test/leads/FeatureServer/0"
	executiveURL = "https://example.test/executives/FeatureServer/0"
	workAreasURL = "https://example.test/workareas/FeatureServer/0"
	resultsURL   = "https://example.test/results/FeatureServer/0"
)

func testParams() config.Params {
	return config.Params{
		SchedulesFeatureURL:     schedulesURL,
		LeadsFeatureURL:         leadsURL,
		ExecutiveFeatureURL:     executiveURL,
		WorkAreasFeatureURL:     workAreasURL,
		RoutesResultFeatureURL:  resultsURL,
		ServiceTimeMinutes:      20,
		TypeTool:                config.ToolRoute,
		ScheduleWhere:           "1=1",
		CompaniesStagingPath:    "companies",
		FieldMapping:            config.DefaultCompanyFieldMapping(),
		MaxOrderCount:           12,
		MaxTotalDistanceKm:      200,
		BreakServiceTimeMinutes: 60,
		AverageSpeedKmh:         30,
		RouteDate:               "20261017",
	}
}

func testRun(t *testing.T, params config.Params) *jobrun.Run {
	t.Helper()
	run, err := jobrun.New("visit-routes", time.Date(2026, 10, 16, 22, 5, 0, 0, time.UTC), time.UTC, params)
	require.NoError(t, err)
	return run
}

func pt(lat, lon float64) *domain.Point {
	p := domain.NewPoint(lat, lon)
	return &p
}

func workArea(id, portfolio any, region string) domain.Feature {
	return domain.Feature{Attributes: map[string]any{
		domain.FieldWorkAreaID: id,
		domain.FieldRegion:     region,
		domain.FieldPortfolio:  portfolio,
		domain.FieldInactive:   float64(0),
	}}
}
