package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"visit-route-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// Route generation tool discriminators.
const (
	ToolVRP   = "VRP"
	ToolRoute = "Route"
)

// Staging column types understood by the staging store.
const (
	FieldText      = "text"
	FieldInteger   = "integer"
	FieldDouble    = "double"
	FieldTimestamp = "timestamp"
	FieldBoolean   = "boolean"
)

// FieldMapping maps a record attribute onto a staging column.
type FieldMapping struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Type   string `yaml:"type"`
}

// SourceName is the attribute read for this column.
func (f FieldMapping) SourceName() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

// Params are the per-run parameters.
type Params struct {
	SchedulesFeatureURL    string `yaml:"schedules_feature_url"`
	LeadsFeatureURL        string `yaml:"leads_feature_url"`
	ExecutiveFeatureURL    string `yaml:"executive_feature_url"`
	WorkAreasFeatureURL    string `yaml:"work_areas_feature_url"`
	RoutesResultFeatureURL string `yaml:"routes_result_feature_url"`

	ServiceTimeMinutes int    `yaml:"service_time_minutes"`
	TypeTool           string `yaml:"type_tool"`

	ScheduleWhere        string         `yaml:"schedule_where"`
	GeocodeWhere         string         `yaml:"geocode_where"`
	AddressField         string         `yaml:"address_field"`
	CompaniesStagingPath string         `yaml:"companies_staging_path"`
	FieldMapping         []FieldMapping `yaml:"field_mapping"`

	MaxOrderCount           int     `yaml:"max_order_count"`
	MaxTotalDistanceKm      float64 `yaml:"max_total_distance_km"`
	BreakServiceTimeMinutes int     `yaml:"break_service_time_minutes"`
	AverageSpeedKmh         float64 `yaml:"average_speed_kmh"`
	RouteDate               string  `yaml:"route_date"`
}

// LoadParams reads, defaults and validates the run parameters file.
func LoadParams(path string) (Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("load params: read %q: %w", path, errors.Join(domain.ErrConfig, err))
	}
	return ParseParams(raw)
}

func ParseParams(raw []byte) (Params, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var p Params
	if err := dec.Decode(&p); err != nil {
		return Params{}, fmt.Errorf("parse params: %w", errors.Join(domain.ErrConfig, err))
	}

	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p *Params) applyDefaults() {
	if p.ScheduleWhere == "" {
		p.ScheduleWhere = "1=1"
	}
	if p.GeocodeWhere == "" {
		p.GeocodeWhere = "geocoded = 0"
	}
	if p.AddressField == "" {
		p.AddressField = "endereco"
	}
	if p.CompaniesStagingPath == "" {
		p.CompaniesStagingPath = "companies"
	}
	if len(p.FieldMapping) == 0 {
		p.FieldMapping = DefaultCompanyFieldMapping()
	}
	if p.MaxOrderCount == 0 {
		p.MaxOrderCount = 12
	}
	if p.MaxTotalDistanceKm == 0 {
		p.MaxTotalDistanceKm = 200
	}
	if p.BreakServiceTimeMinutes == 0 {
		p.BreakServiceTimeMinutes = 60
	}
	if p.AverageSpeedKmh == 0 {
		p.AverageSpeedKmh = 30
	}
}

// Validate reports every missing or malformed key at once.
func (p Params) Validate() error {
	var problems []string

	required := []struct{ key, value string }{
		{"schedules_feature_url", p.SchedulesFeatureURL},
		{"leads_feature_url", p.LeadsFeatureURL},
		{"executive_feature_url", p.ExecutiveFeatureURL},
		{"work_areas_feature_url", p.WorkAreasFeatureURL},
		{"type_tool", p.TypeTool},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.key+" is required")
		}
	}

	if p.ServiceTimeMinutes <= 0 {
		problems = append(problems, "service_time_minutes must be positive")
	}
	if p.MaxOrderCount < 0 || p.MaxTotalDistanceKm < 0 || p.BreakServiceTimeMinutes < 0 || p.AverageSpeedKmh < 0 {
		problems = append(problems, "route limits must not be negative")
	}

	seen := make(map[string]struct{}, len(p.FieldMapping))
	for i, f := range p.FieldMapping {
		if strings.TrimSpace(f.Name) == "" {
			problems = append(problems, fmt.Sprintf("field_mapping[%d]: name is required", i))
			continue
		}
		if _, ok := seen[f.Name]; ok {
			problems = append(problems, fmt.Sprintf("field_mapping[%d]: duplicate name %q", i, f.Name))
		}
		seen[f.Name] = struct{}{}

		switch f.Type {
		case FieldText, FieldInteger, FieldDouble, FieldTimestamp, FieldBoolean:
		default:
			problems = append(problems, fmt.Sprintf("field_mapping[%d]: unknown type %q", i, f.Type))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("validate params: %s: %w", strings.Join(problems, "; "), domain.ErrConfig)
	}
	return nil
}

// DefaultCompanyFieldMapping stages every attribute the synchronizer derives.
func DefaultCompanyFieldMapping() []FieldMapping {
	return []FieldMapping{
		{Name: "id", Type: FieldText},
		{Name: "carteiraId", Type: FieldText},
		{Name: "executiveId", Type: FieldText},
		{Name: "latitude", Type: FieldDouble},
		{Name: "longitude", Type: FieldDouble},
		{Name: "revenue", Type: FieldDouble},
		{Name: "highestRevenueDate", Type: FieldTimestamp},
		{Name: "alertType", Type: FieldText},
		{Name: "serviceTimeMinutes", Type: FieldInteger},
		{Name: "DeliveryQuantity_1", Type: FieldInteger},
		{Name: "DeliveryQuantity_2", Type: FieldInteger},
	}
}
