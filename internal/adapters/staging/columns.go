package staging

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"visit-route-service/internal/config"
	"visit-route-service/internal/domain"
)

var unsafeIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// SchemaName derives a Postgres schema name from a run's full name, e.g.
// "visit-routes-2026-10-16-22-5-0" -> "visit_routes_2026_10_16_22_5_0".
func SchemaName(fullName string) string {
	s := unsafeIdent.ReplaceAllString(strings.ToLower(fullName), "_")
	s = strings.Trim(s, "_")
	if len(s) > 63 {
		s = s[:63]
	}
	return s
}

func sqlType(fieldType string) (string, error) {
	switch fieldType {
	case config.FieldText:
		return "TEXT", nil
	case config.FieldInteger:
		return "BIGINT", nil
	case config.FieldDouble:
		return "DOUBLE PRECISION", nil
	case config.FieldTimestamp:
		return "TIMESTAMPTZ", nil
	case config.FieldBoolean:
		return "BOOLEAN", nil
	default:
		return "", fmt.Errorf("unknown field type %q: %w", fieldType, domain.ErrConfig)
	}
}

// columnValue coerces a record attribute to the Go type the column stores.
// Absent attributes are NULL.
func columnValue(v any, f config.FieldMapping) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Type {
	case config.FieldText:
		return domain.KeyOf(v), nil
	case config.FieldInteger:
		n, ok := domain.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("column %q: %v is not an integer", f.Name, v)
		}
		return int64(n), nil
	case config.FieldDouble:
		n, ok := domain.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("column %q: %v is not a number", f.Name, v)
		}
		return n, nil
	case config.FieldTimestamp:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
		t, err := domain.TimestampToDate(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		return t, nil
	case config.FieldBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		n, ok := domain.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("column %q: %v is not a boolean", f.Name, v)
		}
		return n != 0, nil
	default:
		return nil, fmt.Errorf("column %q: unknown field type %q: %w", f.Name, f.Type, domain.ErrConfig)
	}
}

func rowValues(record map[string]any, mapping []config.FieldMapping) ([]any, error) {
	out := make([]any, 0, len(mapping))
	for _, f := range mapping {
		v, err := columnValue(record[f.SourceName()], f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
