package services

import (
	"encoding/json"
	"strings"

	"visit-route-service/internal/domain"
)

// sqlLiteral renders a value for a feature-service where clause. Numbers
// are written bare; everything else is a single-quoted string with quotes
// doubled.
func sqlLiteral(v any) string {
	switch t := v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return domain.KeyOf(t)
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(domain.KeyOf(t), "'", "''") + "'"
	}
}

// inClause renders "field IN (v1, v2, ...)" keeping the order of values.
func inClause(field string, values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, sqlLiteral(v))
	}
	return field + " IN (" + strings.Join(parts, ", ") + ")"
}
