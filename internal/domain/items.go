package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UniqueValues returns the distinct values stored under key, in first-seen
// order. Items without the key, or with a nil value, are skipped.
func UniqueValues(key string, items []map[string]any) []any {
	seen := make(map[any]struct{}, len(items))
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}

		k := hashable(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// KeyOf renders a scalar attribute as a join key so that 7, 7.0 and "7"
// coming from different services compare equal.
func KeyOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// ToFloat reads a numeric attribute.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func hashable(v any) any {
	switch v.(type) {
	case string, bool, float64, float32, int, int32, int64, json.Number:
		return v
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
