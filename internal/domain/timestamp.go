package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// RevenueDateSentinel replaces absent or non-positive revenue timestamps.
var RevenueDateSentinel = time.Date(1976, time.January, 1, 0, 0, 0, 0, time.UTC)

// TimestampToDate converts a feature-service epoch-milliseconds value to a UTC
// time. nil and values <= 0 map to RevenueDateSentinel.
func TimestampToDate(v any) (time.Time, error) {
	ms, ok, err := epochMillis(v)
	if err != nil {
		return time.Time{}, err
	}
	if !ok || ms <= 0 {
		return RevenueDateSentinel, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}

func epochMillis(v any) (int64, bool, error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return floatMillis(t)
	case float32:
		return floatMillis(float64(t))
	case int:
		return int64(t), true, nil
	case int32:
		return int64(t), true, nil
	case int64:
		return t, true, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("timestamp %q: %w", t.String(), ErrUpstreamData)
		}
		return floatMillis(f)
	default:
		return 0, false, fmt.Errorf("timestamp of type %T is not numeric: %w", v, ErrUpstreamData)
	}
}

// floatMillis rejects values int64 cannot hold; the conversion would
// otherwise yield an arbitrary date.
func floatMillis(f float64) (int64, bool, error) {
	if math.IsNaN(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false, fmt.Errorf("timestamp %v out of range: %w", f, ErrUpstreamData)
	}
	return int64(f), true, nil
}
