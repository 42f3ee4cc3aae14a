package domain

// Feature is a single record returned by the feature service: an attribute
// bag plus an optional point geometry.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *Point         `json:"geometry,omitempty"`
}

// CloneAttributes returns a shallow copy of the attribute map so callers can
// transform a record without touching the slice another component holds.
func (f Feature) CloneAttributes() map[string]any {
	out := make(map[string]any, len(f.Attributes)+8)
	for k, v := range f.Attributes {
		out[k] = v
	}
	return out
}

// Attributes extracts the attribute maps of a feature list, preserving order.
func Attributes(features []Feature) []map[string]any {
	out := make([]map[string]any, 0, len(features))
	for _, f := range features {
		out = append(out, f.Attributes)
	}
	return out
}
