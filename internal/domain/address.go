package domain

import "strings"

// NormalizeAddress collapses whitespace so equal addresses share a cache key.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key renders the point as a stable "lon,lat" string for cache keys.
func (p Point) Key() string {
	return KeyOf(p.X) + "," + KeyOf(p.Y)
}
