package domain

import "errors"

// Error taxonomy shared by every layer. Adapters join one of these with the
// underlying cause so callers can classify failures with errors.Is.
var (
	// ErrConfig marks missing or malformed configuration. Never retried.
	ErrConfig = errors.New("configuration error")

	// ErrUpstreamData marks records from the feature service that cannot be
	// transformed (bad date token, missing geometry, ...).
	ErrUpstreamData = errors.New("upstream data error")

	// ErrTransport marks failed calls to the feature service, geocoder or engine.
	ErrTransport = errors.New("transport error")
)
