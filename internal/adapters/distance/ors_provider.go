package distance

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"visit-route-service/internal/platform/httpx"
	"visit-route-service/internal/ports"
)

// ORSProvider implements Geocoder and DistanceMatrixProvider using
// OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - Persistent distance matrix caching
//   - External API calls with retry/backoff
type ORSProvider struct {
	http          *httpx.Client
	apiKey        string
	baseURL       string
	profile       string
	country       string
	distanceCache ports.DistanceCache
	geocodeCache  ports.GeocodeCache
}

// Either cache may be nil.
func NewORSProvider(
	apiKey string,
	distanceCache ports.DistanceCache,
	geocodeCache ports.GeocodeCache,
) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	provider := &ORSProvider{
		http:          httpx.New(10 * time.Second),
		apiKey:        apiKey,
		baseURL:       "https://api.openrouteservice.org",
		profile:       "driving-car",
		country:       "BR",
		distanceCache: distanceCache,
		geocodeCache:  geocodeCache,
	}

	return provider, nil
}

// WithEndpoint points the provider at another ORS deployment (or a test server).
func (o *ORSProvider) WithEndpoint(baseURL string, client *httpx.Client) *ORSProvider {
	cp := *o
	cp.baseURL = baseURL
	if client != nil {
		cp.http = client
	}
	return &cp
}

func (o *ORSProvider) newRequest(ctx context.Context, method, url string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
