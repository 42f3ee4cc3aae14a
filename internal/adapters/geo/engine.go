// Package geo prepares leads for routing: address clean-up and geocoding
// against the leads feature service.
package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"visit-route-service/internal/config"
	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

// Engine is the feature-service backed ports.GeoEngine.
type Engine struct {
	features ports.FeatureClient
	geocoder ports.Geocoder
	params   config.Params
	log      logrus.FieldLogger
}

func NewEngine(features ports.FeatureClient, geocoder ports.Geocoder, params config.Params, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{features: features, geocoder: geocoder, params: params, log: log}
}

// Geocode resolves coordinates for leads matching geocode_where and writes
// them back (geometry, latitude, longitude, geocoded = 1). Leads whose
// address cannot be resolved are left untouched.
func (e *Engine) Geocode(ctx context.Context) (err error) {
	defer obs.Time(ctx, "geo.Geocode")(&err)

	if e.geocoder == nil {
		return fmt.Errorf("geocode leads: no geocoder configured: %w", domain.ErrConfig)
	}

	leads, err := e.features.Fetch(ctx, e.params.LeadsFeatureURL, ports.FetchOptions{Where: e.params.GeocodeWhere})
	if err != nil {
		return fmt.Errorf("geocode leads: fetch: %w", err)
	}

	addrOf := make(map[int]string, len(leads))
	addresses := make([]string, 0, len(leads))
	for i, f := range leads {
		s, _ := f.Attributes[e.params.AddressField].(string)
		if a := domain.NormalizeAddress(s); a != "" {
			addrOf[i] = a
			addresses = append(addresses, a)
		}
	}
	if len(addresses) == 0 {
		e.log.WithField("leads", len(leads)).Info("geocode: nothing to resolve")
		return nil
	}

	points, err := e.geocoder.Geocode(ctx, addresses)
	if err != nil {
		return fmt.Errorf("geocode leads: %w", err)
	}

	var updates []domain.Feature
	unresolved := 0
	for i, f := range leads {
		a, ok := addrOf[i]
		if !ok {
			unresolved++
			continue
		}
		p, ok := points[a]
		if !ok {
			unresolved++
			continue
		}
		geom := p
		updates = append(updates, domain.Feature{
			Attributes: map[string]any{
				domain.FieldObjectID:  f.Attributes[domain.FieldObjectID],
				domain.FieldLatitude:  p.Latitude(),
				domain.FieldLongitude: p.Longitude(),
				domain.FieldGeocoded:  1,
			},
			Geometry: &geom,
		})
	}

	e.log.WithFields(logrus.Fields{
		"leads":      len(leads),
		"resolved":   len(updates),
		"unresolved": unresolved,
	}).Info("geocode: addresses resolved")

	return e.push(ctx, "geocode leads", updates)
}

// NormalizeCompanies collapses whitespace in the address field of every lead
// that has one, pushing only the records that changed.
func (e *Engine) NormalizeCompanies(ctx context.Context) (err error) {
	defer obs.Time(ctx, "geo.NormalizeCompanies")(&err)

	where := e.params.AddressField + " IS NOT NULL"
	leads, err := e.features.Fetch(ctx, e.params.LeadsFeatureURL, ports.FetchOptions{Where: where})
	if err != nil {
		return fmt.Errorf("normalize companies: fetch: %w", err)
	}

	var updates []domain.Feature
	for _, f := range leads {
		raw, ok := f.Attributes[e.params.AddressField].(string)
		if !ok {
			continue
		}
		if norm := domain.NormalizeAddress(raw); norm != raw {
			updates = append(updates, domain.Feature{Attributes: map[string]any{
				domain.FieldObjectID:  f.Attributes[domain.FieldObjectID],
				e.params.AddressField: norm,
			}})
		}
	}

	e.log.WithFields(logrus.Fields{"leads": len(leads), "changed": len(updates)}).Info("normalize: addresses checked")

	return e.push(ctx, "normalize companies", updates)
}

func (e *Engine) push(ctx context.Context, op string, updates []domain.Feature) error {
	if len(updates) == 0 {
		return nil
	}

	res, err := e.features.Push(ctx, e.params.LeadsFeatureURL, ports.PushRequest{Updates: updates})
	if err != nil {
		return fmt.Errorf("%s: push: %w", op, err)
	}
	if n := res.Failed(); n > 0 {
		var msgs []string
		for _, o := range res.Updates {
			if !o.Success && o.Error != "" {
				msgs = append(msgs, o.Error)
			}
		}
		return fmt.Errorf("%s: %d of %d updates rejected (%s): %w",
			op, n, len(updates), strings.Join(msgs, "; "), domain.ErrTransport)
	}
	return nil
}
