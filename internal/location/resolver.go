package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/totallytravels/backend/internal/geocode"
	"github.com/totallytravels/backend/internal/models"
)

// ErrInvalidRequest is returned when none of q, city, or a lat/lon pair is usable.
var ErrInvalidRequest = errors.New("no usable location input")

// ErrNotFound is returned when a free-text query geocodes to zero candidates.
var ErrNotFound = errors.New("location not found")

// Request carries the raw query-string signals for one lookup. All fields
// are optional; Resolve applies the precedence rules.
type Request struct {
	Lat   string
	Lon   string
	Query string
	City  string
}

// Resolved is the outcome of location resolution: the coordinate the
// forecast call will use plus a display label.
type Resolved struct {
	models.Coordinate
	Label string
}

// Resolver turns a Request into coordinates. Precedence is fixed:
// explicit lat/lon beats free-text query beats known-city key.
type Resolver struct {
	geocoder geocode.Geocoder
}

// NewResolver returns a Resolver using the given geocoder for free-text queries.
func NewResolver(geocoder geocode.Geocoder) *Resolver {
	return &Resolver{geocoder: geocoder}
}

// Resolve applies the precedence rules:
//  1. both lat and lon parse to finite numbers: use them directly; the label
//     falls back from q to city to "Custom location".
//  2. q is non-empty after trimming: geocode it; zero candidates is ErrNotFound.
//  3. city matches the static table: use its fixed entry.
//  4. otherwise ErrInvalidRequest.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolved, error) {
	q := strings.TrimSpace(req.Query)
	city := strings.ToLower(strings.TrimSpace(req.City))

	lat, latOK := parseFinite(req.Lat)
	lon, lonOK := parseFinite(req.Lon)
	if latOK && lonOK {
		label := "Custom location"
		if q != "" {
			label = q
		} else if city != "" {
			label = city
		}
		return Resolved{
			Coordinate: models.Coordinate{Latitude: lat, Longitude: lon},
			Label:      label,
		}, nil
	}

	if q != "" {
		result, err := r.geocoder.Lookup(ctx, q)
		if err != nil {
			return Resolved{}, fmt.Errorf("geocode %q: %w", q, err)
		}
		if !result.Found {
			return Resolved{}, fmt.Errorf("%w: %q", ErrNotFound, q)
		}
		return Resolved{
			Coordinate: result.Location.Coordinate,
			Label:      result.Location.Label,
		}, nil
	}

	if loc, ok := KnownCity(city); ok {
		return Resolved{
			Coordinate: loc.Coordinate,
			Label:      loc.Label,
		}, nil
	}

	return Resolved{}, ErrInvalidRequest
}

// parseFinite parses a numeric string permissively (surrounding whitespace
// tolerated) and rejects NaN and infinities.
func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
