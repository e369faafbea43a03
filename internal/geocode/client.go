package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/totallytravels/backend/internal/cache"
	"github.com/totallytravels/backend/internal/models"
	"github.com/totallytravels/backend/internal/observability"
)

// ErrUpstream is returned when the geocoding API call fails at transport
// level or responds with a non-success status.
var ErrUpstream = errors.New("geocoding upstream failure")

// Result is a tagged geocode outcome. A cached Result with Found=false
// records a negative lookup, so repeat misses are served without a new
// network call; it is distinguishable from "nothing cached yet".
type Result struct {
	Location models.NamedLocation `json:"location"`
	Found    bool                 `json:"found"`
}

// Geocoder resolves a free-text place name to a named location.
type Geocoder interface {
	Lookup(ctx context.Context, placeName string) (Result, error)
}

// Client calls the Open-Meteo geocoding API with a 24h result cache.
// Cache keys are the query string as submitted, case-sensitive.
type Client struct {
	apiURL     string
	httpClient *http.Client
	cache      cache.Cache[Result]
	ttl        time.Duration
}

// NewClient returns a geocoding client. httpClient carries no timeout of its
// own; calls run under the inbound request context only.
func NewClient(apiURL string, httpClient *http.Client, store cache.Cache[Result], ttl time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: httpClient,
		cache:      store,
		ttl:        ttl,
	}
}

type searchResponse struct {
	Results []candidate `json:"results"`
}

type candidate struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Admin1      string  `json:"admin1"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
}

// Lookup resolves placeName to a Result, consulting the cache first.
// Negative outcomes (zero candidates) are cached for the same TTL as hits.
func (c *Client) Lookup(ctx context.Context, placeName string) (Result, error) {
	cached, ok, err := c.cache.Get(ctx, placeName)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("geocode", "get").Inc()
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("geocode").Inc()
		return cached, nil
	}

	result, err := c.callAPI(ctx, placeName)
	if err != nil {
		return Result{}, err
	}

	if setErr := c.cache.Set(ctx, placeName, result, c.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("geocode", "set").Inc()
	}
	return result, nil
}

func (c *Client) callAPI(ctx context.Context, placeName string) (Result, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, placeName)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("geocoding", "error").Inc()
		return Result{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues("geocoding", "error").Inc()
		observability.UpstreamCallDuration.WithLabelValues("geocoding", "error").Observe(duration)
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := observability.StatusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues("geocoding", status).Inc()
	observability.UpstreamCallDuration.WithLabelValues("geocoding", status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response body: %v", ErrUpstream, err)
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Result{}, fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}

	if len(apiResp.Results) == 0 {
		return Result{Found: false}, nil
	}

	hit := pickCandidate(apiResp.Results)
	return Result{
		Location: models.NamedLocation{
			Coordinate: models.Coordinate{Latitude: hit.Latitude, Longitude: hit.Longitude},
			Label:      buildLabel(hit),
		},
		Found: true,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, placeName string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("name", placeName)
	params.Set("count", "5")
	params.Set("language", "en")
	params.Set("format", "json")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// pickCandidate applies the disambiguation tie-break: first candidate with
// country code PK, else first whose country name is pakistan, else the first
// in the returned order.
func pickCandidate(results []candidate) candidate {
	for _, r := range results {
		if strings.ToUpper(r.CountryCode) == "PK" {
			return r
		}
	}
	for _, r := range results {
		if strings.ToLower(r.Country) == "pakistan" {
			return r
		}
	}
	return results[0]
}

// buildLabel joins the place name, admin region, and country with ", ",
// skipping absent parts.
func buildLabel(hit candidate) string {
	parts := []string{hit.Name}
	if hit.Admin1 != "" {
		parts = append(parts, hit.Admin1)
	}
	if hit.Country != "" {
		parts = append(parts, hit.Country)
	}
	return strings.Join(parts, ", ")
}
