package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/totallytravels/backend/internal/cache"
	"github.com/totallytravels/backend/internal/models"
	"github.com/totallytravels/backend/internal/observability"
)

// ErrUpstream is returned when the forecast API call fails at transport
// level, responds with a non-success status, or the response is missing
// the current-conditions payload.
var ErrUpstream = errors.New("weather upstream failure")

// Fetcher retrieves current conditions for a coordinate pair.
type Fetcher interface {
	FetchCurrent(ctx context.Context, latitude, longitude float64) (models.CurrentConditions, error)
}

// Client calls the Open-Meteo forecast API with a short-TTL cache keyed by
// coordinate pair.
type Client struct {
	apiURL     string
	httpClient *http.Client
	cache      cache.Cache[models.CurrentConditions]
	ttl        time.Duration
}

// NewClient returns a forecast client. httpClient carries no timeout of its
// own; calls run under the inbound request context only.
func NewClient(apiURL string, httpClient *http.Client, store cache.Cache[models.CurrentConditions], ttl time.Duration) *Client {
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

// CacheKey builds the weather cache key from a coordinate pair. Coordinates
// use shortest round-trip formatting and are not rounded, so textually
// different inputs for the same place ("35.30" vs "35.2976") produce
// distinct entries.
func CacheKey(latitude, longitude float64) string {
	return strconv.FormatFloat(latitude, 'f', -1, 64) + "," + strconv.FormatFloat(longitude, 'f', -1, 64)
}

type forecastResponse struct {
	Current *models.CurrentConditions `json:"current"`
}

// FetchCurrent returns current conditions for the coordinate pair,
// consulting the cache first. The cached payload is returned verbatim.
func (c *Client) FetchCurrent(ctx context.Context, latitude, longitude float64) (models.CurrentConditions, error) {
	key := CacheKey(latitude, longitude)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("weather", "get").Inc()
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("weather").Inc()
		return cached, nil
	}

	current, err := c.callAPI(ctx, latitude, longitude)
	if err != nil {
		return models.CurrentConditions{}, err
	}

	if setErr := c.cache.Set(ctx, key, current, c.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("weather", "set").Inc()
	}
	return current, nil
}

func (c *Client) callAPI(ctx context.Context, latitude, longitude float64) (models.CurrentConditions, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, latitude, longitude)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues("forecast", "error").Inc()
		return models.CurrentConditions{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues("forecast", "error").Inc()
		observability.UpstreamCallDuration.WithLabelValues("forecast", "error").Observe(duration)
		return models.CurrentConditions{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := observability.StatusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues("forecast", status).Inc()
	observability.UpstreamCallDuration.WithLabelValues("forecast", status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.CurrentConditions{}, fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CurrentConditions{}, fmt.Errorf("%w: read response body: %v", ErrUpstream, err)
	}

	var apiResp forecastResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.CurrentConditions{}, fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}

	if apiResp.Current == nil {
		return models.CurrentConditions{}, fmt.Errorf("%w: response missing current conditions", ErrUpstream)
	}

	return *apiResp.Current, nil
}

func (c *Client) buildRequest(ctx context.Context, latitude, longitude float64) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	params.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")
	params.Set("timezone", "auto")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}
