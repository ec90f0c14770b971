package maps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// Client performs Google Directions API operations.
type Client interface {
	Directions(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
}

// DirectionsRequest asks for driving route alternatives between two
// addresses. IncludeTraffic adds a departure_time so legs carry
// duration_in_traffic.
type DirectionsRequest struct {
	Origin         string
	Destination    string
	IncludeTraffic bool
}

// DirectionsResponse is the typed Directions API response. Routes is empty
// when the provider finds no path (ZERO_RESULTS).
type DirectionsResponse struct {
	Routes []APIRoute `json:"routes"`
	Status string     `json:"status"`
}

// APIRoute is one route alternative on the wire.
type APIRoute struct {
	Summary          string   `json:"summary"`
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
}

// Leg is a single leg of a route. Direct A-to-B requests have exactly one.
type Leg struct {
	Distance          TextValue `json:"distance"`
	Duration          TextValue `json:"duration"`
	DurationInTraffic TextValue `json:"duration_in_traffic"`
	StartAddress      string    `json:"start_address"`
	EndAddress        string    `json:"end_address"`
}

// TextValue is the API's value-with-display pair; Value is meters for
// distances and seconds for durations.
type TextValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// Polyline holds an encoded polyline string.
type Polyline struct {
	Points string `json:"points"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Directions API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Directions(ctx context.Context, dreq DirectionsRequest) (*DirectionsResponse, error) {
	if c.apiKey == "" {
		return nil, eris.New("maps: api key not configured")
	}

	params := url.Values{
		"origin":       {dreq.Origin},
		"destination":  {dreq.Destination},
		"mode":         {"driving"},
		"alternatives": {"true"},
		"key":          {c.apiKey},
	}
	if dreq.IncludeTraffic {
		params.Set("departure_time", "now")
		params.Set("traffic_model", "best_guess")
	}

	reqURL := c.baseURL + "/directions/json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "maps: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "maps: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "maps: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("maps: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result DirectionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "maps: unmarshal response")
	}

	switch result.Status {
	case "OK":
		return &result, nil
	case "ZERO_RESULTS":
		// No path between the addresses. Not an error: callers get an
		// empty alternative list.
		result.Routes = nil
		return &result, nil
	default:
		return nil, eris.Errorf("maps: directions status %s", result.Status)
	}
}
