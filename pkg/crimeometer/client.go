package crimeometer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.crimeometer.com/v1"

// Lookup policy. These are deliberately constants, not request parameters:
// every waypoint in every route is queried with the same window so scores
// stay comparable across a run.
const (
	radiusMiles  = 0.25
	lookbackDays = 14
	maxIncidents = 5
)

// Client performs Crimeometer incident lookups.
type Client interface {
	Incidents(ctx context.Context, latitude, longitude float64) (*IncidentsResponse, error)
}

// IncidentsResponse is the parsed raw-data response for one point query.
type IncidentsResponse struct {
	TotalIncidents int        `json:"total_incidents"`
	Incidents      []Incident `json:"incidents"`
}

// Incident is a single record as returned by the provider.
type Incident struct {
	Offense     string `json:"incident_offense"`
	Date        string `json:"incident_date"`
	Description string `json:"incident_offense_detail_description"`
}

// APIError is a non-2xx upstream response. Callers use StatusCode to
// distinguish rate limiting (429) from other failures.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crimeometer: upstream status %d: %s", e.StatusCode, e.Body)
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

// WithRateLimit overrides the default client-side request rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewClient creates a Crimeometer client. The default rate limit matches the
// provider's free-tier ceiling; bursts cover one route's waypoint fan-out.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Incidents(ctx context.Context, latitude, longitude float64) (*IncidentsResponse, error) {
	if c.apiKey == "" {
		return nil, eris.New("crimeometer: api key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crimeometer: rate limit wait")
	}

	start, end := lookbackWindow(c.now(), lookbackDays)
	params := url.Values{
		"lat":          {strconv.FormatFloat(latitude, 'f', -1, 64)},
		"lon":          {strconv.FormatFloat(longitude, 'f', -1, 64)},
		"distance":     {fmt.Sprintf("%gmi", radiusMiles)},
		"datetime_ini": {start},
		"datetime_end": {end},
		"page":         {"1"},
	}

	reqURL := c.baseURL + "/incidents/raw-data?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crimeometer: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crimeometer: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "crimeometer: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return parseIncidents(body)
}

// parseIncidents handles the provider's wire shape: a JSON array with a
// single stats element. An empty array means no incidents in the window.
func parseIncidents(body []byte) (*IncidentsResponse, error) {
	var pages []IncidentsResponse
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, eris.Wrap(err, "crimeometer: unmarshal response")
	}

	if len(pages) == 0 {
		return &IncidentsResponse{}, nil
	}

	result := pages[0]
	if len(result.Incidents) > maxIncidents {
		result.Incidents = result.Incidents[:maxIncidents]
	}
	return &result, nil
}

// lookbackWindow formats the query window the way the provider expects,
// midnight-aligned on the start day.
func lookbackWindow(now time.Time, days int) (string, string) {
	const layout = "2006-01-02T00:00:00.000Z"
	start := now.UTC().AddDate(0, 0, -days)
	return start.Format(layout), now.UTC().Format(layout)
}
