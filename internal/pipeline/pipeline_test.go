package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"

	"github.com/safetravels/safetravels/internal/config"
	"github.com/safetravels/safetravels/pkg/anthropic"
	"github.com/safetravels/safetravels/pkg/crimeometer"
	"github.com/safetravels/safetravels/pkg/maps"
)

// promptContains reports whether any user message in the request carries
// the given substring.
func promptContains(req anthropic.MessageRequest, substr string) bool {
	for _, m := range req.Messages {
		if strings.Contains(m.Content, substr) {
			return true
		}
	}
	return false
}

func testConfig() *config.Config {
	return &config.Config{
		Google:    config.GoogleConfig{IncludeTraffic: false},
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 1024, MaxAttempts: 1},
	}
}

// testPath is roughly 1.3 miles of downtown Chicago; with a 5-mile route it
// samples to exactly two waypoints (start and one via/end point).
func testPath() string {
	coords := [][]float64{{41.878, -87.629}, {41.89, -87.61}}
	return string(polyline.EncodeCoords(coords))
}

func directionsResponse(n int) *maps.DirectionsResponse {
	resp := &maps.DirectionsResponse{Status: "OK"}
	for i := 0; i < n; i++ {
		resp.Routes = append(resp.Routes, maps.APIRoute{
			Summary: fmt.Sprintf("I-%d0 W", i+1),
			Legs: []maps.Leg{{
				Distance:     maps.TextValue{Value: 8047}, // ~5 miles
				Duration:     maps.TextValue{Value: 1200}, // 20 minutes
				StartAddress: "233 S Wacker Dr, Chicago, IL",
				EndAddress:   "600 E Grand Ave, Chicago, IL",
			}},
			OverviewPolyline: maps.Polyline{Points: testPath()},
		})
	}
	return resp
}

func noIncidents() *crimeometer.IncidentsResponse {
	return &crimeometer.IncidentsResponse{TotalIncidents: 0}
}

func TestRun_ThreeRoutesAllSucceed(t *testing.T) {
	ctx := context.Background()

	mapsClient := &mockMapsClient{}
	mapsClient.On("Directions", ctx, mock.AnythingOfType("maps.DirectionsRequest")).
		Return(directionsResponse(3), nil).Once()

	crimeClient := &mockCrimeClient{}
	crimeClient.On("Incidents", mock.Anything, mock.Anything, mock.Anything).
		Return(noIncidents(), nil)

	scores := map[int]int{1: 48, 2: 45, 3: 52}
	aiClient := &mockAnthropicClient{}
	for routeID, score := range scores {
		marker := fmt.Sprintf("Route ID: %d\n", routeID)
		aiClient.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
			return promptContains(req, marker)
		})).Return(riskResponse(fmt.Sprintf(`{"risk_score": %d, "analysis": "Moderate urban corridor."}`, score)), nil).Once()
	}

	orch := New(testConfig(), mapsClient, crimeClient, aiClient)
	result, err := orch.Run(ctx, "Willis Tower, Chicago, IL", "Navy Pier, Chicago, IL")

	require.NoError(t, err)
	require.Len(t, result.Routes, 3)
	assert.Equal(t, 3, result.RouteCount)
	assert.Equal(t, "Willis Tower, Chicago, IL", result.StartAddress)
	assert.NotEmpty(t, result.RequestID)

	for i, rs := range result.Routes {
		assert.Equal(t, i+1, rs.RouteID, "route_id order must match input order")
		assert.Equal(t, "success", rs.Status)
		require.NotNil(t, rs.RiskScore)
		assert.Equal(t, scores[rs.RouteID], *rs.RiskScore)
		require.NotNil(t, rs.Analysis)
		assert.Empty(t, rs.Error)
	}

	mapsClient.AssertExpectations(t)
	aiClient.AssertExpectations(t)
}

func TestRun_ZeroRoutesIsNotAnError(t *testing.T) {
	ctx := context.Background()

	mapsClient := &mockMapsClient{}
	mapsClient.On("Directions", ctx, mock.AnythingOfType("maps.DirectionsRequest")).
		Return(&maps.DirectionsResponse{Status: "ZERO_RESULTS"}, nil).Once()

	orch := New(testConfig(), mapsClient, &mockCrimeClient{}, &mockAnthropicClient{})
	result, err := orch.Run(ctx, "Nowhere", "Also Nowhere")

	require.NoError(t, err)
	assert.Empty(t, result.Routes)
	assert.Equal(t, 0, result.RouteCount)
}

func TestRun_RoutingFailureIsFatal(t *testing.T) {
	ctx := context.Background()

	mapsClient := &mockMapsClient{}
	mapsClient.On("Directions", ctx, mock.AnythingOfType("maps.DirectionsRequest")).
		Return(nil, eris.New("maps: send request: i/o timeout")).Once()

	orch := New(testConfig(), mapsClient, &mockCrimeClient{}, &mockAnthropicClient{})
	result, err := orch.Run(ctx, "A", "B")

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestRun_IncidentFailuresDoNotFailRoutes(t *testing.T) {
	ctx := context.Background()

	mapsClient := &mockMapsClient{}
	mapsClient.On("Directions", ctx, mock.AnythingOfType("maps.DirectionsRequest")).
		Return(directionsResponse(2), nil).Once()

	// Every incident lookup is rate limited.
	crimeClient := &mockCrimeClient{}
	crimeClient.On("Incidents", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &crimeometer.APIError{StatusCode: 429, Body: "Too Many Requests"})

	// Synthesis still succeeds using the "data unavailable" context.
	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return promptContains(req, "Data unavailable: rate limit exceeded")
	})).Return(riskResponse(`{"risk_score": 55, "analysis": "Limited data; moderate assumed."}`), nil).Twice()

	orch := New(testConfig(), mapsClient, crimeClient, aiClient)
	result, err := orch.Run(ctx, "A", "B")

	require.NoError(t, err)
	require.Len(t, result.Routes, 2)
	for _, rs := range result.Routes {
		assert.Equal(t, "success", rs.Status, "incident failure is not a route failure")
		require.NotNil(t, rs.RiskScore)
		assert.Equal(t, 55, *rs.RiskScore)
	}
	aiClient.AssertExpectations(t)
}

func TestRun_SynthesisFailureDegradesOnlyThatRoute(t *testing.T) {
	ctx := context.Background()

	mapsClient := &mockMapsClient{}
	mapsClient.On("Directions", ctx, mock.AnythingOfType("maps.DirectionsRequest")).
		Return(directionsResponse(2), nil).Once()

	crimeClient := &mockCrimeClient{}
	crimeClient.On("Incidents", mock.Anything, mock.Anything, mock.Anything).
		Return(noIncidents(), nil)

	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return promptContains(req, "Route ID: 1\n")
	})).Return(riskResponse(`{"risk_score": 30, "analysis": "Quiet route."}`), nil).Once()
	aiClient.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return promptContains(req, "Route ID: 2\n")
	})).Return(nil, eris.New("anthropic: create message: bad gateway")).Once()

	orch := New(testConfig(), mapsClient, crimeClient, aiClient)
	result, err := orch.Run(ctx, "A", "B")

	require.NoError(t, err)
	require.Len(t, result.Routes, 2)

	assert.Equal(t, "success", result.Routes[0].Status)
	require.NotNil(t, result.Routes[0].RiskScore)

	assert.Equal(t, "failed", result.Routes[1].Status)
	assert.Nil(t, result.Routes[1].RiskScore)
	assert.Nil(t, result.Routes[1].Analysis)
	assert.NotEmpty(t, result.Routes[1].Error)
}

func TestRun_OutOfRangeScoreBecomesFailure(t *testing.T) {
	ctx := context.Background()

	mapsClient := &mockMapsClient{}
	mapsClient.On("Directions", ctx, mock.AnythingOfType("maps.DirectionsRequest")).
		Return(directionsResponse(1), nil).Once()

	crimeClient := &mockCrimeClient{}
	crimeClient.On("Incidents", mock.Anything, mock.Anything, mock.Anything).
		Return(noIncidents(), nil)

	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.Anything).
		Return(riskResponse(`{"risk_score": 150, "analysis": "Way too dangerous."}`), nil).Once()

	orch := New(testConfig(), mapsClient, crimeClient, aiClient)
	result, err := orch.Run(ctx, "A", "B")

	require.NoError(t, err)
	require.Len(t, result.Routes, 1)
	assert.Equal(t, "failed", result.Routes[0].Status)
	assert.Nil(t, result.Routes[0].RiskScore)
	assert.Contains(t, result.Routes[0].Error, "150")
}

func TestRun_OutputCarriesNoWaypointData(t *testing.T) {
	ctx := context.Background()

	mapsClient := &mockMapsClient{}
	mapsClient.On("Directions", ctx, mock.AnythingOfType("maps.DirectionsRequest")).
		Return(directionsResponse(2), nil).Once()

	crimeClient := &mockCrimeClient{}
	crimeClient.On("Incidents", mock.Anything, mock.Anything, mock.Anything).
		Return(&crimeometer.IncidentsResponse{
			TotalIncidents: 2,
			Incidents: []crimeometer.Incident{
				{Offense: "Theft", Date: "2026-08-20"},
				{Offense: "Assault", Date: "2026-08-22"},
			},
		}, nil)

	aiClient := &mockAnthropicClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.Anything).
		Return(riskResponse(`{"risk_score": 62, "analysis": "Elevated; violent crime present."}`), nil)

	orch := New(testConfig(), mapsClient, crimeClient, aiClient)
	result, err := orch.Run(ctx, "A", "B")
	require.NoError(t, err)

	out, err := json.Marshal(result)
	require.NoError(t, err)

	serialized := string(out)
	assert.NotContains(t, serialized, "waypoint")
	assert.NotContains(t, serialized, "latitude")
	assert.NotContains(t, serialized, "longitude")
	assert.NotContains(t, serialized, "incident")
}
