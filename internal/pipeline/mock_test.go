package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/safetravels/safetravels/pkg/anthropic"
	"github.com/safetravels/safetravels/pkg/crimeometer"
	"github.com/safetravels/safetravels/pkg/maps"
)

// --- Maps Mock ---

type mockMapsClient struct {
	mock.Mock
}

func (m *mockMapsClient) Directions(ctx context.Context, req maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*maps.DirectionsResponse), args.Error(1)
}

// --- Crimeometer Mock ---

type mockCrimeClient struct {
	mock.Mock
}

func (m *mockCrimeClient) Incidents(ctx context.Context, latitude, longitude float64) (*crimeometer.IncidentsResponse, error) {
	args := m.Called(ctx, latitude, longitude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crimeometer.IncidentsResponse), args.Error(1)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Ensure interface compliance ---
var (
	_ maps.Client        = (*mockMapsClient)(nil)
	_ crimeometer.Client = (*mockCrimeClient)(nil)
	_ anthropic.Client   = (*mockAnthropicClient)(nil)
)

// riskResponse builds a message response carrying a synthesis JSON payload.
func riskResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 500, OutputTokens: 120},
	}
}
