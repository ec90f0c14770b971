package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safetravels/safetravels/internal/config"
	"github.com/safetravels/safetravels/internal/model"
	"github.com/safetravels/safetravels/pkg/anthropic"
	"github.com/safetravels/safetravels/pkg/crimeometer"
	"github.com/safetravels/safetravels/pkg/maps"
)

// Orchestrator runs the route risk pipeline: fetch route alternatives,
// enrich their waypoints with crime data, analyze each route, merge into
// the final result. Each stage is a full barrier; routes and waypoints are
// never shared between concurrent tasks.
type Orchestrator struct {
	cfg       *config.Config
	maps      maps.Client
	crime     crimeometer.Client
	anthropic anthropic.Client
}

// New creates an Orchestrator with all provider clients.
func New(cfg *config.Config, mapsClient maps.Client, crimeClient crimeometer.Client, aiClient anthropic.Client) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		maps:      mapsClient,
		crime:     crimeClient,
		anthropic: aiClient,
	}
}

// Run executes one full orchestration for a start/destination pair. Only a
// routing failure aborts the run; every downstream failure is captured in
// the affected route's summary. The caller always receives one RouteSummary
// per discovered route.
func (o *Orchestrator) Run(ctx context.Context, start, destination string) (*model.FinalResult, error) {
	log := zap.L().With(
		zap.String("start", start),
		zap.String("destination", destination),
	)
	log.Info("pipeline: starting route risk analysis")
	began := time.Now()

	// Fetching.
	routes, err := FetchRoutes(ctx, o.maps, o.cfg.Google, start, destination)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch routes")
	}

	if len(routes) == 0 {
		log.Warn("pipeline: no routes found")
		return BuildFinalResult(start, destination, nil, nil), nil
	}

	// Enriching. Barrier: analysis starts only after every route has
	// finished enriching, keeping stage boundaries debuggable.
	EnrichAllRoutes(ctx, o.crime, routes)

	// Analyzing.
	records := AnalyzeAllRoutes(ctx, routes, o.anthropic, o.cfg.Anthropic)

	// Merging. Pure and synchronous.
	result := BuildFinalResult(start, destination, routes, records)

	succeeded := 0
	for _, r := range result.Routes {
		if r.Status == string(model.RecordSuccess) {
			succeeded++
		}
	}
	log.Info("pipeline: analysis complete",
		zap.String("request_id", result.RequestID),
		zap.Int("routes", result.RouteCount),
		zap.Int("succeeded", succeeded),
		zap.Duration("elapsed", time.Since(began)),
	)

	return result, nil
}
