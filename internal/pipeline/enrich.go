package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/safetravels/safetravels/internal/model"
	"github.com/safetravels/safetravels/pkg/crimeometer"
)

// fetchIncidents looks up incidents around one coordinate and always returns
// a result value. Every failure mode of the provider call — missing key,
// rate limit, timeout, malformed payload — becomes an IncidentResult with a
// FailureReason; nothing escapes as an error. The layers above rely on this
// to treat every waypoint uniformly.
func fetchIncidents(ctx context.Context, client crimeometer.Client, c model.Coordinate) *model.IncidentResult {
	resp, err := client.Incidents(ctx, c.Latitude, c.Longitude)
	if err != nil {
		result := &model.IncidentResult{
			FailureReason: eris.Cause(err).Error(),
		}
		var apiErr *crimeometer.APIError
		if errors.As(err, &apiErr) {
			result.StatusCode = apiErr.StatusCode
			if apiErr.StatusCode == 429 {
				result.FailureReason = "rate limit exceeded"
			}
		}
		return result
	}

	incidents := make([]model.Incident, 0, len(resp.Incidents))
	for _, inc := range resp.Incidents {
		incidents = append(incidents, model.Incident{
			Offense:     inc.Offense,
			OccurredAt:  inc.Date,
			Description: inc.Description,
		})
	}

	return &model.IncidentResult{
		Incidents:  incidents,
		TotalCount: resp.TotalIncidents,
	}
}

// EnrichWaypoint populates one waypoint's incident result with a single
// provider call. Calling it again replaces the result with a fresh fetch.
func EnrichWaypoint(ctx context.Context, client crimeometer.Client, wp *model.Waypoint) {
	wp.Incidents = fetchIncidents(ctx, client, wp.Coordinate)
}

// EnrichRoute enriches every waypoint of one route concurrently and returns
// only after all lookups have completed. Individual lookup failures are
// recorded on their waypoints and never fail the route; a route with no
// waypoints is returned unchanged.
func EnrichRoute(ctx context.Context, client crimeometer.Client, route *model.Route) {
	if len(route.Waypoints) == 0 {
		zap.L().Warn("enrich: route has no waypoints",
			zap.Int("route_id", route.RouteID),
		)
		return
	}

	zap.L().Debug("enrich: enriching route",
		zap.Int("route_id", route.RouteID),
		zap.Int("waypoints", len(route.Waypoints)),
	)

	g, gCtx := errgroup.WithContext(ctx)
	for i := range route.Waypoints {
		g.Go(func() error {
			EnrichWaypoint(gCtx, client, &route.Waypoints[i])
			return nil
		})
	}
	// Workers never return errors; Wait is purely the barrier.
	_ = g.Wait()

	failed := 0
	for i := range route.Waypoints {
		if route.Waypoints[i].Incidents.Failed() {
			failed++
		}
	}
	if failed > 0 {
		zap.L().Warn("enrich: some waypoint lookups failed",
			zap.Int("route_id", route.RouteID),
			zap.Int("failed", failed),
			zap.Int("waypoints", len(route.Waypoints)),
		)
	}
}

// EnrichAllRoutes runs EnrichRoute over all routes concurrently and waits
// for every route to finish. Each route owns its waypoints, so the fan-out
// needs no locking.
func EnrichAllRoutes(ctx context.Context, client crimeometer.Client, routes []model.Route) {
	g, gCtx := errgroup.WithContext(ctx)
	for i := range routes {
		g.Go(func() error {
			EnrichRoute(gCtx, client, &routes[i])
			return nil
		})
	}
	_ = g.Wait()
}
