package pipeline

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safetravels/safetravels/internal/model"
)

// BuildFinalResult pairs each route with its risk record by route id and
// assembles the externally-safe result. Waypoint detail is dropped here:
// RouteSummary is the privacy and size boundary of the pipeline's output.
// Output order follows the input route order, independent of the order in
// which analyses completed.
func BuildFinalResult(start, destination string, routes []model.Route, records []model.RiskRecord) *model.FinalResult {
	byRouteID := make(map[int]model.RiskRecord, len(records))
	for _, rec := range records {
		byRouteID[rec.RouteID] = rec
	}

	summaries := make([]model.RouteSummary, 0, len(routes))
	for _, route := range routes {
		summary := model.RouteSummary{
			RouteID:         route.RouteID,
			Summary:         route.Summary,
			DistanceMiles:   route.DistanceMiles,
			DurationMinutes: route.DurationMinutes,
			StartAddress:    route.StartAddress,
			EndAddress:      route.EndAddress,
			Traffic:         route.Traffic,
		}

		rec, ok := byRouteID[route.RouteID]
		switch {
		case !ok:
			// The analysis barrier guarantees a record per route; a hole
			// here is an invariant breach, degraded rather than fatal.
			zap.L().Error("merge: no risk record for route",
				zap.Int("route_id", route.RouteID),
			)
			summary.Status = string(model.RecordFailed)
			summary.Error = "missing analysis"
		case rec.Failed():
			summary.Status = string(model.RecordFailed)
			summary.Error = rec.Error
		default:
			score := rec.Score
			narrative := rec.Narrative
			summary.RiskScore = &score
			summary.Analysis = &narrative
			summary.Status = string(model.RecordSuccess)
		}

		summaries = append(summaries, summary)
	}

	return &model.FinalResult{
		RequestID:          uuid.NewString(),
		StartAddress:       start,
		DestinationAddress: destination,
		GeneratedAt:        time.Now().UTC(),
		RouteCount:         len(summaries),
		Routes:             summaries,
	}
}
