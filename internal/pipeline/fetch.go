package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safetravels/safetravels/internal/config"
	"github.com/safetravels/safetravels/internal/model"
	"github.com/safetravels/safetravels/pkg/maps"
)

// FetchRoutes obtains driving route alternatives between two addresses and
// converts them into domain routes with role-tagged waypoints. This is the
// only stage whose failure aborts the whole run: without routes there is
// nothing to enrich or analyze.
func FetchRoutes(ctx context.Context, client maps.Client, cfg config.GoogleConfig, start, destination string) ([]model.Route, error) {
	resp, err := client.Directions(ctx, maps.DirectionsRequest{
		Origin:         start,
		Destination:    destination,
		IncludeTraffic: cfg.IncludeTraffic,
	})
	if err != nil {
		return nil, eris.Wrap(err, "fetch: directions")
	}

	apiRoutes := maps.BuildRoutes(resp)
	routes := make([]model.Route, 0, len(apiRoutes))
	for _, ar := range apiRoutes {
		routes = append(routes, toDomainRoute(ar))
	}

	zap.L().Info("fetch: routes discovered",
		zap.String("start", start),
		zap.String("destination", destination),
		zap.Int("routes", len(routes)),
	)

	return routes, nil
}

func toDomainRoute(ar maps.Route) model.Route {
	route := model.Route{
		RouteID:         ar.RouteID,
		Summary:         ar.Summary,
		DistanceMiles:   ar.DistanceMiles,
		DurationMinutes: ar.DurationMinutes,
		StartAddress:    ar.StartAddress,
		EndAddress:      ar.EndAddress,
		Waypoints:       make([]model.Waypoint, 0, len(ar.Points)),
	}
	if ar.Traffic != nil {
		route.Traffic = &model.TrafficInfo{
			DurationInTrafficMinutes: ar.Traffic.DurationInTrafficMinutes,
			DelayMinutes:             ar.Traffic.DelayMinutes,
			Condition:                ar.Traffic.Condition,
		}
	}

	for i, p := range ar.Points {
		role := model.RoleVia
		switch {
		case i == 0:
			role = model.RoleStart
		case i == len(ar.Points)-1:
			role = model.RoleEnd
		}
		route.Waypoints = append(route.Waypoints, model.Waypoint{
			Coordinate: model.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude},
			Role:       role,
		})
	}

	return route
}
