package maps

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

const metersPerMile = 1609.34

// Route is one drivable alternative with its sampled geometry. RouteID is
// 1-based in the order the provider returned the alternatives.
type Route struct {
	RouteID         int
	Summary         string
	DistanceMiles   float64
	DurationMinutes int
	StartAddress    string
	EndAddress      string
	Traffic         *Traffic
	Points          []Point
}

// Traffic classifies the current delay on a route.
type Traffic struct {
	DurationInTrafficMinutes int
	DelayMinutes             int
	Condition                string
}

// BuildRoutes converts a Directions response into sampled routes. Routes
// whose polyline cannot be decoded are kept with empty geometry rather than
// dropped, so alternative numbering stays stable.
func BuildRoutes(resp *DirectionsResponse) []Route {
	routes := make([]Route, 0, len(resp.Routes))

	for i, ar := range resp.Routes {
		if len(ar.Legs) == 0 {
			zap.L().Warn("maps: route has no legs, skipping", zap.Int("index", i))
			continue
		}
		leg := ar.Legs[0]

		distanceMiles := round2(float64(leg.Distance.Value) / metersPerMile)
		durationMinutes := leg.Duration.Value / 60

		route := Route{
			RouteID:         i + 1,
			Summary:         ar.Summary,
			DistanceMiles:   distanceMiles,
			DurationMinutes: durationMinutes,
			StartAddress:    leg.StartAddress,
			EndAddress:      leg.EndAddress,
		}
		if route.Summary == "" {
			route.Summary = fmt.Sprintf("Route %d", route.RouteID)
		}

		if leg.DurationInTraffic.Value > 0 {
			route.Traffic = classifyTraffic(durationMinutes, leg.DurationInTraffic.Value/60)
		}

		path, err := decodePath(ar.OverviewPolyline.Points)
		if err != nil {
			zap.L().Warn("maps: undecodable overview polyline",
				zap.Int("route_id", route.RouteID),
				zap.Error(err),
			)
		} else {
			route.Points = samplePath(path, samplingInterval(distanceMiles))
		}

		routes = append(routes, route)
	}

	return routes
}

// classifyTraffic grades the delay by both absolute minutes and percentage
// of the free-flow duration.
func classifyTraffic(normalMinutes, trafficMinutes int) *Traffic {
	delay := trafficMinutes - normalMinutes
	if delay < 0 {
		delay = 0
	}

	delayPercent := 0.0
	if normalMinutes > 0 {
		delayPercent = float64(delay) / float64(normalMinutes) * 100
	}

	condition := "heavy"
	switch {
	case delay < 5 && delayPercent < 10:
		condition = "light"
	case delay < 15 && delayPercent < 30:
		condition = "moderate"
	}

	return &Traffic{
		DurationInTrafficMinutes: trafficMinutes,
		DelayMinutes:             delay,
		Condition:                condition,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
