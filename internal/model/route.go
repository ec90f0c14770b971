package model

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// WaypointRole tags a waypoint's position within its route.
type WaypointRole string

const (
	RoleStart WaypointRole = "start"
	RoleVia   WaypointRole = "via"
	RoleEnd   WaypointRole = "end"
)

// Waypoint is a sampled point along a route. Incidents is nil until the
// enrichment stage populates it; each waypoint is owned by exactly one route.
type Waypoint struct {
	Coordinate
	Label     string          `json:"label,omitempty"`
	Role      WaypointRole    `json:"role"`
	Incidents *IncidentResult `json:"incidents,omitempty"`
}

// Incident is a single crime record, carried verbatim from the incident
// provider in provider order.
type Incident struct {
	Offense     string `json:"offense"`
	OccurredAt  string `json:"occurred_at"`
	Description string `json:"description,omitempty"`
}

// IncidentResult is the outcome of one incident lookup. A non-empty
// FailureReason marks the lookup as failed; Incidents and TotalCount are
// only meaningful on success.
type IncidentResult struct {
	Incidents     []Incident `json:"incidents,omitempty"`
	TotalCount    int        `json:"total_count"`
	FailureReason string     `json:"failure_reason,omitempty"`
	StatusCode    int        `json:"status_code,omitempty"`
}

// Failed reports whether the lookup produced a failure instead of data.
func (r *IncidentResult) Failed() bool {
	return r != nil && r.FailureReason != ""
}

// TrafficInfo describes current traffic conditions on a route.
type TrafficInfo struct {
	DurationInTrafficMinutes int    `json:"duration_in_traffic_minutes"`
	DelayMinutes             int    `json:"delay_minutes"`
	Condition                string `json:"condition"` // light, moderate, heavy
}

// Route is one candidate path between start and destination. RouteID is the
// 1-based ordinal among the alternatives returned for a single request.
// Waypoints are mutated in place during enrichment; no other field changes
// after creation.
type Route struct {
	RouteID         int          `json:"route_id"`
	Summary         string       `json:"summary"`
	DistanceMiles   float64      `json:"distance_miles"`
	DurationMinutes int          `json:"duration_minutes"`
	StartAddress    string       `json:"start_address"`
	EndAddress      string       `json:"end_address"`
	Traffic         *TrafficInfo `json:"traffic,omitempty"`
	Waypoints       []Waypoint   `json:"waypoints"`
}
