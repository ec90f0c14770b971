package model

import "time"

// RecordStatus is the outcome tag of a risk analysis.
type RecordStatus string

const (
	RecordSuccess RecordStatus = "success"
	RecordFailed  RecordStatus = "failed"
)

// RiskRecord is the result of analyzing one route. Produced exactly once per
// route and never revised. Score and Narrative are only meaningful when
// Status is RecordSuccess.
type RiskRecord struct {
	RouteID   int          `json:"route_id"`
	Score     int          `json:"score"`
	Narrative string       `json:"narrative"`
	Status    RecordStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
}

// Failed reports whether the analysis produced a failure record.
func (r RiskRecord) Failed() bool {
	return r.Status != RecordSuccess
}

// RouteSummary is the externally-safe view of one analyzed route. It carries
// no waypoint data: route geometry and per-point incident detail stay inside
// the pipeline.
type RouteSummary struct {
	RouteID         int          `json:"route_id"`
	Summary         string       `json:"summary"`
	DistanceMiles   float64      `json:"distance_miles"`
	DurationMinutes int          `json:"duration_minutes"`
	StartAddress    string       `json:"start_address"`
	EndAddress      string       `json:"end_address"`
	Traffic         *TrafficInfo `json:"traffic,omitempty"`
	RiskScore       *int         `json:"risk_score"`
	Analysis        *string      `json:"analysis"`
	Status          string       `json:"status"`
	Error           string       `json:"error,omitempty"`
}

// FinalResult is the full output of one orchestration run.
type FinalResult struct {
	RequestID          string         `json:"request_id"`
	StartAddress       string         `json:"start_address"`
	DestinationAddress string         `json:"destination_address"`
	GeneratedAt        time.Time      `json:"generated_at"`
	RouteCount         int            `json:"route_count"`
	Routes             []RouteSummary `json:"routes"`
}
