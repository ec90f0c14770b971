package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/safetravels/safetravels/internal/config"
	"github.com/safetravels/safetravels/internal/model"
	"github.com/safetravels/safetravels/internal/resilience"
	"github.com/safetravels/safetravels/pkg/anthropic"
)

const riskSystemPrompt = `You are a crime risk analyst specializing in urban route safety assessment.

Analyze driving route data (including crime incidents at waypoints) and provide a risk score from 1-100 with a detailed analysis.

Scale:
- 1-20: VERY SAFE - minimal to no crime activity
- 21-40: SAFE - low crime levels typical of normal urban areas
- 41-60: MODERATE - notable crime presence but manageable
- 61-80: ELEVATED - significant crime activity, pass through without stopping
- 81-100: HIGH - concentrated crime, consider alternative routes

Rules:
- Some crime is normal and expected in any major city; do not give extreme scores without strong justification.
- Violent crimes (assault, robbery, battery) weigh more heavily than property crimes.
- The data covers a 14-day window within a quarter-mile radius of each waypoint.
- If waypoints report "data unavailable", acknowledge the uncertainty in your analysis.
- Reference actual crime types and locations when available.

Respond with a valid JSON object: {"risk_score": <1-100>, "analysis": "<detailed assessment with key findings and a brief recommendation>"}`

// riskAnalysis is the shape the synthesis model is asked to return.
type riskAnalysis struct {
	RiskScore int    `json:"risk_score"`
	Analysis  string `json:"analysis"`
}

// buildRoutePrompt renders one enriched route as the analyzer's user prompt:
// route identity and metrics, then a per-waypoint incident digest. Failed
// lookups surface as explicit "data unavailable" markers rather than being
// silently dropped, so the model can weigh the uncertainty.
func buildRoutePrompt(route model.Route) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following route for crime risk:\n\n")
	fmt.Fprintf(&b, "Route ID: %d\n", route.RouteID)
	fmt.Fprintf(&b, "Summary: %s\n", route.Summary)
	fmt.Fprintf(&b, "Distance: %.2f miles\n", route.DistanceMiles)
	fmt.Fprintf(&b, "Duration: %d minutes\n", route.DurationMinutes)
	fmt.Fprintf(&b, "Start: %s\n", route.StartAddress)
	fmt.Fprintf(&b, "End: %s\n", route.EndAddress)
	if route.Traffic != nil {
		fmt.Fprintf(&b, "Traffic: %s (+%d min delay)\n", route.Traffic.Condition, route.Traffic.DelayMinutes)
	}

	b.WriteString("\nWaypoint crime data:\n")
	for i, wp := range route.Waypoints {
		fmt.Fprintf(&b, "\n--- Waypoint %d (%.5f, %.5f) ---\n", i+1, wp.Latitude, wp.Longitude)

		switch {
		case wp.Incidents == nil:
			b.WriteString("  Data unavailable: not enriched\n")
		case wp.Incidents.Failed():
			fmt.Fprintf(&b, "  Data unavailable: %s\n", wp.Incidents.FailureReason)
		default:
			fmt.Fprintf(&b, "  Total incidents: %d\n", wp.Incidents.TotalCount)
			if len(wp.Incidents.Incidents) == 0 {
				b.WriteString("  No incidents reported\n")
			}
			for _, inc := range wp.Incidents.Incidents {
				fmt.Fprintf(&b, "  - %s (%s)\n", inc.Offense, inc.OccurredAt)
			}
		}
	}

	b.WriteString("\nProvide your risk score (1-100) and detailed analysis.")
	return b.String()
}

// parseRiskAnalysis extracts and validates the model's JSON response. An
// out-of-range score or empty analysis is rejected: a partially valid
// response must never become a success record.
func parseRiskAnalysis(text string) (*riskAnalysis, error) {
	text = cleanJSON(text)

	var result riskAnalysis
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, eris.Wrap(err, "analyze: unmarshal response")
	}

	if result.RiskScore < 1 || result.RiskScore > 100 {
		return nil, eris.Errorf("analyze: risk score %d outside 1-100", result.RiskScore)
	}
	if strings.TrimSpace(result.Analysis) == "" {
		return nil, eris.New("analyze: empty analysis narrative")
	}

	return &result, nil
}

// AnalyzeRoute submits one enriched route for risk synthesis and returns its
// risk record. Transport errors, timeouts, and invalid responses all become
// a failure record for this route only; transient transport errors get a
// small retry budget, validation failures do not.
func AnalyzeRoute(ctx context.Context, route model.Route, client anthropic.Client, cfg config.AnthropicConfig) model.RiskRecord {
	log := zap.L().With(zap.Int("route_id", route.RouteID))
	log.Debug("analyze: submitting route")

	req := anthropic.MessageRequest{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		System:    riskSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildRoutePrompt(route)},
		},
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts: cfg.MaxAttempts,
		OnRetry:     resilience.RetryLogger("anthropic", "risk_analysis"),
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return client.CreateMessage(ctx, req)
	})
	if err != nil {
		log.Error("analyze: risk synthesis failed", zap.Error(err))
		return failureRecord(route.RouteID, err.Error())
	}

	analysis, err := parseRiskAnalysis(extractText(resp))
	if err != nil {
		log.Error("analyze: invalid synthesis response", zap.Error(err))
		return failureRecord(route.RouteID, err.Error())
	}

	log.Info("analyze: route analyzed",
		zap.Int("risk_score", analysis.RiskScore),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)

	return model.RiskRecord{
		RouteID:   route.RouteID,
		Score:     analysis.RiskScore,
		Narrative: analysis.Analysis,
		Status:    model.RecordSuccess,
	}
}

// AnalyzeAllRoutes fans the risk analyzer out over all routes and waits for
// every record. A failed analysis never short-circuits its siblings.
func AnalyzeAllRoutes(ctx context.Context, routes []model.Route, client anthropic.Client, cfg config.AnthropicConfig) []model.RiskRecord {
	records := make([]model.RiskRecord, len(routes))

	g, gCtx := errgroup.WithContext(ctx)
	for i := range routes {
		g.Go(func() error {
			records[i] = AnalyzeRoute(gCtx, routes[i], client, cfg)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

func failureRecord(routeID int, reason string) model.RiskRecord {
	return model.RiskRecord{
		RouteID: routeID,
		Status:  model.RecordFailed,
		Error:   reason,
	}
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
