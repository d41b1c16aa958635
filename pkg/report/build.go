// Package report validates and assembles the generate_report tool call's
// arguments into a models.RCAReport, mirroring
// original_source/src/tools/generate_report.py.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// Args is the generate_report tool call's raw input. Fields frequently
// arrive as JSON-encoded strings rather than proper objects/arrays when the
// upstream model is cost-limited, so every nested field is loosely typed and
// coerced by Build.
type Args struct {
	RootCause        string `json:"root_cause"`
	ConfidenceScore  int    `json:"confidence_score"`
	Summary          string `json:"summary"`
	Timeline         any    `json:"timeline"`
	Evidence         any    `json:"evidence"`
	RemediationSteps any    `json:"remediation_steps"`
}

// Build validates and normalizes a generate_report tool call into a
// complete RCAReport. It returns an error for a missing root_cause or
// summary, and for a remediation step whose priority or risk is present but
// not an allowed value. Other malformed optional fields are dropped rather
// than rejected, since a partial report beats none.
func Build(incidentID uuid.UUID, args Args, now time.Time) (*models.RCAReport, error) {
	if args.RootCause == "" {
		return nil, fmt.Errorf("generate_report: root_cause is required")
	}
	if args.Summary == "" {
		return nil, fmt.Errorf("generate_report: summary is required")
	}
	confidence := args.ConfidenceScore
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	steps, err := buildRemediationSteps(coerce(args.RemediationSteps), args.RootCause)
	if err != nil {
		return nil, fmt.Errorf("generate_report: %w", err)
	}

	report := &models.RCAReport{
		ID:               uuid.New(),
		IncidentID:       incidentID,
		RootCause:        args.RootCause,
		ConfidenceScore:  confidence,
		Summary:          args.Summary,
		Timeline:         buildTimeline(coerce(args.Timeline)),
		Evidence:         buildEvidence(coerceMap(args.Evidence), now),
		RemediationSteps: steps,
		Status:           models.ReportComplete,
		StartedAt:        now,
		CompletedAt:      &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return report, nil
}

// coerce parses a value that may be a JSON-encoded string into a []any, or
// passes through an already-decoded slice. Anything else (including a bare
// object or an unparsable string) is wrapped as a single-element slice or
// dropped.
func coerce(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(val), &parsed); err != nil {
			return nil
		}
		return coerce(parsed)
	case map[string]any:
		return []any{val}
	default:
		return nil
	}
}

func coerceMap(v any) map[string]any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return val
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(val), &parsed); err != nil {
			return nil
		}
		return parsed
	default:
		return nil
	}
}

func buildTimeline(raw []any) []models.TimelineEvent {
	var events []models.TimelineEvent
	for _, item := range raw {
		switch v := item.(type) {
		case map[string]any:
			events = append(events, models.TimelineEvent{
				Timestamp: stringOr(v["timestamp"], ""),
				Event:     stringOr(v["event"], ""),
				Source:    models.TimelineEventSource(stringOr(v["source"], string(models.SourceAlert))),
				Details:   detailsMap(v["details"]),
			})
		case string:
			events = append(events, models.TimelineEvent{
				Event:  v,
				Source: models.SourceAlert,
			})
		}
	}
	return events
}

func detailsMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func buildEvidence(evidence map[string]any, now time.Time) models.Evidence {
	out := models.Evidence{}
	if evidence == nil {
		return out
	}

	nowStamp := now.UTC().Format(time.RFC3339)

	if logsRaw, ok := evidence["logs"].([]any); ok {
		for _, item := range logsRaw {
			switch v := item.(type) {
			case map[string]any:
				out.Logs = append(out.Logs, models.LogEvidence{
					Timestamp: stringOr(v["timestamp"], nowStamp),
					Message:   stringOr(v["message"], ""),
					Source:    stringOr(v["source"], "loki"),
					Labels:    stringMap(v["labels"]),
				})
			case string:
				out.Logs = append(out.Logs, models.LogEvidence{
					Timestamp: nowStamp,
					Message:   v,
					Source:    "loki",
				})
			}
		}
	}

	if metricsRaw, ok := evidence["metrics"].([]any); ok {
		for _, item := range metricsRaw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out.Metrics = append(out.Metrics, models.MetricEvidence{
				Name:      stringOr(m["name"], "unknown"),
				Value:     floatOr(m["value"], 0),
				Timestamp: stringOr(m["timestamp"], nowStamp),
				Labels:    stringMap(m["labels"]),
			})
		}
	}
	return out
}

func buildRemediationSteps(raw []any, rootCause string) ([]models.RemediationStep, error) {
	var steps []models.RemediationStep
	for _, item := range raw {
		switch v := item.(type) {
		case map[string]any:
			action := stringOr(v["action"], "")
			command := stringOr(v["command"], "")
			if command == "" {
				command = InferCommandFromAction(action, rootCause)
			}

			priority, err := priorityOf(v["priority"])
			if err != nil {
				return nil, err
			}
			risk, err := riskOf(v["risk"])
			if err != nil {
				return nil, err
			}

			step := models.RemediationStep{
				Priority:         priority,
				Action:           action,
				Risk:             risk,
				RequiresApproval: boolOr(v["requires_approval"], false),
				AutomationReady:  boolOr(v["automation_ready"], false),
			}
			if command != "" {
				step.Command = &command
			}
			if desc := stringOr(v["description"], ""); desc != "" {
				step.Description = &desc
			}
			if cat, ok := v["category"].(string); ok && cat != "" {
				normalized := models.NormalizeCategory(cat)
				step.Category = &normalized
			}
			if impact, ok := v["estimated_impact"].(string); ok && impact != "" {
				e := models.EstimatedImpact(impact)
				step.EstimatedImpact = &e
			}
			steps = append(steps, step)

		case string:
			command := InferCommandFromAction(v, rootCause)
			step := models.RemediationStep{
				Priority: models.PriorityImmediate,
				Action:   v,
				Risk:     models.RiskLow,
			}
			if command != "" {
				step.Command = &command
			}
			steps = append(steps, step)
		}
	}
	return steps, nil
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func floatOr(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return fallback
	}
}

func boolOr(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

// priorityOf mirrors generate_report.py's RemediationStep.validate_priority:
// a missing priority defaults to "immediate" (the same default the original
// applies via step.get("priority", "immediate")), but a priority that's
// present and not one of the two valid enum values is rejected outright
// rather than silently coerced, so the model gets a structured error back
// and can retry with a corrected value.
func priorityOf(v any) (models.RemediationPriority, error) {
	if v == nil {
		return models.PriorityImmediate, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("remediation_steps: priority must be a string")
	}
	p := models.RemediationPriority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("remediation_steps: priority must be 'immediate' or 'long_term', got %q", s)
	}
	return p, nil
}

// riskOf is priorityOf's risk-field counterpart, same rejection rule.
func riskOf(v any) (models.RiskLevel, error) {
	if v == nil {
		return models.RiskLow, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("remediation_steps: risk must be a string")
	}
	r := models.RiskLevel(s)
	if !r.IsValid() {
		return "", fmt.Errorf("remediation_steps: risk must be 'low', 'medium', or 'high', got %q", s)
	}
	return r, nil
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
