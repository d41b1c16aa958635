package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/llm"
	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// categoryMatchConfidence is returned when the LLM call fails or is
// unavailable and the arbitration falls back to a bare category match.
const categoryMatchConfidence = 0.6

// incompatibleConfidence is the confidence attached to a hard rejection by
// the keyword-category pre-check, before any LLM call is made.
const incompatibleConfidence = 0.8

// Correlator is the LLM-arbitrated second phase of correlation: given a new
// alert and a structurally-plausible candidate incident, it decides whether
// they describe the same underlying problem. Grounded on
// original_source/src/services/semantic_correlator.py's
// are_semantically_related and find_best_incident.
type Correlator struct {
	LLM llm.Provider
}

// NewCorrelator builds a Correlator bound to the given provider.
func NewCorrelator(provider llm.Provider) *Correlator {
	return &Correlator{LLM: provider}
}

// AreSemanticallyRelated decides whether alert belongs to the incident
// represented by incidentAlerts, via a cheap keyword pre-check followed by
// an LLM call when the pre-check doesn't hard-reject.
func (c *Correlator) AreSemanticallyRelated(ctx context.Context, alert *models.Alert, incident *models.Incident, incidentAlerts []*models.Alert) (related bool, reason string, confidence float64, err error) {
	alertCategory, alertScore := CategorizeAlert(alert)

	incidentCategories := map[Category]bool{}
	for _, a := range incidentAlerts {
		cat, score := CategorizeAlert(a)
		if score > 0.3 {
			incidentCategories[cat] = true
		}
	}

	if alertScore > 0.3 && len(incidentCategories) == 1 && !incidentCategories[CategoryUnknown] {
		var only Category
		for cat := range incidentCategories {
			only = cat
		}
		if AreIncompatible(alertCategory, only) {
			return false, fmt.Sprintf("Alert category %q is incompatible with incident category %q", alertCategory, only), incompatibleConfidence, nil
		}
	}

	if c.LLM == nil {
		return c.categoryFallback(alertCategory, incidentCategories), "Category match (no LLM provider configured)", categoryMatchConfidence, nil
	}

	prompt := c.buildPrompt(alert, incident, incidentAlerts)
	resp, chatErr := c.LLM.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil, arbitrationSystemPrompt, 500, 0.1)
	if chatErr != nil {
		return c.categoryFallback(alertCategory, incidentCategories), "Category match (LLM call failed)", categoryMatchConfidence, nil
	}

	verdict, ok := parseLLMResponse(resp.Content)
	if !ok {
		return c.categoryFallback(alertCategory, incidentCategories), "Category match (LLM response unparseable)", categoryMatchConfidence, nil
	}
	return verdict.Related, verdict.Reason, verdict.Confidence, nil
}

func (c *Correlator) categoryFallback(alertCategory Category, incidentCategories map[Category]bool) bool {
	return incidentCategories[alertCategory]
}

const arbitrationSystemPrompt = "You are an expert site reliability engineer determining whether two " +
	"infrastructure alerts describe the same underlying incident. Respond ONLY with a JSON object " +
	`of the form {"related": true|false, "confidence": 0.0-1.0, "reason": "..."}.`

// buildPrompt assembles the arbitration prompt, explicitly surfacing
// datacenter/network-segment context since cross-datacenter alerts are
// almost never the same incident even when labels partially match.
func (c *Correlator) buildPrompt(alert *models.Alert, incident *models.Incident, incidentAlerts []*models.Alert) string {
	var b strings.Builder
	b.WriteString("New alert:\n")
	b.WriteString(alertContext(alert))

	b.WriteString("\n\nExisting incident: ")
	b.WriteString(incident.Title)
	b.WriteString("\nIncident severity: ")
	b.WriteString(string(incident.Severity))
	b.WriteString("\nIncident services: ")
	b.WriteString(strings.Join(incident.AffectedServices, ", "))
	b.WriteString("\nIncident alerts:\n")
	for _, a := range incidentAlerts {
		b.WriteString("- ")
		b.WriteString(a.AlertName)
		b.WriteString(" (")
		b.WriteString(labelOr(a.Labels, "service", "unknown"))
		b.WriteString(" / ")
		b.WriteString(labelOr(a.Labels, "datacenter", "unknown"))
		b.WriteString(")\n")
	}

	newDC := labelOr(alert.Labels, "datacenter", "unknown")
	sameDC := true
	for _, a := range incidentAlerts {
		if labelOr(a.Labels, "datacenter", "unknown") != newDC {
			sameDC = false
			break
		}
	}
	b.WriteString("\nDatacenter of new alert: ")
	b.WriteString(newDC)
	b.WriteString("\nAll incident alerts share this datacenter: ")
	fmt.Fprintf(&b, "%t", sameDC)

	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Alerts in different datacenters describe the same incident only if one is a known upstream network dependency of the other.\n")
	b.WriteString("2. A symptom alert (e.g. high latency, service errors) is related to a root-cause infrastructure alert (e.g. BGP flap, disk full) if the symptom's service depends on, or runs in the same failure domain as, the infrastructure alert.\n")
	b.WriteString("3. Alerts describing unrelated subsystems (e.g. disk exhaustion vs. a BGP route withdrawal) are NOT related unless there is explicit evidence of a causal chain.\n")

	return b.String()
}

// FindBestIncident implements pkg/correlate.SemanticCorrelator: it evaluates
// alert against every candidate incident, returning the highest-confidence
// related match, or a nil incident when nothing clears the bar.
func (c *Correlator) FindBestIncident(ctx context.Context, alert *models.Alert, candidates []*models.Incident, candidateAlerts map[uuid.UUID][]*models.Alert) (*models.Incident, string, float64, error) {
	var best *models.Incident
	var bestReason string
	var bestConfidence float64

	for _, incident := range candidates {
		related, reason, confidence, err := c.AreSemanticallyRelated(ctx, alert, incident, candidateAlerts[incident.ID])
		if err != nil {
			return nil, "", 0, err
		}
		if !related {
			continue
		}
		if best == nil || confidence > bestConfidence {
			best = incident
			bestReason = reason
			bestConfidence = confidence
		}
	}

	return best, bestReason, bestConfidence, nil
}
