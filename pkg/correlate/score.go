package correlate

import (
	"strings"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// MinCandidateScore is the floor below which a candidate incident is
// discarded before semantic arbitration or fallback selection.
const MinCandidateScore = 2

// Score computes the structural correlation score between a new alert and a
// candidate incident by summing every contribution that applies.
func Score(alert *models.Alert, incident *models.Incident) int {
	score := 0
	alertLabels := alert.Labels
	incidentLabels := incident.AffectedLabels

	for _, label := range CorrelationLabels {
		av, aok := alertLabels[label]
		iv, iok := incidentLabels[label]
		if !aok || !iok {
			continue
		}
		if av == iv {
			score += 2
		} else if partialMatch(av, iv) {
			score += 1
		}
	}

	for _, label := range InfrastructureLabels {
		av, aok := alertLabels[label]
		iv, iok := incidentLabels[label]
		if aok && iok && av == iv {
			score += 4
		}
	}

	score += crossReferenceScore(alert, incident)
	score += infrastructureAffinity(alert, incident)

	// Matches even when both sides lack the label (mirrors the original
	// implementation's dict.get() comparison); a shared absence of a service
	// label is a weak signal but intentionally not special-cased here.
	if alertLabels["service"] == incidentLabels["service"] {
		score += 3
	}
	if alertLabels["namespace"] == incidentLabels["namespace"] {
		score += 2
	}

	return score
}

// partialMatch reports whether two label values share a base name once a
// trailing "-<suffix>" segment is stripped — accommodating Kubernetes pod
// names with random suffixes.
func partialMatch(a, b string) bool {
	return baseName(a) == baseName(b)
}

func baseName(v string) string {
	if i := strings.LastIndex(v, "-"); i >= 0 {
		return v[:i]
	}
	return v
}

// crossReferenceScore scores labels on either side that name the other
// side's node or service, plus annotation-text mentions.
func crossReferenceScore(alert *models.Alert, incident *models.Incident) int {
	score := 0
	alertLabels := alert.Labels
	incidentLabels := incident.AffectedLabels
	incidentServices := make(map[string]bool, len(incident.AffectedServices))
	for _, s := range incident.AffectedServices {
		incidentServices[s] = true
	}

	for _, ref := range CrossReferenceLabels {
		v, ok := alertLabels[ref]
		if !ok {
			continue
		}
		if v == incidentLabels["node"] {
			score += 5
		}
		if incidentServices[v] {
			score += 4
		}
	}

	for _, ref := range CrossReferenceLabels {
		v, ok := incidentLabels[ref]
		if !ok {
			continue
		}
		if v == alertLabels["node"] {
			score += 5
		}
		if v == alertLabels["service"] {
			score += 4
		}
	}

	score += annotationReferenceScore(alert, incident)
	return score
}

// annotationReferenceScore checks whether the alert's description/summary
// text mentions the incident's node or any of its affected services.
func annotationReferenceScore(alert *models.Alert, incident *models.Incident) int {
	score := 0
	text := strings.ToLower(strings.TrimSpace(
		alert.Annotations["description"] + " " + alert.Annotations["summary"],
	))

	if node := incident.AffectedLabels["node"]; node != "" && strings.Contains(text, strings.ToLower(node)) {
		score += 3
	}
	for _, svc := range incident.AffectedServices {
		if svc != "" && strings.Contains(text, strings.ToLower(svc)) {
			score += 2
		}
	}
	return score
}

// infrastructureAffinity correlates infrastructure alerts (network,
// interface, BGP) with application-layer symptom alerts even when they
// don't share a namespace, as long as they share a datacenter or network
// path.
func infrastructureAffinity(alert *models.Alert, incident *models.Incident) int {
	score := 0
	alertLabels := alert.Labels
	incidentLabels := incident.AffectedLabels

	isAlertInfra := IsInfrastructureAlertName(alert.AlertName)
	isIncidentInfra := IsInfrastructureAlertName(incident.Title)

	if isAlertInfra && !infraNamespaces[incidentLabels["namespace"]] {
		if alertLabels["datacenter"] != "" && alertLabels["datacenter"] == incidentLabels["datacenter"] {
			score += 3
		}
	}

	if isIncidentInfra && !infraNamespaces[alertLabels["namespace"]] {
		if alertLabels["datacenter"] != "" && alertLabels["datacenter"] == incidentLabels["datacenter"] {
			score += 3
		}
		if alertLabels["network_path"] != "" && alertLabels["network_path"] == incidentLabels["network_segment"] {
			score += 4
		}
	}

	return score
}

// IsInfrastructureAlertName reports whether name matches any known
// infrastructure-alert pattern.
func IsInfrastructureAlertName(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range InfrastructureAlertPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// CausalScore ranks how likely an alert is to be the root cause of its
// incident: the sum of matched causal-indicator weights, plus a flat bonus
// for critical severity.
func CausalScore(alert *models.Alert) int {
	score := 0
	lower := strings.ToLower(alert.AlertName)
	for indicator, points := range CausalIndicators {
		if strings.Contains(lower, indicator) {
			score += points
		}
	}
	if alert.Severity == models.SeverityCritical {
		score += 5
	}
	return score
}
