package correlate

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// GenerateReason builds the human-readable correlation_reason string for an
// alert freshly attached to an incident, listing up to four matched
// factors, ordered label-match first, falling back to "Correlated by time
// proximity" if nothing concrete matched.
func GenerateReason(alert *models.Alert, incident *models.Incident) string {
	var reasons []string
	alertLabels := alert.Labels
	incidentLabels := incident.AffectedLabels

	for _, label := range CorrelationLabels {
		av, aok := alertLabels[label]
		iv, iok := incidentLabels[label]
		if aok && iok && av == iv {
			reasons = append(reasons, fmt.Sprintf("same %s: %s", label, av))
		}
	}

	for _, label := range InfrastructureLabels {
		av, aok := alertLabels[label]
		iv, iok := incidentLabels[label]
		if aok && iok && av == iv {
			reasons = append(reasons, fmt.Sprintf("shared %s: %s", label, av))
		}
	}

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
			reasons = append(reasons, fmt.Sprintf("%s references incident node", ref))
		} else if incidentServices[v] {
			reasons = append(reasons, fmt.Sprintf("%s references incident service", ref))
		}
	}

	isAlertInfra := IsInfrastructureAlertName(alert.AlertName)
	isIncidentInfra := IsInfrastructureAlertName(incident.Title)
	switch {
	case isAlertInfra && !isIncidentInfra:
		if alertLabels["datacenter"] != "" && alertLabels["datacenter"] == incidentLabels["datacenter"] {
			reasons = append(reasons, "infrastructure alert in same datacenter")
		}
	case isIncidentInfra && !isAlertInfra:
		reasons = append(reasons, "symptom of infrastructure incident")
	}

	if len(reasons) == 0 {
		return "Correlated by time proximity"
	}
	if len(reasons) > 4 {
		reasons = reasons[:4]
	}
	return "Correlated by " + strings.Join(reasons, ", ")
}
