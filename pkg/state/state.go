// Package state implements the incident status transition controller (spec §4.8).
package state

import (
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// Transition attempts to move incident i from its current status to 'to'.
// Invalid requests are no-ops (spec §4.8: "invalid requests return null").
// Entering IncidentResolved sets ResolvedAt if not already set.
func Transition(i *models.Incident, to models.IncidentStatus, now time.Time) bool {
	if i.Status == to {
		return true
	}
	if !models.CanTransition(i.Status, to) {
		return false
	}
	i.Status = to
	if to == models.IncidentResolved && i.ResolvedAt == nil {
		i.ResolvedAt = &now
	}
	return true
}

// ResetStuck transitions every incident currently 'analyzing' back to 'open',
// the administrative recovery path for orchestrator crashes (spec §4.8).
func ResetStuck(incidents []*models.Incident) []*models.Incident {
	var reset []*models.Incident
	for _, inc := range incidents {
		if inc.Status == models.IncidentAnalyzing {
			inc.Status = models.IncidentOpen
			reset = append(reset, inc)
		}
	}
	return reset
}

// AllMembersResolved reports whether every alert in the slice is resolved —
// the trigger condition for incident auto-resolve (spec §4.1a).
func AllMembersResolved(alerts []*models.Alert) bool {
	if len(alerts) == 0 {
		return false
	}
	for _, a := range alerts {
		if a.Status != models.AlertStatusResolved {
			return false
		}
	}
	return true
}
