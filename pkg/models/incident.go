package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus is the lifecycle state of a correlated incident.
type IncidentStatus string

const (
	IncidentOpen      IncidentStatus = "open"
	IncidentAnalyzing IncidentStatus = "analyzing"
	IncidentResolved  IncidentStatus = "resolved"
	IncidentClosed    IncidentStatus = "closed"
)

func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentOpen, IncidentAnalyzing, IncidentResolved, IncidentClosed:
		return true
	}
	return false
}

// IncidentSeverity mirrors AlertSeverity; kept distinct so the two enums can
// diverge if the persisted vocabularies ever need to (they do not today).
type IncidentSeverity = AlertSeverity

// Incident is a correlated group of one or more Alerts.
type Incident struct {
	ID                uuid.UUID         `json:"id"`
	Title             string            `json:"title"`
	Status            IncidentStatus    `json:"status"`
	Severity          IncidentSeverity  `json:"severity"`
	PrimaryAlertID    *uuid.UUID        `json:"primary_alert_id,omitempty"`
	CorrelationReason string            `json:"correlation_reason,omitempty"`
	AffectedServices  []string          `json:"affected_services"`
	AffectedLabels    map[string]string `json:"affected_labels"`
	StartedAt         time.Time         `json:"started_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	RCACompletedAt    *time.Time        `json:"rca_completed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// validTransitions is the state machine from spec §4.8.
var validTransitions = map[IncidentStatus]map[IncidentStatus]bool{
	IncidentOpen:      {IncidentAnalyzing: true, IncidentResolved: true, IncidentClosed: true},
	IncidentAnalyzing: {IncidentOpen: true, IncidentResolved: true, IncidentClosed: true},
	IncidentResolved:  {IncidentOpen: true, IncidentClosed: true},
	IncidentClosed:    {IncidentOpen: true},
}

// CanTransition reports whether moving from 'from' to 'to' is permitted.
func CanTransition(from, to IncidentStatus) bool {
	return validTransitions[from][to]
}

// MergeServices unions b into a, keeping a's ordering and existing entries on conflict.
func MergeServices(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// MergeLabels unions b into a, a's values winning on key conflict.
func MergeLabels(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range a {
		out[k] = v
	}
	return out
}
