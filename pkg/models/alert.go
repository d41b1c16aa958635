// Package models holds the three persisted entities — Alert, Incident, and
// RCAReport — and their enumerations and validation invariants.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity is the severity a producer attaches to an alert.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// IsValid reports whether s is one of the recognized severities.
func (s AlertSeverity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// rank orders severities for incident aggregation (higher wins).
func (s AlertSeverity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// MaxSeverity returns whichever of a, b ranks higher.
func MaxSeverity(a, b AlertSeverity) AlertSeverity {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

// AlertStatus is the lifecycle state of a single alert instance.
type AlertStatus string

const (
	AlertStatusFiring   AlertStatus = "firing"
	AlertStatusResolved AlertStatus = "resolved"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusFiring, AlertStatusResolved:
		return true
	}
	return false
}

// Alert is a single notification instance received from the producer.
type Alert struct {
	ID           uuid.UUID         `json:"id"`
	Fingerprint  string            `json:"fingerprint"`
	AlertName    string            `json:"alert_name"`
	Severity     AlertSeverity     `json:"severity"`
	Status       AlertStatus       `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"starts_at"`
	EndsAt       *time.Time        `json:"ends_at,omitempty"`
	GeneratorURL string            `json:"generator_url,omitempty"`
	IncidentID   *uuid.UUID        `json:"incident_id,omitempty"`
	ReceivedAt   time.Time         `json:"received_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Valid checks the invariant: status=resolved implies ends_at is set.
func (a *Alert) Valid() bool {
	if !a.Severity.IsValid() || !a.Status.IsValid() {
		return false
	}
	if a.Status == AlertStatusResolved && a.EndsAt == nil {
		return false
	}
	return a.Fingerprint != ""
}

// Label returns labels[key] and whether it was present.
func (a *Alert) Label(key string) (string, bool) {
	if a.Labels == nil {
		return "", false
	}
	v, ok := a.Labels[key]
	return v, ok
}

// Annotation returns annotations[key] and whether it was present.
func (a *Alert) Annotation(key string) (string, bool) {
	if a.Annotations == nil {
		return "", false
	}
	v, ok := a.Annotations[key]
	return v, ok
}

// ServiceLabels are the label keys checked when extracting service names.
var ServiceLabels = []string{"service", "app", "job", "device", "container"}

// ExtractServices pulls service-like identifiers out of the alert's labels.
func (a *Alert) ExtractServices() []string {
	seen := map[string]bool{}
	var out []string
	for _, key := range ServiceLabels {
		if v, ok := a.Label(key); ok && v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
