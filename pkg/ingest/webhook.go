// Package ingest implements the Alertmanager-compatible webhook pipeline
// (spec §4.1): per-alert fingerprint dedup, status transitions, the
// re-firing policy, and auto-resolution, handing each newly inserted alert
// (including a re-fired one) to the correlation engine. An alert that is
// re-opened in place keeps its incident and is not correlated again.
package ingest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/metrics"
	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/state"
	"github.com/codeready-toolchain/rca-service/pkg/store"
)

// AlertmanagerPayload is the webhook body from an Alertmanager-compatible
// producer (version-4 shaped). Unknown top-level fields are ignored by
// virtue of not being declared here.
type AlertmanagerPayload struct {
	Receiver          string            `json:"receiver"`
	Status            string            `json:"status"`
	Alerts            []AlertPayload    `json:"alerts"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`
}

// AlertPayload is one alert record within the webhook batch.
type AlertPayload struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"startsAt"`
	EndsAt       *time.Time        `json:"endsAt,omitempty"`
	GeneratorURL string            `json:"generatorURL,omitempty"`
	Fingerprint  string            `json:"fingerprint"`
}

// Validate checks the fields required to build a models.Alert. Schema
// violations on required fields are the caller's cue to return a 4xx.
func (p *AlertPayload) Validate() error {
	if p.Fingerprint == "" {
		return store.NewValidationError("fingerprint", "is required")
	}
	if p.Labels["alertname"] == "" {
		return store.NewValidationError("labels.alertname", "is required")
	}
	status := models.AlertStatus(p.Status)
	if !status.IsValid() {
		return store.NewValidationError("status", "must be 'firing' or 'resolved'")
	}
	if p.StartsAt.IsZero() {
		return store.NewValidationError("startsAt", "is required")
	}
	return nil
}

// Correlator is the subset of pkg/correlate.Engine the pipeline depends on.
type Correlator interface {
	CorrelateAlert(ctx context.Context, alert *models.Alert, now time.Time) (*models.Incident, bool, error)
}

// AlertStore is the subset of pkg/store.Store the pipeline depends on.
type AlertStore interface {
	GetAlertByFingerprint(ctx context.Context, fingerprint string) (*models.Alert, error)
	CreateAlert(ctx context.Context, a *models.Alert) error
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, status models.AlertStatus, endsAt *time.Time, now time.Time) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListAlertsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Alert, error)
	UpdateIncident(ctx context.Context, inc *models.Incident) error
}

// Pipeline applies the ingestion decision table to each alert in a webhook
// batch, isolating per-alert failures so one bad alert never aborts the
// batch.
type Pipeline struct {
	Store      AlertStore
	Correlator Correlator
	Now        func() time.Time
	Logger     *slog.Logger
}

// New builds a Pipeline with sane defaults.
func New(alertStore AlertStore, correlator Correlator) *Pipeline {
	return &Pipeline{
		Store:      alertStore,
		Correlator: correlator,
		Now:        time.Now,
		Logger:     slog.Default().With("component", "ingest"),
	}
}

// Result is the outcome of processing one webhook batch.
type Result struct {
	AlertsReceived int
	ProcessingIDs  []uuid.UUID
	IncidentIDs    []uuid.UUID
	Errors         []AlertError
}

// AlertError records a per-alert failure that was isolated rather than
// aborting the batch.
type AlertError struct {
	Fingerprint string
	Err         error
}

// ProcessBatch runs every alert in the payload through the decision table,
// isolating failures per alert (spec §4.1, §7 propagation policy).
func (p *Pipeline) ProcessBatch(ctx context.Context, payload *AlertmanagerPayload) *Result {
	result := &Result{}
	for _, ap := range payload.Alerts {
		alert := ap
		if err := alert.Validate(); err != nil {
			p.Logger.Warn("dropping malformed alert", "fingerprint", alert.Fingerprint, "error", err)
			result.Errors = append(result.Errors, AlertError{Fingerprint: alert.Fingerprint, Err: err})
			metrics.AlertsIngestedTotal.WithLabelValues("invalid").Inc()
			continue
		}

		id, incidentID, err := p.processOne(ctx, &alert)
		if err != nil {
			p.Logger.Warn("failed to process alert", "fingerprint", alert.Fingerprint, "error", err)
			result.Errors = append(result.Errors, AlertError{Fingerprint: alert.Fingerprint, Err: err})
			metrics.AlertsIngestedTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.AlertsIngestedTotal.WithLabelValues("accepted").Inc()

		result.AlertsReceived++
		if id != uuid.Nil {
			result.ProcessingIDs = append(result.ProcessingIDs, id)
		}
		if incidentID != uuid.Nil {
			result.IncidentIDs = append(result.IncidentIDs, incidentID)
		}
	}
	return result
}

// processOne applies the decision table (spec §4.1) to a single alert
// payload, keyed on the existing row found by fingerprint.
func (p *Pipeline) processOne(ctx context.Context, ap *AlertPayload) (uuid.UUID, uuid.UUID, error) {
	now := p.now()
	incomingStatus := models.AlertStatus(ap.Status)

	existing, err := p.Store.GetAlertByFingerprint(ctx, ap.Fingerprint)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return uuid.Nil, uuid.Nil, fmt.Errorf("lookup alert by fingerprint: %w", err)
	}

	switch {
	case existing == nil:
		return p.insertAndCorrelate(ctx, ap, now)

	case existing.Status == models.AlertStatusFiring && incomingStatus == models.AlertStatusFiring:
		// Duplicate: ignore.
		return existing.ID, incidentIDOrNil(existing), nil

	case existing.Status == models.AlertStatusFiring && incomingStatus == models.AlertStatusResolved:
		endsAt := ap.EndsAt
		if endsAt == nil {
			endsAt = &now
		}
		if err := p.Store.UpdateAlertStatus(ctx, existing.ID, models.AlertStatusResolved, endsAt, now); err != nil {
			return uuid.Nil, uuid.Nil, fmt.Errorf("resolve alert: %w", err)
		}
		if existing.IncidentID != nil {
			if err := p.autoResolveIncident(ctx, *existing.IncidentID, now); err != nil {
				return uuid.Nil, uuid.Nil, err
			}
			return existing.ID, *existing.IncidentID, nil
		}
		return existing.ID, uuid.Nil, nil

	case existing.Status == models.AlertStatusResolved && incomingStatus == models.AlertStatusFiring:
		incidentClosed, err := p.incidentIsResolved(ctx, existing)
		if err != nil {
			return uuid.Nil, uuid.Nil, err
		}
		if incidentClosed {
			// Re-firing policy: insert a new alert row with a freshly
			// suffixed fingerprint, correlate as fresh.
			refired := *ap
			refired.Fingerprint = suffixedFingerprint(ap.Fingerprint)
			return p.insertAndCorrelate(ctx, &refired, now)
		}
		if err := p.Store.UpdateAlertStatus(ctx, existing.ID, models.AlertStatusFiring, nil, now); err != nil {
			return uuid.Nil, uuid.Nil, fmt.Errorf("reopen alert: %w", err)
		}
		return existing.ID, incidentIDOrNil(existing), nil

	default:
		// resolved -> resolved: nothing changes.
		return existing.ID, incidentIDOrNil(existing), nil
	}
}

func (p *Pipeline) insertAndCorrelate(ctx context.Context, ap *AlertPayload, now time.Time) (uuid.UUID, uuid.UUID, error) {
	alert := &models.Alert{
		ID:           uuid.New(),
		Fingerprint:  ap.Fingerprint,
		AlertName:    ap.Labels["alertname"],
		Severity:     severityOf(ap.Labels),
		Status:       models.AlertStatus(ap.Status),
		Labels:       ap.Labels,
		Annotations:  ap.Annotations,
		StartsAt:     ap.StartsAt,
		EndsAt:       ap.EndsAt,
		GeneratorURL: ap.GeneratorURL,
		ReceivedAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !alert.Valid() {
		return uuid.Nil, uuid.Nil, store.NewValidationError("alert", "failed invariant checks")
	}

	if err := p.Store.CreateAlert(ctx, alert); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("create alert: %w", err)
	}

	incident, _, err := p.Correlator.CorrelateAlert(ctx, alert, now)
	if err != nil {
		return alert.ID, uuid.Nil, fmt.Errorf("correlate alert: %w", err)
	}
	return alert.ID, incident.ID, nil
}

// autoResolveIncident implements §4.1a: after any alert resolution, if
// every alert linked to the incident is resolved, transition the incident
// to resolved.
func (p *Pipeline) autoResolveIncident(ctx context.Context, incidentID uuid.UUID, now time.Time) error {
	members, err := p.Store.ListAlertsByIncident(ctx, incidentID)
	if err != nil {
		return fmt.Errorf("list incident members: %w", err)
	}
	if !state.AllMembersResolved(members) {
		return nil
	}

	incident, err := p.Store.GetIncident(ctx, incidentID)
	if err != nil {
		return fmt.Errorf("get incident: %w", err)
	}
	if !state.Transition(incident, models.IncidentResolved, now) {
		return nil
	}
	incident.UpdatedAt = now
	if err := p.Store.UpdateIncident(ctx, incident); err != nil {
		return fmt.Errorf("auto-resolve incident: %w", err)
	}
	return nil
}

func (p *Pipeline) incidentIsResolved(ctx context.Context, alert *models.Alert) (bool, error) {
	if alert.IncidentID == nil {
		return false, nil
	}
	incident, err := p.Store.GetIncident(ctx, *alert.IncidentID)
	if err != nil {
		return false, fmt.Errorf("get incident: %w", err)
	}
	return incident.Status == models.IncidentResolved || incident.Status == models.IncidentClosed, nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func incidentIDOrNil(a *models.Alert) uuid.UUID {
	if a.IncidentID == nil {
		return uuid.Nil
	}
	return *a.IncidentID
}

func severityOf(labels map[string]string) models.AlertSeverity {
	s := models.AlertSeverity(labels["severity"])
	if s.IsValid() {
		return s
	}
	return models.SeverityWarning
}

// suffixedFingerprint appends a random 8-hex-character suffix to a
// fingerprint, for the re-firing policy (spec §4.1: "insert a new alert
// row with a freshly suffixed fingerprint").
func suffixedFingerprint(fingerprint string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// timestamp-derived suffix rather than collide on an empty one.
		return fmt.Sprintf("%s_%08x", fingerprint, time.Now().UnixNano()&0xffffffff)
	}
	return fingerprint + "_" + hex.EncodeToString(buf)
}
