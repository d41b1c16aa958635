package correlate

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/metrics"
	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/google/uuid"
)

// IncidentStore is the subset of pkg/store.Store the correlation engine
// needs, kept narrow so Engine can be tested against a fake.
type IncidentStore interface {
	ListCandidateIncidents(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Incident, error)
	ListAlertsByIncident(ctx context.Context, incidentID uuid.UUID) ([]*models.Alert, error)
	CreateIncident(ctx context.Context, inc *models.Incident) error
	UpdateIncident(ctx context.Context, inc *models.Incident) error
	SetAlertIncident(ctx context.Context, id uuid.UUID, incidentID uuid.UUID, now time.Time) error
}

// SemanticCorrelator is the narrow interface pkg/semantic's correlator
// satisfies — kept here to avoid an import cycle between the two packages.
type SemanticCorrelator interface {
	// FindBestIncident returns the best-matching incident among candidates
	// (or nil if none was judged related) plus a reason and a confidence in
	// [0,1]. A nil incident is treated as an explicit rejection of every
	// candidate; a non-error call that can't decide returns a low-confidence
	// match or nil per the category-fallback rule, not an error.
	FindBestIncident(ctx context.Context, alert *models.Alert, candidates []*models.Incident, candidateAlerts map[uuid.UUID][]*models.Alert) (best *models.Incident, reason string, confidence float64, err error)
}

// Engine runs the two-phase alert-to-incident correlation algorithm.
type Engine struct {
	Store                      IncidentStore
	Semantic                   SemanticCorrelator // nil disables semantic arbitration
	WindowSeconds              int
	SemanticCorrelationEnabled bool

	// ScoreThreshold is the structural score a candidate must clear to be
	// attached without semantic arbitration backing it up (spec §6.5
	// CORRELATION_SCORE_THRESHOLD). It has no effect when semantic
	// arbitration is enabled and confirms the match: it only gates the
	// no-semantic and semantic-unavailable fallback paths, where a weak
	// structural score alone isn't enough to justify attaching to an
	// existing incident.
	ScoreThreshold int
}

// NewEngine constructs an Engine. A nil semantic correlator is fine — the
// engine silently stays on label-based correlation.
func NewEngine(store IncidentStore, semantic SemanticCorrelator, windowSeconds int, semanticEnabled bool, scoreThreshold int) *Engine {
	return &Engine{
		Store:                      store,
		Semantic:                   semantic,
		WindowSeconds:              windowSeconds,
		SemanticCorrelationEnabled: semanticEnabled,
		ScoreThreshold:             scoreThreshold,
	}
}

type scoredCandidate struct {
	incident *models.Incident
	score    int
}

// CorrelateAlert links alert to an existing incident or creates a new one,
// returning the resulting incident and whether it was freshly created.
func (e *Engine) CorrelateAlert(ctx context.Context, alert *models.Alert, now time.Time) (*models.Incident, bool, error) {
	window := time.Duration(e.WindowSeconds) * time.Second
	windowStart := alert.StartsAt.Add(-window)
	windowEnd := alert.StartsAt.Add(window)

	candidates, err := e.Store.ListCandidateIncidents(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, false, fmt.Errorf("list candidate incidents: %w", err)
	}

	var scored []scoredCandidate
	for _, inc := range candidates {
		score := Score(alert, inc)
		if score >= MinCandidateScore {
			scored = append(scored, scoredCandidate{incident: inc, score: score})
		}
	}

	if len(scored) == 0 {
		metrics.CorrelationDecisionsTotal.WithLabelValues("new_incident_no_candidates").Inc()
		inc, err := e.createIncident(ctx, alert)
		return inc, true, err
	}

	match, err := e.arbitrate(ctx, alert, scored)
	if err != nil {
		return nil, false, err
	}
	if match == nil {
		metrics.CorrelationDecisionsTotal.WithLabelValues("new_incident_rejected").Inc()
		inc, err := e.createIncident(ctx, alert)
		return inc, true, err
	}

	if err := e.attach(ctx, alert, match, now); err != nil {
		return nil, false, err
	}
	metrics.CorrelationDecisionsTotal.WithLabelValues("attached").Inc()
	return match, false, nil
}

// arbitrate applies semantic arbitration when enabled, falling back to the
// highest structural score. A nil, nil-error result means "create new
// incident" (explicit semantic rejection).
func (e *Engine) arbitrate(ctx context.Context, alert *models.Alert, scored []scoredCandidate) (*models.Incident, error) {
	best := scored[0]
	for _, c := range scored[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if !e.SemanticCorrelationEnabled || e.Semantic == nil {
		return e.structuralMatchOrNil(best), nil
	}

	candidateIncidents := make([]*models.Incident, len(scored))
	candidateAlerts := make(map[uuid.UUID][]*models.Alert, len(scored))
	for i, c := range scored {
		candidateIncidents[i] = c.incident
		alerts, err := e.Store.ListAlertsByIncident(ctx, c.incident.ID)
		if err != nil {
			return nil, fmt.Errorf("list alerts for candidate %s: %w", c.incident.ID, err)
		}
		candidateAlerts[c.incident.ID] = alerts
	}

	match, _, confidence, err := e.Semantic.FindBestIncident(ctx, alert, candidateIncidents, candidateAlerts)
	if err != nil {
		// Semantic correlator failure falls through to the structural match.
		return e.structuralMatchOrNil(best), nil
	}
	if match != nil && confidence >= 0.6 {
		return match, nil
	}
	if match == nil {
		// Every candidate was explicitly judged unrelated: don't fall back
		// to the structural best, start a new incident instead.
		return nil, nil
	}
	// A match was found but below the confidence bar: fall back to the
	// structural best rather than trust a low-confidence semantic opinion.
	return e.structuralMatchOrNil(best), nil
}

// structuralMatchOrNil enforces ScoreThreshold on a fallback structural
// match: a candidate that only barely cleared MinCandidateScore isn't
// grounds to attach without semantic confirmation.
func (e *Engine) structuralMatchOrNil(best scoredCandidate) *models.Incident {
	if best.score < e.ScoreThreshold {
		return nil
	}
	return best.incident
}

func (e *Engine) attach(ctx context.Context, alert *models.Alert, incident *models.Incident, now time.Time) error {
	if err := e.Store.SetAlertIncident(ctx, alert.ID, incident.ID, now); err != nil {
		return fmt.Errorf("link alert to incident: %w", err)
	}

	incident.AffectedServices = models.MergeServices(incident.AffectedServices, alert.ExtractServices())

	alertLabelProjection := map[string]string{}
	for _, key := range append(append([]string{}, CorrelationLabels...), InfrastructureLabels...) {
		if v, ok := alert.Label(key); ok {
			alertLabelProjection[key] = v
		}
	}
	incident.AffectedLabels = models.MergeLabels(incident.AffectedLabels, alertLabelProjection)

	incident.Severity = models.MaxSeverity(incident.Severity, alert.Severity)
	incident.CorrelationReason = GenerateReason(alert, incident)
	incident.UpdatedAt = now

	members, err := e.Store.ListAlertsByIncident(ctx, incident.ID)
	if err != nil {
		return fmt.Errorf("list incident members: %w", err)
	}
	members = append(members, alert)
	if primary := ElectPrimaryAlert(sortByStartsAt(members)); primary != nil {
		incident.PrimaryAlertID = &primary.ID
	}

	return e.Store.UpdateIncident(ctx, incident)
}

func (e *Engine) createIncident(ctx context.Context, alert *models.Alert) (*models.Incident, error) {
	allLabels := append(append([]string{}, CorrelationLabels...), InfrastructureLabels...)
	affectedLabels := map[string]string{}
	for _, key := range allLabels {
		if v, ok := alert.Label(key); ok {
			affectedLabels[key] = v
		}
	}

	now := alert.ReceivedAt
	inc := &models.Incident{
		ID:               uuid.New(),
		Title:            alert.AlertName,
		Status:           models.IncidentOpen,
		Severity:         alert.Severity,
		PrimaryAlertID:   &alert.ID,
		AffectedServices: alert.ExtractServices(),
		AffectedLabels:   affectedLabels,
		StartedAt:        alert.StartsAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := e.Store.CreateIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	if err := e.Store.SetAlertIncident(ctx, alert.ID, inc.ID, now); err != nil {
		return nil, fmt.Errorf("link alert to new incident: %w", err)
	}
	return inc, nil
}

// sortByStartsAt returns alerts ordered earliest-first, the ordering
// ElectPrimaryAlert requires.
func sortByStartsAt(alerts []*models.Alert) []*models.Alert {
	out := append([]*models.Alert(nil), alerts...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartsAt.Before(out[j-1].StartsAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
