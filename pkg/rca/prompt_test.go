package rca

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

func TestBuildSystemPrompt_AppendsExpertContext(t *testing.T) {
	base := BuildSystemPrompt("")
	withExpert := BuildSystemPrompt("Always check the payments-specific runbook first.")
	if !strings.HasPrefix(withExpert, base) {
		t.Fatalf("expected expert context to be appended after the base prompt")
	}
	if !strings.Contains(withExpert, "payments-specific runbook") {
		t.Fatalf("expected expert context text present")
	}
}

func TestFormatAlertForAnalysis_PinsWindowAroundAlertStart(t *testing.T) {
	starts := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	now := starts.Add(2 * time.Minute)
	alert := &models.Alert{
		AlertName: "HighDiskUsage",
		Severity:  models.SeverityCritical,
		Status:    models.AlertStatusFiring,
		Labels:    map[string]string{"service": "payments-api"},
		StartsAt:  starts,
	}

	prompt, window := formatAlertForAnalysis(alert, now)

	if window.start != starts.Add(-15*time.Minute) {
		t.Fatalf("expected window start 15m before alert start, got %v", window.start)
	}
	if window.end != starts.Add(5*time.Minute) {
		t.Fatalf("expected window end 5m after alert start when now is earlier, got %v", window.end)
	}
	if !strings.Contains(prompt, window.startISO()) || !strings.Contains(prompt, window.endISO()) {
		t.Fatalf("expected prompt to embed pinned window timestamps")
	}
}

func TestFormatAlertForAnalysis_WindowEndClampsToNowWhenLater(t *testing.T) {
	starts := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	now := starts.Add(1 * time.Hour)
	alert := &models.Alert{AlertName: "HighDiskUsage", Severity: models.SeverityCritical, Status: models.AlertStatusFiring, StartsAt: starts}

	_, window := formatAlertForAnalysis(alert, now)

	if window.end != now {
		t.Fatalf("expected window end to clamp to now, got %v", window.end)
	}
}

func TestFormatIncidentForAnalysis_WindowStartsBeforeEarliestAlert(t *testing.T) {
	earliest := time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC)
	later := earliest.Add(10 * time.Minute)
	now := later.Add(5 * time.Minute)

	incident := &models.Incident{
		ID:        uuid.New(),
		Title:     "Cascading failure in payments",
		Severity:  models.SeverityCritical,
		StartedAt: earliest,
	}
	alerts := []*models.Alert{
		{ID: uuid.New(), AlertName: "APIDown", StartsAt: later, Labels: map[string]string{"service": "payments-api"}},
		{ID: uuid.New(), AlertName: "DiskFull", StartsAt: earliest, Labels: map[string]string{"service": "payments-api"}},
	}

	prompt, window := formatIncidentForAnalysis(incident, alerts, now)

	if window.start != earliest.Add(-15*time.Minute) {
		t.Fatalf("expected window start 15m before earliest alert, got %v", window.start)
	}
	if window.end != now {
		t.Fatalf("expected window end to equal now, got %v", window.end)
	}
	if !strings.Contains(prompt, "DiskFull") || !strings.Contains(prompt, "APIDown") {
		t.Fatalf("expected both alerts present in prompt")
	}
}

func TestDetectDependencies_CapsAtFiveAndDetectsServicePatterns(t *testing.T) {
	labels := map[string]string{"service": "payments-backend-api", "namespace": "prod", "job": "payments-worker"}
	deps := detectDependencies(labels, "DatabaseConnectionTimeout")

	if len(deps) == 0 {
		t.Fatalf("expected at least one dependency detected")
	}
	if len(deps) > 5 {
		t.Fatalf("expected at most 5 dependencies, got %d", len(deps))
	}
	found := false
	for _, d := range deps {
		if d == "all-api-services" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'all-api-services' from database-related alertname, got %v", deps)
	}
}
