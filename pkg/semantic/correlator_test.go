package semantic

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/llm"
	"github.com/codeready-toolchain/rca-service/pkg/models"
)

func TestAreSemanticallyRelated_HardRejectOnIncompatibleCategories(t *testing.T) {
	c := NewCorrelator(&llm.FakeProvider{})

	alert := &models.Alert{
		AlertName: "OutOfMemoryKilled",
		Severity:  models.SeverityCritical,
		Labels:    map[string]string{"service": "billing"},
		Annotations: map[string]string{
			"summary": "process killed, memory leak detected, heap exhausted, oom, memory exhaustion",
		},
	}
	incidentAlert := &models.Alert{
		AlertName: "DiskFull",
		Severity:  models.SeverityCritical,
		Labels:    map[string]string{"service": "billing"},
		Annotations: map[string]string{
			"summary": "disk full, disk space, inode exhaustion, filesystem quota exceeded",
		},
	}
	incident := &models.Incident{ID: uuid.New(), Title: "disk exhaustion"}

	related, _, confidence, err := c.AreSemanticallyRelated(context.Background(), alert, incident, []*models.Alert{incidentAlert})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if related {
		t.Fatal("expected hard rejection for incompatible categories")
	}
	if confidence != incompatibleConfidence {
		t.Fatalf("expected confidence %f, got %f", incompatibleConfidence, confidence)
	}
}

func TestAreSemanticallyRelated_FallsBackToCategoryMatchWhenLLMErrors(t *testing.T) {
	c := NewCorrelator(&llm.FakeProvider{Err: context.DeadlineExceeded})

	alert := &models.Alert{
		AlertName:   "SlowResponses",
		Severity:    models.SeverityWarning,
		Labels:      map[string]string{"service": "checkout"},
		Annotations: map[string]string{"summary": "high latency, slow responses, degraded p99"},
	}
	incidentAlert := &models.Alert{
		AlertName:   "DegradedLatency",
		Severity:    models.SeverityWarning,
		Labels:      map[string]string{"service": "checkout"},
		Annotations: map[string]string{"summary": "response time degraded, p95 latency high"},
	}
	incident := &models.Incident{ID: uuid.New(), Title: "latency spike"}

	related, reason, confidence, err := c.AreSemanticallyRelated(context.Background(), alert, incident, []*models.Alert{incidentAlert})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !related {
		t.Fatalf("expected category-match fallback to relate same-category alerts, reason=%q", reason)
	}
	if confidence != categoryMatchConfidence {
		t.Fatalf("expected fallback confidence %f, got %f", categoryMatchConfidence, confidence)
	}
}

func TestAreSemanticallyRelated_FallsBackToCategoryMatchOnUnparseableResponse(t *testing.T) {
	provider := &llm.FakeProvider{
		Responses: []*llm.Response{
			{Content: "I think these are related but I won't say so in JSON.", StopReason: "end_turn"},
		},
	}
	c := NewCorrelator(provider)

	alert := &models.Alert{
		AlertName:   "SlowResponses",
		Severity:    models.SeverityWarning,
		Labels:      map[string]string{"service": "checkout"},
		Annotations: map[string]string{"summary": "high latency, slow responses, degraded p99"},
	}
	incidentAlert := &models.Alert{
		AlertName:   "DegradedLatency",
		Severity:    models.SeverityWarning,
		Labels:      map[string]string{"service": "checkout"},
		Annotations: map[string]string{"summary": "response time degraded, p95 latency high"},
	}
	incident := &models.Incident{ID: uuid.New(), Title: "latency spike"}

	related, _, confidence, err := c.AreSemanticallyRelated(context.Background(), alert, incident, []*models.Alert{incidentAlert})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !related {
		t.Fatal("expected category-match fallback to relate same-category alerts on an unparseable response")
	}
	if confidence != categoryMatchConfidence {
		t.Fatalf("expected parse-failure fallback confidence %f (same as transport failure), got %f", categoryMatchConfidence, confidence)
	}
}

func TestAreSemanticallyRelated_UsesLLMVerdictWhenPrecheckPasses(t *testing.T) {
	provider := &llm.FakeProvider{
		Responses: []*llm.Response{
			{Content: `{"related": true, "confidence": 0.92, "reason": "shared upstream dependency"}`, StopReason: "end_turn"},
		},
	}
	c := NewCorrelator(provider)

	alert := &models.Alert{
		AlertName:   "ServiceErrors",
		Severity:    models.SeverityCritical,
		Labels:      map[string]string{"service": "checkout", "datacenter": "dc1"},
		Annotations: map[string]string{"summary": "exception rate spike, circuit breaker open"},
	}
	incidentAlert := &models.Alert{
		AlertName:   "BGPFlap",
		Severity:    models.SeverityCritical,
		Labels:      map[string]string{"service": "edge-router", "datacenter": "dc1"},
		Annotations: map[string]string{"summary": "bgp neighbor down, route withdrawal"},
	}
	incident := &models.Incident{ID: uuid.New(), Title: "routing instability", AffectedServices: []string{"edge-router"}}

	related, reason, confidence, err := c.AreSemanticallyRelated(context.Background(), alert, incident, []*models.Alert{incidentAlert})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !related {
		t.Fatal("expected LLM verdict to report related=true")
	}
	if confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %f", confidence)
	}
	if reason != "shared upstream dependency" {
		t.Fatalf("unexpected reason: %q", reason)
	}
	if provider.Calls != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", provider.Calls)
	}
}

func TestFindBestIncident_PicksHighestConfidenceRelatedMatch(t *testing.T) {
	provider := &llm.FakeProvider{
		Responses: []*llm.Response{
			{Content: `{"related": true, "confidence": 0.55, "reason": "weak link"}`},
			{Content: `{"related": true, "confidence": 0.95, "reason": "strong link"}`},
		},
	}
	c := NewCorrelator(provider)

	alert := &models.Alert{
		AlertName:   "ServiceErrors",
		Severity:    models.SeverityWarning,
		Labels:      map[string]string{"service": "checkout", "datacenter": "dc1"},
		Annotations: map[string]string{"summary": "generic failure observed"},
	}
	incA := &models.Incident{ID: uuid.New(), Title: "incident A"}
	incB := &models.Incident{ID: uuid.New(), Title: "incident B"}
	candidateAlerts := map[uuid.UUID][]*models.Alert{
		incA.ID: {{AlertName: "Other", Labels: map[string]string{}}},
		incB.ID: {{AlertName: "Other2", Labels: map[string]string{}}},
	}

	best, reason, confidence, err := c.FindBestIncident(context.Background(), alert, []*models.Incident{incA, incB}, candidateAlerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best == nil || best.ID != incB.ID {
		t.Fatalf("expected incident B to win, got %+v", best)
	}
	if confidence != 0.95 || reason != "strong link" {
		t.Fatalf("unexpected result: reason=%q confidence=%f", reason, confidence)
	}
}

func TestFindBestIncident_NilWhenNothingRelated(t *testing.T) {
	provider := &llm.FakeProvider{
		Responses: []*llm.Response{
			{Content: `{"related": false, "confidence": 0.1, "reason": "unrelated"}`},
		},
	}
	c := NewCorrelator(provider)

	alert := &models.Alert{AlertName: "X", Labels: map[string]string{}, Annotations: map[string]string{}}
	inc := &models.Incident{ID: uuid.New(), Title: "incident"}

	best, _, _, err := c.FindBestIncident(context.Background(), alert, []*models.Incident{inc}, map[uuid.UUID][]*models.Alert{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best != nil {
		t.Fatalf("expected nil incident, got %+v", best)
	}
}
