package report

import (
	"strings"
	"testing"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

func TestMarkdown_SectionOrder(t *testing.T) {
	cmd := "df -h"
	r := &models.RCAReport{
		RootCause:       "disk full",
		ConfidenceScore: 80,
		Summary:         "disk filled up",
		Timeline: []models.TimelineEvent{
			{Timestamp: "t1", Event: "alert fired", Source: models.SourceAlert},
		},
		Evidence: models.Evidence{
			Logs:    []models.LogEvidence{{Timestamp: "t1", Message: "no space left on device"}},
			Metrics: []models.MetricEvidence{{Name: "disk_used_pct", Value: 99.9, Timestamp: "t1"}},
		},
		RemediationSteps: []models.RemediationStep{
			{Priority: models.PriorityImmediate, Action: "clean logs", Risk: models.RiskLow, Command: &cmd},
		},
	}
	out := Markdown(r)

	order := []string{"# Root Cause Analysis Report", "## Summary", "## Root Cause", "## Timeline", "## Log Evidence", "## Metric Evidence", "## Remediation Steps"}
	last := -1
	for _, section := range order {
		idx := strings.Index(out, section)
		if idx < 0 {
			t.Fatalf("missing section %q", section)
		}
		if idx < last {
			t.Fatalf("section %q out of order", section)
		}
		last = idx
	}
	if !strings.Contains(out, "```\n  df -h\n  ```") {
		t.Fatal("expected fenced command block")
	}
}

func TestMarkdown_SkipsEmptyOptionalSections(t *testing.T) {
	r := &models.RCAReport{RootCause: "c", Summary: "s", ConfidenceScore: 50}
	out := Markdown(r)
	if strings.Contains(out, "## Timeline") || strings.Contains(out, "## Log Evidence") {
		t.Fatal("did not expect empty sections to render")
	}
}

func TestFallback_BuildsLowConfidenceReport(t *testing.T) {
	now := time.Now()
	r := Fallback([16]byte{}, "The root cause is a misconfigured network interface.\nWe recommend restarting the service immediately.\n", now)
	if r.ConfidenceScore != 30 {
		t.Fatalf("expected confidence 30, got %d", r.ConfidenceScore)
	}
	if !strings.HasPrefix(r.Summary, "[Fallback Report]") {
		t.Fatalf("expected fallback-tagged summary, got %q", r.Summary)
	}
}

func TestMinimal_ExtractsAlertFieldsFromPrompt(t *testing.T) {
	now := time.Now()
	prompt := `Alert payload: {"alertname": "DiskFull", "service": "payment-api", "summary": "disk at 95%"}`
	r := Minimal([16]byte{}, prompt, now)
	if r.ConfidenceScore != 40 {
		t.Fatalf("expected confidence 40, got %d", r.ConfidenceScore)
	}
	if !strings.Contains(r.RootCause, "DiskFull") || !strings.Contains(r.RootCause, "payment-api") {
		t.Fatalf("expected extracted alert fields in root cause, got %q", r.RootCause)
	}
}
