package rca

import (
	"strings"
	"testing"
)

func TestLogQLQueryBuilder_BaseSelectorPrefersKnownLabels(t *testing.T) {
	b := &LogQLQueryBuilder{Labels: map[string]string{"alertname": "DiskFull", "service": "billing", "pod": "billing-0"}}
	selector := b.BaseSelector()
	if !strings.Contains(selector, `service="billing"`) || !strings.Contains(selector, `pod="billing-0"`) {
		t.Fatalf("expected selector to include service and pod, got %q", selector)
	}
	if strings.Contains(selector, "alertname") {
		t.Fatalf("selector should exclude alertname, got %q", selector)
	}
}

func TestLogQLQueryBuilder_AlertnameQueryMatchesDiskPattern(t *testing.T) {
	b := &LogQLQueryBuilder{Labels: map[string]string{"service": "billing"}}
	q := b.AlertnameQuery("HostDiskSpaceLow")
	if !strings.Contains(q, "disk") {
		t.Fatalf("expected disk pattern in query, got %q", q)
	}
}

func TestLogQLQueryBuilder_AlertnameQueryFallsBackToErrorQuery(t *testing.T) {
	b := &LogQLQueryBuilder{Labels: map[string]string{"service": "billing"}}
	q := b.AlertnameQuery("SomeUnrelatedAlert")
	if q != b.ErrorQuery() {
		t.Fatalf("expected fallback to error query, got %q", q)
	}
}

func TestLogQLQueryBuilder_QueryHintsListsSuggestions(t *testing.T) {
	b := &LogQLQueryBuilder{Labels: map[string]string{"service": "billing"}}
	hints := b.QueryHints("HighMemoryUsage")
	if !strings.Contains(hints, "Suggested LogQL queries") {
		t.Fatalf("expected hints header, got %q", hints)
	}
	if !strings.Contains(hints, "memory") {
		t.Fatalf("expected memory pattern mentioned, got %q", hints)
	}
}

func TestPromQLQueryBuilder_ApplySelectorReplacesBothPlaceholders(t *testing.T) {
	b := &PromQLQueryBuilder{Labels: map[string]string{"service": "billing"}}
	out := b.applySelector(`100 - (node_filesystem_avail_bytes{SELECTOR} / node_filesystem_size_bytes{SELECTOR} * 100)`)
	if strings.Contains(out, "{SELECTOR}") || strings.Contains(out, "SELECTOR") {
		t.Fatalf("expected all placeholders replaced, got %q", out)
	}
	if !strings.Contains(out, `service="billing"`) {
		t.Fatalf("expected selector content present, got %q", out)
	}
}

func TestPromQLQueryBuilder_QueryHintsIncludesErrorRateForService(t *testing.T) {
	b := &PromQLQueryBuilder{Labels: map[string]string{"service": "billing"}}
	hints := b.QueryHints("DiskFull")
	if !strings.Contains(hints, "Error rate for billing") {
		t.Fatalf("expected service error-rate suggestion, got %q", hints)
	}
}

func TestJoinSelectors_SortsKeys(t *testing.T) {
	got := joinSelectors(map[string]string{"pod": "a", "device": "b"})
	want := `device="b", pod="a"`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
