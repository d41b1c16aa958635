package rca

import (
	"testing"
	"time"
)

func testWindow() queryWindow {
	return queryWindow{
		start: time.Date(2026, 7, 29, 9, 45, 0, 0, time.UTC),
		end:   time.Date(2026, 7, 29, 10, 5, 0, 0, time.UTC),
	}
}

func TestNormalizeToolInput_QueryLokiAliasesAndPinsWindow(t *testing.T) {
	input := map[string]any{
		"query": `{service="payments-api"}`,
		"start": "2020-01-01T00:00:00Z",
		"end":   "2020-01-01T01:00:00Z",
	}
	out := normalizeToolInput("query_loki", input, testWindow())

	if out["logql_query"] != `{service="payments-api"}` {
		t.Fatalf("expected query aliased to logql_query, got %v", out["logql_query"])
	}
	if out["start_time"] != testWindow().startISO() || out["end_time"] != testWindow().endISO() {
		t.Fatalf("expected timestamps unconditionally overridden with pinned window, got %v/%v", out["start_time"], out["end_time"])
	}
	if _, present := out["query"]; present {
		t.Fatalf("expected alias key removed")
	}
}

func TestNormalizeToolInput_QueryCortexAliasesPromql(t *testing.T) {
	input := map[string]any{"promql": "up{}"}
	out := normalizeToolInput("query_cortex", input, testWindow())

	if out["promql_query"] != "up{}" {
		t.Fatalf("expected promql aliased to promql_query, got %v", out["promql_query"])
	}
}

func TestNormalizeToolInput_GenerateReportFillsDefaults(t *testing.T) {
	input := map[string]any{"cause": "disk full", "score": float64(77)}
	out := normalizeToolInput("generate_report", input, testWindow())

	if out["root_cause"] != "disk full" {
		t.Fatalf("expected cause aliased to root_cause, got %v", out["root_cause"])
	}
	if out["confidence_score"] != 77 {
		t.Fatalf("expected confidence_score coerced to int 77, got %v (%T)", out["confidence_score"], out["confidence_score"])
	}
	if out["summary"] != "disk full" {
		t.Fatalf("expected summary defaulted from root_cause, got %v", out["summary"])
	}
}

func TestNormalizeToolInput_GenerateReportDoesNotOverwriteExisting(t *testing.T) {
	input := map[string]any{"root_cause": "real cause", "cause": "should be dropped", "confidence_score": 90}
	out := normalizeToolInput("generate_report", input, testWindow())

	if out["root_cause"] != "real cause" {
		t.Fatalf("expected existing root_cause preserved, got %v", out["root_cause"])
	}
}

func TestRenameAlias_DeletesWrongKeyEvenWhenCorrectAlreadySet(t *testing.T) {
	m := map[string]any{"root_cause": "kept", "root": "dropped"}
	renameAlias(m, map[string]string{"root": "root_cause"})

	if m["root_cause"] != "kept" {
		t.Fatalf("expected root_cause unchanged, got %v", m["root_cause"])
	}
	if _, present := m["root"]; present {
		t.Fatalf("expected wrong key removed")
	}
}

func TestCoerceInt_HandlesAllNumericShapes(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{42, 42},
		{int64(42), 42},
		{float64(42), 42},
		{"not a number", 50},
	}
	for _, c := range cases {
		if got := coerceInt(c.in, 50); got != c.want {
			t.Errorf("coerceInt(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
