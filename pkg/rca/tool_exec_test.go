package rca

import (
	"context"
	"testing"
	"time"
)

type stubLogs struct {
	result map[string]any
	err    error
}

func (s *stubLogs) QueryRange(ctx context.Context, query string, start, end time.Time, limit int, direction string) (map[string]any, error) {
	return s.result, s.err
}

type stubMetrics struct {
	result map[string]any
	err    error
}

func (s *stubMetrics) RangeQuery(ctx context.Context, query string, start, end time.Time, step string) (map[string]any, error) {
	return s.result, s.err
}

func TestExecuteQueryLoki_FlattensAndSortsDescending(t *testing.T) {
	logs := &stubLogs{result: map[string]any{
		"data": map[string]any{
			"result": []any{
				map[string]any{
					"stream": map[string]any{"service": "payments-api"},
					"values": []any{
						[]any{"1690000000000000000", "older message"},
						[]any{"1690000100000000000", "newer message"},
					},
				},
			},
		},
	}}

	input := map[string]any{
		"logql_query": `{service="payments-api"}`,
		"start_time":  "2026-07-29T09:45:00Z",
		"end_time":    "2026-07-29T10:05:00Z",
		"limit":       100,
	}
	out := executeQueryLoki(context.Background(), logs, input)

	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	entries := out["logs"].([]map[string]any)
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0]["message"] != "newer message" {
		t.Fatalf("expected newest entry first, got %v", entries[0]["message"])
	}
}

func TestExecuteQueryLoki_TruncatesLongMessages(t *testing.T) {
	long := make([]byte, 2500)
	for i := range long {
		long[i] = 'x'
	}
	logs := &stubLogs{result: map[string]any{
		"data": map[string]any{
			"result": []any{
				map[string]any{
					"stream": map[string]any{},
					"values": []any{[]any{"1690000000000000000", string(long)}},
				},
			},
		},
	}}
	input := map[string]any{"logql_query": "{}", "start_time": "2026-07-29T09:45:00Z", "end_time": "2026-07-29T10:05:00Z"}
	out := executeQueryLoki(context.Background(), logs, input)
	entries := out["logs"].([]map[string]any)
	msg := entries[0]["message"].(string)
	if len(msg) >= 2500 {
		t.Fatalf("expected message truncated, got length %d", len(msg))
	}
	if msg[len(msg)-len("... [truncated]"):] != "... [truncated]" {
		t.Fatalf("expected truncation suffix, got %q", msg)
	}
}

func TestExecuteQueryLoki_InvalidTimestampReturnsFailure(t *testing.T) {
	out := executeQueryLoki(context.Background(), &stubLogs{}, map[string]any{
		"logql_query": "{}", "start_time": "not-a-time", "end_time": "2026-07-29T10:05:00Z",
	})
	if out["success"] != false {
		t.Fatalf("expected failure for invalid start_time, got %v", out)
	}
}

func TestExecuteQueryCortex_ReshapesSeriesWithSummary(t *testing.T) {
	metrics := &stubMetrics{result: map[string]any{
		"data": map[string]any{
			"result": []any{
				map[string]any{
					"metric": map[string]any{"service": "payments-api"},
					"values": []any{
						[]any{float64(1690000000), "42.5"},
						[]any{float64(1690000060), "43.1"},
					},
				},
			},
		},
	}}
	input := map[string]any{"promql_query": "up{}", "start_time": "2026-07-29T09:45:00Z", "end_time": "2026-07-29T10:05:00Z"}
	out := executeQueryCortex(context.Background(), metrics, input)

	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if out["series_count"] != 1 {
		t.Fatalf("expected 1 series, got %v", out["series_count"])
	}
}

func TestNanoStringToISO_ParsesValidNanoTimestamp(t *testing.T) {
	got := nanoStringToISO("1690000000000000000")
	want := time.Unix(0, 1690000000000000000).UTC().Format(time.RFC3339)
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestClampInt_BoundsValue(t *testing.T) {
	if clampInt(5000, 1, 2000) != 2000 {
		t.Fatalf("expected clamp to max")
	}
	if clampInt(-5, 1, 2000) != 1 {
		t.Fatalf("expected clamp to min")
	}
	if clampInt(500, 1, 2000) != 500 {
		t.Fatalf("expected value unchanged within bounds")
	}
}
