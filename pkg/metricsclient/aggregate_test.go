package metricsclient

import "testing"

func buildSeries(metric string, values ...float64) map[string]any {
	pairs := make([]any, 0, len(values))
	for i, v := range values {
		pairs = append(pairs, []any{float64(i), v})
	}
	return map[string]any{
		"metric": map[string]any{"name": metric},
		"values": pairs,
	}
}

func wrapSeries(series ...any) map[string]any {
	return map[string]any{
		"status": "success",
		"data": map[string]any{
			"resultType": "matrix",
			"result":     series,
		},
	}
}

func TestAggregateResults_AddsSummariesBelowCap(t *testing.T) {
	results := wrapSeries(buildSeries("a", 1, 2, 3))
	out := AggregateResults(results, "avg", 50)
	data := out["data"].(map[string]any)
	series := data["result"].([]any)[0].(map[string]any)
	summary := series["_summary"].(map[string]any)
	if summary["avg"] != 2.0 {
		t.Fatalf("expected avg 2.0, got %v", summary["avg"])
	}
	if summary["count"] != 3 {
		t.Fatalf("expected count 3, got %v", summary["count"])
	}
}

func TestAggregateResults_DownsamplesByMax(t *testing.T) {
	results := wrapSeries(
		buildSeries("low", 1, 1, 1),
		buildSeries("high", 100, 100, 100),
	)
	out := AggregateResults(results, "max", 1)
	agg := out["_aggregation"].(map[string]any)
	if agg["kept_series"] != 1 {
		t.Fatalf("expected 1 kept series, got %v", agg["kept_series"])
	}
	data := out["data"].(map[string]any)
	kept := data["result"].([]any)
	series := kept[0].(map[string]any)
	metric := series["metric"].(map[string]any)
	if metric["name"] != "high" {
		t.Fatalf("expected the higher-valued series to survive, got %v", metric["name"])
	}
}

func TestDetectAnomalies_FlagsOutlier(t *testing.T) {
	results := wrapSeries(buildSeries("cpu", 10, 10, 10, 10, 10, 200))
	anomalies := DetectAnomalies(results, 2.0)
	if len(anomalies) == 0 {
		t.Fatal("expected at least one anomaly")
	}
	if anomalies[0].Value != 200 {
		t.Fatalf("expected the outlier value 200, got %v", anomalies[0].Value)
	}
}

func TestDetectAnomalies_NoVarianceIsSkipped(t *testing.T) {
	results := wrapSeries(buildSeries("flat", 5, 5, 5, 5))
	anomalies := DetectAnomalies(results, 2.0)
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies in a flat series, got %d", len(anomalies))
	}
}

func TestComputeRateOfChange_Basic(t *testing.T) {
	values := []any{[]any{float64(0), 10.0}, []any{float64(10), 20.0}}
	rate := ComputeRateOfChange(values)
	if rate == nil {
		t.Fatal("expected a rate")
	}
	if *rate != 1.0 {
		t.Fatalf("expected rate 1.0, got %v", *rate)
	}
}

func TestComputeRateOfChange_InsufficientData(t *testing.T) {
	values := []any{[]any{float64(0), 10.0}}
	if rate := ComputeRateOfChange(values); rate != nil {
		t.Fatalf("expected nil rate, got %v", *rate)
	}
}
