package metricsclient

import (
	"math"
	"sort"
	"strconv"
)

// DefaultMaxSeries is the per-query series cap applied when the caller
// doesn't specify one.
const DefaultMaxSeries = 50

// AggregateResults reduces a Cortex query_range response to at most
// maxSeries series, ranking by aggregation method when downsampling is
// needed, and always annotates every kept series with a `_summary` block
// (min/max/avg/latest/count). Downsampled responses additionally carry an
// `_aggregation` block describing what was dropped.
func AggregateResults(results map[string]any, aggregation string, maxSeries int) map[string]any {
	if aggregation == "" {
		aggregation = "avg"
	}
	if maxSeries <= 0 {
		maxSeries = DefaultMaxSeries
	}

	data, ok := results["data"].(map[string]any)
	if !ok {
		return results
	}
	seriesList, ok := data["result"].([]any)
	if !ok {
		return results
	}

	if len(seriesList) <= maxSeries {
		return addSummaries(results, aggregation)
	}

	type scored struct {
		score  float64
		series any
	}
	ranked := make([]scored, 0, len(seriesList))
	for _, s := range seriesList {
		values := numericValues(s)
		var score float64
		switch {
		case len(values) == 0:
			score = 0
		case aggregation == "max" || aggregation == "sum":
			score = maxOf(values)
		case aggregation == "min":
			score = -minOf(values)
		default: // avg, latest
			score = sumOf(values) / float64(len(values))
		}
		ranked = append(ranked, scored{score, s})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	kept := make([]any, 0, maxSeries)
	for i := 0; i < maxSeries && i < len(ranked); i++ {
		kept = append(kept, ranked[i].series)
	}

	sampled := map[string]any{
		"status": results["status"],
		"data": map[string]any{
			"resultType": data["resultType"],
			"result":     kept,
		},
		"_aggregation": map[string]any{
			"original_series": len(seriesList),
			"kept_series":     len(kept),
			"method":          aggregation,
		},
	}
	return addSummaries(sampled, aggregation)
}

func addSummaries(results map[string]any, _ string) map[string]any {
	data, ok := results["data"].(map[string]any)
	if !ok {
		return results
	}
	seriesList, ok := data["result"].([]any)
	if !ok {
		return results
	}

	for _, s := range seriesList {
		series, ok := s.(map[string]any)
		if !ok {
			continue
		}
		values := numericValues(s)
		if len(values) == 0 {
			series["_summary"] = map[string]any{"min": nil, "max": nil, "avg": nil, "latest": nil, "count": 0}
			continue
		}
		series["_summary"] = map[string]any{
			"min":    minOf(values),
			"max":    maxOf(values),
			"avg":    sumOf(values) / float64(len(values)),
			"latest": values[len(values)-1],
			"count":  len(values),
		}
	}
	return results
}

// ComputeRateOfChange returns the average per-second rate of change across
// the first and last samples of values, or nil if there are fewer than two
// usable points or the span is non-positive.
func ComputeRateOfChange(values []any) *float64 {
	points := timestampedValues(values)
	if len(points) < 2 {
		return nil
	}
	first, last := points[0], points[len(points)-1]
	span := last.ts - first.ts
	if span <= 0 {
		return nil
	}
	rate := (last.val - first.val) / span
	return &rate
}

// Anomaly is one detected out-of-band data point.
type Anomaly struct {
	Timestamp float64
	Value     float64
	ZScore    float64
	Metric    map[string]any
}

// DetectAnomalies flags data points more than thresholdStd standard
// deviations from their series' mean. Series with fewer than 3 usable
// points, or zero variance, are skipped.
func DetectAnomalies(results map[string]any, thresholdStd float64) []Anomaly {
	if thresholdStd <= 0 {
		thresholdStd = 2.0
	}
	var anomalies []Anomaly

	data, ok := results["data"].(map[string]any)
	if !ok {
		return anomalies
	}
	seriesList, ok := data["result"].([]any)
	if !ok {
		return anomalies
	}

	for _, s := range seriesList {
		points := timestampedValues(rawValues(s))
		if len(points) < 3 {
			continue
		}
		vals := make([]float64, len(points))
		for i, p := range points {
			vals[i] = p.val
		}
		mean := sumOf(vals) / float64(len(vals))
		var variance float64
		for _, v := range vals {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(vals))
		std := math.Sqrt(variance)
		if std == 0 {
			continue
		}

		series, _ := s.(map[string]any)
		metric, _ := series["metric"].(map[string]any)
		for _, p := range points {
			z := math.Abs(p.val-mean) / std
			if z > thresholdStd {
				anomalies = append(anomalies, Anomaly{Timestamp: p.ts, Value: p.val, ZScore: z, Metric: metric})
			}
		}
	}
	return anomalies
}

type tsValue struct {
	ts  float64
	val float64
}

func rawValues(s any) []any {
	m, ok := s.(map[string]any)
	if !ok {
		return nil
	}
	values, _ := m["values"].([]any)
	return values
}

func numericValues(s any) []float64 {
	points := timestampedValues(rawValues(s))
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.val
	}
	return out
}

func timestampedValues(values []any) []tsValue {
	out := make([]tsValue, 0, len(values))
	for _, v := range values {
		pair, ok := v.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		ts, ok := toFloat(pair[0])
		if !ok {
			continue
		}
		if s, ok := pair[1].(string); ok && s == "NaN" {
			continue
		}
		val, ok := toFloat(pair[1])
		if !ok {
			continue
		}
		out = append(out, tsValue{ts: ts, val: val})
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func sumOf(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
