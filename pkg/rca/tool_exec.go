package rca

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/logsclient"
	"github.com/codeready-toolchain/rca-service/pkg/metricsclient"
)

// LogsQuerier is the subset of logsclient.Client the orchestrator depends
// on, so tests can substitute a fake backend.
type LogsQuerier interface {
	QueryRange(ctx context.Context, query string, start, end time.Time, limit int, direction string) (map[string]any, error)
}

// MetricsQuerier is the subset of metricsclient.Client the orchestrator
// depends on, so tests can substitute a fake backend.
type MetricsQuerier interface {
	RangeQuery(ctx context.Context, query string, start, end time.Time, step string) (map[string]any, error)
}

// executeQueryLoki runs the query_loki tool: parses the normalized
// arguments, queries the backend, bounds the result with
// logsclient.SampleResults, and reshapes it into the flat logs list the
// model expects.
func executeQueryLoki(ctx context.Context, logs LogsQuerier, input map[string]any) map[string]any {
	query, _ := input["logql_query"].(string)
	startStr, _ := input["start_time"].(string)
	endStr, _ := input["end_time"].(string)
	limit := clampInt(coerceInt(input["limit"], 500), 1, 2000)

	start, err := parseTimestamp(startStr)
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("invalid start_time: %v", err), "query": query}
	}
	end, err := parseTimestamp(endStr)
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("invalid end_time: %v", err), "query": query}
	}

	raw, err := logs.QueryRange(ctx, query, start, end, limit, "backward")
	if err != nil {
		return map[string]any{"success": false, "error": err.Error(), "query": query}
	}

	sampled := logsclient.SampleResults(raw, limit, "priority")
	formatted := formatLokiResult(sampled)

	return map[string]any{
		"success":      true,
		"query":        query,
		"time_range":   map[string]any{"start": startStr, "end": endStr},
		"result_count": formatted.totalEntries,
		"streams_count": formatted.streamsCount,
		"logs":         formatted.logs,
		"truncated":    formatted.totalEntries >= limit,
	}
}

type formattedLogs struct {
	logs         []map[string]any
	streamsCount int
	totalEntries int
}

// formatLokiResult flattens Loki's stream-grouped response into a
// timestamp-descending list of {timestamp, message, labels}, truncating
// any message over 2000 characters.
func formatLokiResult(result map[string]any) formattedLogs {
	out := formattedLogs{}
	data, ok := result["data"].(map[string]any)
	if !ok {
		return out
	}
	streams, ok := data["result"].([]any)
	if !ok {
		return out
	}
	out.streamsCount = len(streams)

	type entry struct {
		timestamp string
		message   string
		labels    map[string]any
	}
	var entries []entry
	for _, s := range streams {
		stream, ok := s.(map[string]any)
		if !ok {
			continue
		}
		labels, _ := stream["stream"].(map[string]any)
		values, _ := stream["values"].([]any)
		out.totalEntries += len(values)
		for _, v := range values {
			pair, ok := v.([]any)
			if !ok || len(pair) != 2 {
				continue
			}
			tsNanoStr, _ := pair[0].(string)
			msg, _ := pair[1].(string)
			ts := nanoStringToISO(tsNanoStr)
			entries = append(entries, entry{timestamp: ts, message: msg, labels: labels})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].timestamp > entries[j].timestamp })

	out.logs = make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		msg := e.message
		if len(msg) > 2000 {
			msg = msg[:2000] + "... [truncated]"
		}
		out.logs = append(out.logs, map[string]any{
			"timestamp": e.timestamp,
			"message":   msg,
			"labels":    e.labels,
		})
	}
	return out
}

// executeQueryCortex runs the query_cortex tool: parses the normalized
// arguments, queries the backend, adds per-series summaries via
// metricsclient.AggregateResults, and reshapes it into the flat metrics
// list the model expects.
func executeQueryCortex(ctx context.Context, metrics MetricsQuerier, input map[string]any) map[string]any {
	query, _ := input["promql_query"].(string)
	startStr, _ := input["start_time"].(string)
	endStr, _ := input["end_time"].(string)
	step, _ := input["step"].(string)
	if step == "" {
		step = "60s"
	}

	start, err := parseTimestamp(startStr)
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("invalid start_time: %v", err), "query": query}
	}
	end, err := parseTimestamp(endStr)
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("invalid end_time: %v", err), "query": query}
	}

	raw, err := metrics.RangeQuery(ctx, query, start, end, step)
	if err != nil {
		return map[string]any{"success": false, "error": err.Error(), "query": query}
	}

	aggregated := metricsclient.AggregateResults(raw, "avg", metricsclient.DefaultMaxSeries)
	series, metricsList := formatCortexResult(aggregated)

	return map[string]any{
		"success":      true,
		"query":        query,
		"time_range":   map[string]any{"start": startStr, "end": endStr},
		"step":         step,
		"series_count": series,
		"metrics":      metricsList,
	}
}

// formatCortexResult reshapes an aggregated Cortex response into a flat
// per-series list with ISO-timestamped data points (last 100 kept) and a
// summary, for the model to read.
func formatCortexResult(result map[string]any) (int, []map[string]any) {
	data, ok := result["data"].(map[string]any)
	if !ok {
		return 0, nil
	}
	seriesList, ok := data["result"].([]any)
	if !ok {
		return 0, nil
	}

	out := make([]map[string]any, 0, len(seriesList))
	for _, s := range seriesList {
		series, ok := s.(map[string]any)
		if !ok {
			continue
		}
		labels, _ := series["metric"].(map[string]any)
		values, _ := series["values"].([]any)

		points := make([]map[string]any, 0, len(values))
		for _, v := range values {
			pair, ok := v.([]any)
			if !ok || len(pair) != 2 {
				continue
			}
			ts, ok := toFloatAny(pair[0])
			if !ok {
				continue
			}
			point := map[string]any{"timestamp": time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)}
			if valStr, ok := pair[1].(string); ok && valStr == "NaN" {
				point["value"] = nil
			} else if val, ok := toFloatAny(pair[1]); ok {
				point["value"] = val
			} else {
				point["value"] = nil
			}
			points = append(points, point)
		}
		if len(points) > 100 {
			points = points[len(points)-100:]
		}

		entry := map[string]any{
			"labels":       labels,
			"data_points":  points,
			"total_points": len(values),
		}
		if summary, ok := series["_summary"]; ok {
			entry["summary"] = summary
		}
		out = append(out, entry)
	}
	return len(seriesList), out
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05Z", s)
}

func nanoStringToISO(nanoStr string) string {
	nanos, err := strconv.ParseInt(nanoStr, 10, 64)
	if err != nil {
		return nanoStr
	}
	return time.Unix(0, nanos).UTC().Format(time.RFC3339)
}

func toFloatAny(v any) (float64, bool) {
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

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
