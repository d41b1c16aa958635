package logsclient

import (
	"sort"
	"strings"
)

// DefaultMaxEntries is the sampling cap applied when the caller doesn't
// specify one.
const DefaultMaxEntries = 500

var errorPatterns = []string{"error", "exception", "fail", "fatal", "panic", "critical"}

// SampleResults reduces a Loki query_range response to at most maxEntries
// log lines, tagging the result with an `_sampling` block describing what
// happened. Strategies: "priority" (keep error-matching lines first),
// "even" (quota per stream, stride-sampled), "head"/"tail" (walk the
// streams in order, keeping each stream's first/last entries until N are
// kept in total). Results below the cap pass through unchanged.
func SampleResults(results map[string]any, maxEntries int, strategy string) map[string]any {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if strategy == "" {
		strategy = "even"
	}

	data, ok := results["data"].(map[string]any)
	if !ok {
		return results
	}
	streamsRaw, ok := data["result"].([]any)
	if !ok {
		return results
	}

	totalEntries := 0
	for _, s := range streamsRaw {
		totalEntries += len(streamValues(s))
	}
	if totalEntries <= maxEntries {
		return results
	}

	var sampledStreams []any
	switch strategy {
	case "priority":
		sampledStreams = samplePriority(streamsRaw, maxEntries)
	case "head":
		sampledStreams = sampleEdge(streamsRaw, maxEntries, true)
	case "tail":
		sampledStreams = sampleEdge(streamsRaw, maxEntries, false)
	default: // "even"
		sampledStreams = sampleEven(streamsRaw, maxEntries)
	}

	sampledTotal := 0
	for _, s := range sampledStreams {
		sampledTotal += len(streamValues(s))
	}

	return map[string]any{
		"status": results["status"],
		"data": map[string]any{
			"resultType": data["resultType"],
			"result":     sampledStreams,
			"stats":      data["stats"],
		},
		"_sampling": map[string]any{
			"original_entries": totalEntries,
			"sampled_entries":  sampledTotal,
			"strategy":         strategy,
		},
	}
}

type logEntry struct {
	timestamp string
	message   string
	labels    map[string]any
}

func samplePriority(streams []any, maxEntries int) []any {
	var errorEntries, otherEntries []logEntry
	for _, s := range streams {
		stream, _ := s.(map[string]any)
		labels, _ := stream["stream"].(map[string]any)
		for _, v := range streamValues(s) {
			pair, ok := v.([]any)
			if !ok || len(pair) != 2 {
				continue
			}
			ts, _ := pair[0].(string)
			msg, _ := pair[1].(string)
			entry := logEntry{timestamp: ts, message: msg, labels: labels}
			if containsAny(strings.ToLower(msg), errorPatterns) {
				errorEntries = append(errorEntries, entry)
			} else {
				otherEntries = append(otherEntries, entry)
			}
		}
	}

	keptErrors := errorEntries
	if len(keptErrors) > maxEntries {
		keptErrors = keptErrors[:maxEntries]
	}
	remaining := maxEntries - len(keptErrors)
	var keptOthers []logEntry
	if remaining > 0 && len(otherEntries) > 0 {
		if remaining < len(otherEntries) {
			keptOthers = otherEntries[:remaining]
		} else {
			keptOthers = otherEntries
		}
	}

	all := append(keptErrors, keptOthers...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].timestamp > all[j].timestamp })

	groups := map[string]*struct {
		labels map[string]any
		values []any
	}{}
	var order []string
	for _, e := range all {
		key := labelsKey(e.labels)
		g, ok := groups[key]
		if !ok {
			g = &struct {
				labels map[string]any
				values []any
			}{labels: e.labels}
			groups[key] = g
			order = append(order, key)
		}
		g.values = append(g.values, []any{e.timestamp, e.message})
	}

	out := make([]any, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, map[string]any{"stream": g.labels, "values": g.values})
	}
	return out
}

func sampleEven(streams []any, maxEntries int) []any {
	if len(streams) == 0 {
		return nil
	}
	perStream := maxEntries / len(streams)
	if perStream < 1 {
		perStream = 1
	}

	out := make([]any, 0, len(streams))
	for _, s := range streams {
		stream, _ := s.(map[string]any)
		values := streamValues(s)
		if len(values) <= perStream {
			out = append(out, s)
			continue
		}
		step := float64(len(values)) / float64(perStream)
		sampled := make([]any, 0, perStream)
		for i := 0; i < perStream; i++ {
			sampled = append(sampled, values[int(float64(i)*step)])
		}
		out = append(out, map[string]any{"stream": stream["stream"], "values": sampled})
	}
	return out
}

func sampleEdge(streams []any, maxEntries int, head bool) []any {
	out := make([]any, 0, len(streams))
	kept := 0
	for _, s := range streams {
		if kept >= maxEntries {
			break
		}
		stream, _ := s.(map[string]any)
		values := streamValues(s)
		toKeep := len(values)
		if remaining := maxEntries - kept; remaining < toKeep {
			toKeep = remaining
		}
		var slice []any
		if head {
			slice = values[:toKeep]
		} else {
			slice = values[len(values)-toKeep:]
		}
		out = append(out, map[string]any{"stream": stream["stream"], "values": slice})
		kept += toKeep
	}
	return out
}

func streamValues(s any) []any {
	m, ok := s.(map[string]any)
	if !ok {
		return nil
	}
	values, _ := m["values"].([]any)
	return values
}

func labelsKey(labels map[string]any) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		if v, ok := labels[k].(string); ok {
			b.WriteString(v)
		}
		b.WriteString(";")
	}
	return b.String()
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
