package logsclient

import "testing"

func buildStreams(counts ...int) []any {
	streams := make([]any, 0, len(counts))
	for i, n := range counts {
		values := make([]any, 0, n)
		for j := 0; j < n; j++ {
			values = append(values, []any{"1", "line"})
		}
		streams = append(streams, map[string]any{
			"stream": map[string]any{"stream_idx": i},
			"values": values,
		})
	}
	return streams
}

func wrapResults(streams []any) map[string]any {
	return map[string]any{
		"status": "success",
		"data": map[string]any{
			"resultType": "streams",
			"result":     streams,
		},
	}
}

func TestSampleResults_BelowCapPassesThrough(t *testing.T) {
	results := wrapResults(buildStreams(10))
	out := SampleResults(results, 500, "even")
	if _, ok := out["_sampling"]; ok {
		t.Fatal("did not expect _sampling annotation below the cap")
	}
}

func TestSampleResults_HeadKeepsFirstN(t *testing.T) {
	results := wrapResults(buildStreams(100))
	out := SampleResults(results, 10, "head")
	sampling, ok := out["_sampling"].(map[string]any)
	if !ok {
		t.Fatal("expected _sampling annotation above the cap")
	}
	if sampling["sampled_entries"] != 10 {
		t.Fatalf("expected 10 sampled entries, got %v", sampling["sampled_entries"])
	}
}

func TestSampleResults_PriorityKeepsErrorsFirst(t *testing.T) {
	streams := []any{
		map[string]any{
			"stream": map[string]any{"a": "1"},
			"values": []any{
				[]any{"1", "all is fine"},
				[]any{"2", "a fatal error occurred"},
				[]any{"3", "still fine"},
			},
		},
	}
	results := wrapResults(streams)
	out := SampleResults(results, 1, "priority")
	data := out["data"].(map[string]any)
	resultStreams := data["result"].([]any)
	if len(resultStreams) != 1 {
		t.Fatalf("expected 1 stream, got %d", len(resultStreams))
	}
	kept := resultStreams[0].(map[string]any)["values"].([]any)
	if len(kept) != 1 {
		t.Fatalf("expected 1 kept entry, got %d", len(kept))
	}
	pair := kept[0].([]any)
	if pair[1] != "a fatal error occurred" {
		t.Fatalf("expected the error entry to be prioritized, got %v", pair[1])
	}
}
