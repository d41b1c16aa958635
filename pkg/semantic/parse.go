package semantic

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/itchyny/gojq"
)

// llmVerdict is the tolerant result of parsing the arbitration LLM's reply.
type llmVerdict struct {
	Related    bool
	Confidence float64
	Reason     string
}

// relatedQuery and friends extract top-level fields from decoded JSON,
// tolerating a response that omits fields or uses near-miss key names. An
// object nested under another key is not searched; its fields take the
// defaults.
var (
	relatedQuery    = mustParseQuery(`(.related // .is_related // false)`)
	confidenceQuery = mustParseQuery(`(.confidence // .confidence_score // 0.5)`)
	reasonQuery     = mustParseQuery(`(.reason // .explanation // "LLM analysis")`)
)

func mustParseQuery(src string) *gojq.Query {
	q, err := gojq.Parse(src)
	if err != nil {
		panic(err)
	}
	return q
}

// parseLLMResponse tolerantly extracts a verdict from the model's raw text:
// strip markdown code fences, attempt a JSON decode, run it through the jq
// filters above. ok is false when the content couldn't be decoded as JSON at
// all — the caller treats that the same as a transport failure (spec §4.3:
// "on parse or transport failure, fall back to category match, confidence
// 0.6"), not as a guessed verdict of its own.
func parseLLMResponse(content string) (verdict llmVerdict, ok bool) {
	body := stripCodeFences(content)

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return llmVerdict{}, false
	}

	return llmVerdict{
		Related:    queryBool(relatedQuery, decoded),
		Confidence: queryFloat(confidenceQuery, decoded, 0.5),
		Reason:     queryString(reasonQuery, decoded, "LLM analysis"),
	}, true
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```json"); i >= 0 {
		rest := content[i+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if i := strings.Index(content, "```"); i >= 0 {
		rest := content[i+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return content
}

func queryBool(q *gojq.Query, input any) bool {
	iter := q.RunWithContext(context.Background(), input)
	v, ok := iter.Next()
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func queryFloat(q *gojq.Query, input any, def float64) float64 {
	iter := q.RunWithContext(context.Background(), input)
	v, ok := iter.Next()
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

func queryString(q *gojq.Query, input any, def string) string {
	iter := q.RunWithContext(context.Background(), input)
	v, ok := iter.Next()
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}
