package rca

// normalizeToolInput fixes up common parameter-naming mistakes the model
// makes and, for query_loki/query_cortex, unconditionally overrides any
// timestamps the model supplied with the pinned window — models routinely
// hallucinate timestamps from their training data instead of using the
// ones handed to them in the prompt.
func normalizeToolInput(toolName string, input map[string]any, window queryWindow) map[string]any {
	normalized := make(map[string]any, len(input))
	for k, v := range input {
		normalized[k] = v
	}

	switch toolName {
	case "query_loki":
		renameAlias(normalized, map[string]string{
			"end": "end_time", "start": "start_time", "query": "logql_query", "logql": "logql_query",
		})
		normalized["start_time"] = window.startISO()
		normalized["end_time"] = window.endISO()

	case "query_cortex":
		renameAlias(normalized, map[string]string{
			"end": "end_time", "start": "start_time", "query": "promql_query", "promql": "promql_query",
		})
		normalized["start_time"] = window.startISO()
		normalized["end_time"] = window.endISO()

	case "generate_report":
		renameAlias(normalized, map[string]string{
			"root": "root_cause", "cause": "root_cause",
			"confidence": "confidence_score", "score": "confidence_score",
		})
		if _, ok := normalized["root_cause"]; !ok {
			if summary, ok := normalized["summary"].(string); ok {
				normalized["root_cause"] = summary
			} else {
				normalized["root_cause"] = "Root cause could not be determined from available evidence"
			}
		}
		if _, ok := normalized["confidence_score"]; !ok {
			normalized["confidence_score"] = 50
		}
		if _, ok := normalized["summary"]; !ok {
			if rootCause, ok := normalized["root_cause"].(string); ok {
				normalized["summary"] = rootCause
			} else {
				normalized["summary"] = "Analysis completed"
			}
		}
		normalized["confidence_score"] = coerceInt(normalized["confidence_score"], 50)
	}

	return normalized
}

// renameAlias moves input[wrong] to input[correct] when correct isn't
// already set, and drops wrong either way.
func renameAlias(input map[string]any, aliases map[string]string) {
	for wrong, correct := range aliases {
		v, present := input[wrong]
		if !present {
			continue
		}
		if _, taken := input[correct]; !taken {
			input[correct] = v
		}
		delete(input, wrong)
	}
}

func coerceInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}
