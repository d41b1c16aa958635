// Package rca drives the LLM-directed root-cause investigation loop: it
// hands the model query_loki/query_cortex/generate_report tools, pins the
// query time window so the model can't hallucinate timestamps, and
// normalizes whatever arguments come back before executing them. Grounded
// on original_source/src/services/rca_agent.py and the query_loki/
// query_cortex/generate_report tool modules.
package rca

import "github.com/codeready-toolchain/rca-service/pkg/llm"

// QueryLokiTool is the query_loki tool declaration handed to the model on
// every turn.
var QueryLokiTool = llm.Tool{
	Name: "query_loki",
	Description: "Query logs from Loki using LogQL. Use this tool to retrieve relevant log entries " +
		"for alert analysis. Returns log lines with timestamps and labels.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"logql_query": map[string]any{
				"type": "string",
				"description": "LogQL query string. Examples:\n" +
					`- '{job="api"}' - all logs from api job` + "\n" +
					`- '{service="payment"} |= "error"' - logs containing 'error'` + "\n" +
					`- '{namespace="prod"} |~ "(ERROR|WARN)"' - regex match` + "\n" +
					`- '{app="web"} | json | level="error"' - JSON parsing`,
			},
			"start_time": map[string]any{
				"type":        "string",
				"description": "ISO 8601 start time for log range (e.g., '2025-01-15T10:00:00Z')",
			},
			"end_time": map[string]any{
				"type":        "string",
				"description": "ISO 8601 end time for log range (e.g., '2025-01-15T10:30:00Z')",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of log entries to return (default: 500, max: 2000)",
				"default":     500,
			},
		},
		"required": []string{"logql_query", "start_time", "end_time"},
	},
}

// QueryCortexTool is the query_cortex tool declaration handed to the model
// on every turn.
var QueryCortexTool = llm.Tool{
	Name: "query_cortex",
	Description: "Query metrics from Cortex using PromQL. Use this tool to retrieve metric data " +
		"for performance analysis. Returns time series data with labels and values.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"promql_query": map[string]any{
				"type": "string",
				"description": "PromQL query string. Examples:\n" +
					`- 'up{job="api"}' - service availability` + "\n" +
					"- 'rate(http_requests_total[5m])' - request rate\n" +
					"- 'histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))' - p95 latency\n" +
					`- '100 * (1 - avg(rate(node_cpu_seconds_total{mode="idle"}[5m])))' - CPU usage`,
			},
			"start_time": map[string]any{
				"type":        "string",
				"description": "ISO 8601 start time for metric range (e.g., '2025-01-15T10:00:00Z')",
			},
			"end_time": map[string]any{
				"type":        "string",
				"description": "ISO 8601 end time for metric range (e.g., '2025-01-15T10:30:00Z')",
			},
			"step": map[string]any{
				"type":        "string",
				"description": "Query resolution step (default: '60s'). Use larger steps for longer time ranges.",
				"default":     "60s",
			},
		},
		"required": []string{"promql_query", "start_time", "end_time"},
	},
}

// GenerateReportTool is the terminal tool declaration: calling it ends the
// investigation loop.
var GenerateReportTool = llm.Tool{
	Name: "generate_report",
	Description: "Generate the final RCA report with root cause, confidence score, evidence, " +
		"and remediation steps. Call this tool when you have gathered enough information " +
		"to make a determination about the root cause.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"root_cause": map[string]any{
				"type": "string",
				"description": "Clear description of the identified root cause based on the evidence. " +
					"Be specific about what failed and why. Must be derived from the actual " +
					"logs and metrics you queried, not from examples.",
			},
			"confidence_score": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 100,
				"description": "Confidence level in the root cause analysis (0-100%). " +
					"100% = definitive evidence, 75% = strong indicators, " +
					"50% = likely but incomplete evidence, <50% = uncertain",
			},
			"summary": map[string]any{
				"type": "string",
				"description": "Executive summary (2-3 sentences) for quick understanding. " +
					"Include: what happened, impact, and resolution status.",
			},
			"timeline": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"timestamp": map[string]any{"type": "string", "description": "ISO 8601 timestamp"},
						"event":     map[string]any{"type": "string", "description": "What happened"},
						"source":    map[string]any{"type": "string", "enum": []string{"alert", "log", "metric"}, "description": "Event source"},
					},
					"required": []string{"timestamp", "event", "source"},
				},
				"description": "Chronological sequence of events leading to the incident",
			},
			"evidence": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"logs": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"timestamp": map[string]any{"type": "string"},
								"message":   map[string]any{"type": "string"},
								"labels":    map[string]any{"type": "object"},
							},
							"required": []string{"timestamp", "message"},
						},
						"description": "Key log entries supporting the analysis",
					},
					"metrics": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":      map[string]any{"type": "string"},
								"value":     map[string]any{"type": "number"},
								"timestamp": map[string]any{"type": "string"},
								"labels":    map[string]any{"type": "object"},
							},
							"required": []string{"name", "value", "timestamp"},
						},
						"description": "Key metrics supporting the analysis",
					},
				},
				"description": "Evidence from logs and metrics",
			},
			"remediation_steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"priority": map[string]any{
							"type":        "string",
							"enum":        []string{"immediate", "long_term"},
							"description": "Action urgency: 'immediate' for actions to take now, 'long_term' for preventive measures",
						},
						"action": map[string]any{
							"type":        "string",
							"description": "Concise action title (e.g., 'Restart the payment-api pod')",
						},
						"command": map[string]any{
							"type":        "string",
							"description": "Specific command to run (e.g., 'kubectl rollout restart deployment/payment-api -n prod')",
						},
						"description": map[string]any{
							"type":        "string",
							"description": "Detailed explanation of why this action is needed and expected outcome",
						},
						"risk": map[string]any{
							"type":        "string",
							"enum":        []string{"low", "medium", "high"},
							"description": "Risk level: 'low' (safe), 'medium' (brief impact), 'high' (potential data loss/downtime)",
						},
						"category": map[string]any{
							"type":        "string",
							"enum":        []string{"restart", "scale", "config", "cleanup", "rollback", "investigate", "other"},
							"description": "Action category for grouping similar actions",
						},
						"estimated_impact": map[string]any{
							"type":        "string",
							"enum":        []string{"no_downtime", "brief_downtime", "service_restart", "data_loss_risk"},
							"description": "Expected impact on service availability",
						},
						"requires_approval": map[string]any{
							"type":        "boolean",
							"description": "Whether this action requires manual approval (true for high-risk actions)",
						},
						"automation_ready": map[string]any{
							"type":        "boolean",
							"description": "Whether this step can be automated (false if requires human judgment)",
						},
					},
					"required": []string{"priority", "action"},
				},
				"description": "Steps to resolve the issue and prevent recurrence",
			},
		},
		"required": []string{"root_cause", "confidence_score", "summary", "remediation_steps"},
	},
}

// Tools is the full tool set handed to the provider on every turn, in
// fixed order.
var Tools = []llm.Tool{QueryLokiTool, QueryCortexTool, GenerateReportTool}
