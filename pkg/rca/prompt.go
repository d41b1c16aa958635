package rca

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// systemPrompt is the base instructions handed to the model as the system
// message on every turn. Expert context (pkg/config.Config.ExpertContext)
// is appended below it when configured.
const systemPrompt = `You are an expert Site Reliability Engineer (SRE) and Root Cause Analysis specialist. Your task is to analyze alerts from infrastructure monitoring systems and determine the root cause of issues.

## Your Workflow

1. Understand the alert(s): severity, labels, annotations, timing. For multiple correlated alerts, identify the chronological sequence - the alert that fired first is often closest to the root cause.
2. Gather evidence: use query_loki for error messages, exceptions, and relevant events; use query_cortex for resource utilization, error rates, and performance indicators. Focus on the time window around the alert.
3. Analyze patterns: error patterns in logs, resource exhaustion, cascading failures, configuration changes or deployments, external dependency issues.
4. Determine root cause: identify the primary cause vs symptoms, assign a confidence score (0-100), document supporting evidence.
5. Generate the report: call generate_report with a clear root cause, confidence score, timeline, supporting evidence, and actionable remediation steps (both immediate and long-term).

## Multi-Alert Correlation Analysis

When analyzing multiple correlated alerts:

- Order alerts chronologically - the first alert is often the root cause.
- Identify the causal chain - map how one failure triggered subsequent failures.
- Distinguish root cause from symptoms. Root cause indicators: disk full, OOM killer, resource quota exceeded, configuration error. Symptom indicators: health check failed, service unavailable, high latency, timeout.

Common causal patterns:
- Resource exhaustion chain: DiskFull -> LogWriteFailed -> ServiceCrash -> HealthCheckFailed
- Memory pressure chain: MemoryPressure -> OOMKilled -> PodRestart -> ServiceDegraded
- Network chain: NetworkPartition -> TimeoutErrors -> RetryStorms -> CircuitBreakerOpen
- Dependency chain: DatabaseOverload -> SlowQueries -> APITimeout -> UserErrors

For multi-alert incidents: root_cause should focus on the primary cause, not symptoms; summary should explain the full causal chain concisely; timeline should include all correlated alerts with their relationships; remediation_steps should address the root cause first, then add preventive measures for the cascade.

## Tool Usage Guidelines

- query_loki: use LogQL to search logs. Start broad, then narrow down.
- query_cortex: use PromQL to query metrics.
- generate_report: call this once when you have enough evidence to make a determination.

## Remediation Guidelines

Every remediation step MUST have a command field containing an actual executable shell command - not a description, not a placeholder, not an empty string.

For each step, try to cover three phases: how to verify the issue, the fix command itself, and how to validate the fix worked.

Immediate actions (priority: "immediate"): restart, scale, rollback, cleanup - actions to restore service now.
Long-term actions (priority: "long_term"): config, monitoring, architecture, process - preventive measures.

For each remediation step, provide: action (concise title), command (required), description, risk (low/medium/high), category (restart/scale/config/cleanup/rollback/investigate/other), estimated_impact (no_downtime/brief_downtime/service_restart/data_loss_risk), requires_approval (true for high-risk actions), automation_ready.

Order remediation steps by priority: immediate actions first. Assign lower confidence scores when evidence is incomplete. Always provide evidence for your conclusions; if data is unavailable, say so in the report.`

// BuildSystemPrompt returns the system prompt, with expertContext appended
// when non-empty.
func BuildSystemPrompt(expertContext string) string {
	if expertContext == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + expertContext
}

// queryWindow is the pinned [start,end] time range the orchestrator
// computes once per investigation and enforces on every tool call,
// regardless of what the model supplies.
type queryWindow struct {
	start time.Time
	end    time.Time
}

func (w queryWindow) startISO() string { return w.start.UTC().Format("2006-01-02T15:04:05Z") }
func (w queryWindow) endISO() string   { return w.end.UTC().Format("2006-01-02T15:04:05Z") }

// formatAlertForAnalysis builds the initial prompt for a single-alert
// investigation and the pinned query window to enforce on tool calls.
func formatAlertForAnalysis(alert *models.Alert, now time.Time) (string, queryWindow) {
	window := queryWindow{
		start: alert.StartsAt.Add(-15 * time.Minute),
	}
	window.end = alert.StartsAt.Add(5 * time.Minute)
	if now.After(window.end) {
		window.end = now
	}

	data := map[string]any{
		"alertname":  alert.AlertName,
		"severity":   alert.Severity,
		"status":     alert.Status,
		"labels":     alert.Labels,
		"annotations": alert.Annotations,
		"starts_at":  alert.StartsAt.Format(time.RFC3339),
	}
	payload, _ := json.MarshalIndent(data, "", "  ")

	logHints := (&LogQLQueryBuilder{Labels: alert.Labels}).QueryHints(alert.AlertName)
	metricHints := (&PromQLQueryBuilder{Labels: alert.Labels}).QueryHints(alert.AlertName)

	dependencyHints := ""
	if deps := detectDependencies(alert.Labels, alert.AlertName); len(deps) > 0 {
		dependencyHints = "\n\n## Potential Dependencies\n\nConsider querying these related services: " + strings.Join(deps, ", ")
	}

	prompt := fmt.Sprintf(`Please analyze the following alert and determine its root cause:

## Alert Details

`+"```json\n%s\n```"+`

## Time Context - USE THESE EXACT TIMESTAMPS

- Alert Start: %s
- Current Time: %s
- Query Start Time (use this): %s
- Query End Time (use this): %s

IMPORTANT: When calling query_loki or query_cortex, use these EXACT values:
- start_time: "%s"
- end_time: "%s"

## Query Hints

%s

%s%s

## Instructions

1. Query relevant logs and metrics using the timestamps above
2. Identify the root cause of this alert
3. Generate a comprehensive RCA report with remediation steps

Begin your analysis by querying for relevant data.`,
		payload, alert.StartsAt.Format(time.RFC3339), now.Format(time.RFC3339),
		window.startISO(), window.endISO(), window.startISO(), window.endISO(),
		logHints, metricHints, dependencyHints)

	return prompt, window
}

// formatIncidentForAnalysis builds the initial prompt for a multi-alert
// incident investigation and the pinned query window to enforce on tool
// calls.
func formatIncidentForAnalysis(incident *models.Incident, alerts []*models.Alert, now time.Time) (string, queryWindow) {
	sorted := make([]*models.Alert, len(alerts))
	copy(sorted, alerts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartsAt.Before(sorted[j].StartsAt) })

	var earliest time.Time
	for _, a := range sorted {
		if earliest.IsZero() || a.StartsAt.Before(earliest) {
			earliest = a.StartsAt
		}
	}

	window := queryWindow{end: now}
	switch {
	case !earliest.IsZero():
		window.start = earliest.Add(-15 * time.Minute)
	case !incident.StartedAt.IsZero():
		window.start = incident.StartedAt.Add(-15 * time.Minute)
	default:
		window.start = now.Add(-30 * time.Minute)
	}

	type alertInfo struct {
		AlertName string            `json:"alertname"`
		Severity  string            `json:"severity"`
		Status    string            `json:"status"`
		Labels    map[string]string `json:"labels"`
		StartsAt  string            `json:"starts_at"`
		IsPrimary bool              `json:"is_primary"`
	}
	alertsData := make([]alertInfo, 0, len(sorted))
	for _, a := range sorted {
		isPrimary := incident.PrimaryAlertID != nil && a.ID == *incident.PrimaryAlertID
		alertsData = append(alertsData, alertInfo{
			AlertName: a.AlertName,
			Severity:  string(a.Severity),
			Status:    string(a.Status),
			Labels:    a.Labels,
			StartsAt:  a.StartsAt.Format(time.RFC3339),
			IsPrimary: isPrimary,
		})
	}
	alertsJSON, _ := json.MarshalIndent(alertsData, "", "  ")

	type timelineEntry struct {
		Timestamp string `json:"timestamp"`
		Event     string `json:"event"`
		Severity  string `json:"severity"`
		IsPrimary bool   `json:"is_primary"`
		Order     int    `json:"order"`
	}
	timeline := make([]timelineEntry, 0, len(alertsData))
	for i, a := range alertsData {
		timeline = append(timeline, timelineEntry{
			Timestamp: a.StartsAt,
			Event:     "Alert fired: " + a.AlertName,
			Severity:  a.Severity,
			IsPrimary: a.IsPrimary,
			Order:     i + 1,
		})
	}
	timelineJSON, _ := json.MarshalIndent(timeline, "", "  ")

	incidentData := map[string]any{
		"title":              incident.Title,
		"severity":           incident.Severity,
		"affected_services":  incident.AffectedServices,
		"started_at":         incident.StartedAt.Format(time.RFC3339),
		"alert_count":        len(alerts),
		"correlation_reason": incident.CorrelationReason,
	}
	incidentJSON, _ := json.MarshalIndent(incidentData, "", "  ")

	correlationReason := incident.CorrelationReason
	if correlationReason == "" {
		correlationReason = "Time proximity and label matching"
	}

	firstTarget := "unknown"
	if len(sorted) > 0 {
		if v, ok := sorted[0].Label("service"); ok {
			firstTarget = v
		} else if v, ok := sorted[0].Label("device"); ok {
			firstTarget = v
		}
	}

	prompt := fmt.Sprintf(`Please analyze the following incident with multiple correlated alerts and determine the root cause:

## Incident Summary

`+"```json\n%s\n```"+`

## Correlated Alerts (in chronological order)

`+"```json\n%s\n```"+`

## Initial Timeline (alerts only - enrich with logs/metrics)

`+"```json\n%s\n```"+`

## Correlation Context

- Why correlated: %s
- Primary alert (suspected root cause): the alert marked is_primary is the system's initial guess
- Your task: verify or correct this assessment based on evidence

## Time Context - USE THESE EXACT TIMESTAMPS

- Incident Start: %s
- Current Time: %s
- Query Start Time (use this): %s
- Query End Time (use this): %s

IMPORTANT: When calling query_loki or query_cortex, use these EXACT values:
- start_time: "%s"
- end_time: "%s"

## Instructions

1. Analyze the sequence of alerts to understand the cascade of events
2. Query relevant logs and metrics using the timestamps above
3. Identify the PRIMARY root cause (the first failure that triggered the chain)
4. Distinguish between the root cause and secondary symptoms
5. Generate a comprehensive RCA report covering root cause vs symptoms, a timeline of the progression of failures, evidence from logs and metrics, and remediation steps for both root cause and prevention

## You MUST use tools

First call query_loki to search for error logs from the primary alert's service, then analyze the results, then call generate_report with your findings. Do not respond with text only.

Begin by calling query_loki for: %s`,
		incidentJSON, alertsJSON, timelineJSON, correlationReason,
		incident.StartedAt.Format(time.RFC3339), now.Format(time.RFC3339),
		window.startISO(), window.endISO(), window.startISO(), window.endISO(),
		firstTarget)

	return prompt, window
}

// detectDependencies guesses related services worth querying, based on
// common naming conventions rather than any real topology data.
func detectDependencies(labels map[string]string, alertname string) []string {
	var deps []string
	service := strings.ToLower(labels["service"])
	alertnameLower := strings.ToLower(alertname)

	if containsAny(service, "api", "backend", "service") {
		deps = append(deps, "postgres", "mysql", "redis", "mongodb")
	}
	if containsAny(alertnameLower, "database", "db", "postgres", "mysql", "redis") {
		deps = append(deps, "all-api-services")
	}
	if namespace, ok := labels["namespace"]; ok && containsAny(alertnameLower, "network", "connection", "timeout") {
		deps = append(deps, "all-services-in-"+namespace)
	}
	if job, ok := labels["job"]; ok {
		if idx := strings.LastIndex(job, "-"); idx >= 0 {
			deps = append(deps, job[:idx]+"-*")
		}
	}

	if len(deps) > 5 {
		deps = deps[:5]
	}
	return deps
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
