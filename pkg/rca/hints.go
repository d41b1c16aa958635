package rca

import (
	"fmt"
	"sort"
	"strings"
)

// logFilterLabels are the label keys useful for narrowing a LogQL selector,
// in priority order.
var logFilterLabels = []string{"service", "device", "namespace", "pod", "container", "job", "app", "instance"}
var logExcludeLabels = map[string]bool{"alertname": true, "severity": true, "prometheus": true, "monitor": true, "__name__": true}

// alertLogPatterns maps a substring of the alert name to a LogQL line
// filter tuned for that failure class. The first matching key wins.
var alertLogPatterns = map[string]string{
	"disk":    `|~ "(?i)(disk|space|storage|quota|full)"`,
	"memory":  `|~ "(?i)(oom|out of memory|memory|heap)"`,
	"cpu":     `|~ "(?i)(cpu|throttl|load)"`,
	"network": `|~ "(?i)(connection|timeout|refused|unreachable|network)"`,
	"database": `|~ "(?i)(database|db|sql|query|transaction|deadlock)"`,
	"health":  `|~ "(?i)(health|ready|liveness|probe)"`,
}

// orderedLogPatternKeys fixes pattern-match order so hint generation is
// deterministic (Go map iteration isn't).
var orderedLogPatternKeys = []string{"disk", "memory", "cpu", "network", "database", "health"}

// LogQLQueryBuilder builds LogQL query hints from an alert's labels.
type LogQLQueryBuilder struct {
	Labels map[string]string
}

// BaseSelector builds the label selector shared by every suggested query.
func (b *LogQLQueryBuilder) BaseSelector() string {
	selected := map[string]string{}
	for _, key := range logFilterLabels {
		if v, ok := b.Labels[key]; ok {
			selected[key] = v
		}
	}
	if len(selected) == 0 {
		for k, v := range b.Labels {
			if !logExcludeLabels[k] {
				selected[k] = v
			}
		}
	}
	if len(selected) == 0 {
		return "{}"
	}
	return "{" + joinSelectors(selected) + "}"
}

// ErrorQuery builds a query for generic error-pattern log lines.
func (b *LogQLQueryBuilder) ErrorQuery() string {
	return b.BaseSelector() + ` |~ "(?i)(error|exception|fail|fatal|panic|critical)"`
}

// AlertnameQuery builds a query tuned to the alert's failure class, falling
// back to ErrorQuery when no pattern matches.
func (b *LogQLQueryBuilder) AlertnameQuery(alertname string) string {
	lower := strings.ToLower(alertname)
	for _, key := range orderedLogPatternKeys {
		if strings.Contains(lower, key) {
			return b.BaseSelector() + " " + alertLogPatterns[key]
		}
	}
	return b.ErrorQuery()
}

type querySuggestion struct {
	Query       string
	Description string
}

func (b *LogQLQueryBuilder) suggestions(alertname string) []querySuggestion {
	base := b.BaseSelector()
	out := []querySuggestion{
		{Query: b.ErrorQuery(), Description: "Error logs from the affected service"},
	}
	lower := strings.ToLower(alertname)
	for _, key := range orderedLogPatternKeys {
		if strings.Contains(lower, key) {
			out = append(out, querySuggestion{
				Query:       base + " " + alertLogPatterns[key],
				Description: fmt.Sprintf("Logs related to %s issues", key),
			})
		}
	}
	out = append(out, querySuggestion{Query: base, Description: "All logs from the affected service for context"})
	return out
}

// QueryHints renders the suggested-queries block shown to the model.
func (b *LogQLQueryBuilder) QueryHints(alertname string) string {
	lines := []string{"Suggested LogQL queries for this alert:"}
	for i, s := range b.suggestions(alertname) {
		lines = append(lines, fmt.Sprintf("  %d. %s:", i+1, s.Description))
		lines = append(lines, "     "+s.Query)
	}
	return strings.Join(lines, "\n")
}

// metricFilterLabels are the label keys useful for narrowing a PromQL
// selector, in priority order.
var metricFilterLabels = []string{"service", "namespace", "pod", "container", "job", "app", "instance", "node"}
var metricExcludeLabels = map[string]bool{"alertname": true, "severity": true, "__name__": true}

type metricPattern struct {
	Query       string
	Description string
}

// alertMetricPatterns maps a substring of the alert name to PromQL
// templates with a "SELECTOR" placeholder for the alert's label selector.
var alertMetricPatterns = map[string][]metricPattern{
	"disk": {
		{Query: "100 - (node_filesystem_avail_bytes{SELECTOR} / node_filesystem_size_bytes{SELECTOR} * 100)", Description: "Disk usage percentage"},
		{Query: "node_filesystem_avail_bytes{SELECTOR}", Description: "Available disk space"},
	},
	"memory": {
		{Query: "100 * (1 - node_memory_MemAvailable_bytes{SELECTOR} / node_memory_MemTotal_bytes{SELECTOR})", Description: "Memory usage percentage"},
		{Query: "container_memory_working_set_bytes{SELECTOR}", Description: "Container memory usage"},
	},
	"cpu": {
		{Query: `100 * (1 - avg(rate(node_cpu_seconds_total{mode="idle",SELECTOR}[5m])))`, Description: "Node CPU usage"},
		{Query: "sum(rate(container_cpu_usage_seconds_total{SELECTOR}[5m])) by (container)", Description: "Container CPU usage"},
	},
	"network": {
		{Query: "rate(node_network_receive_bytes_total{SELECTOR}[5m])", Description: "Network receive rate"},
		{Query: "rate(node_network_transmit_bytes_total{SELECTOR}[5m])", Description: "Network transmit rate"},
	},
	"error": {
		{Query: `sum(rate(http_requests_total{status=~"5..",SELECTOR}[5m]))`, Description: "5xx error rate"},
		{Query: `sum(rate(http_requests_total{status=~"4..",SELECTOR}[5m]))`, Description: "4xx error rate"},
	},
	"latency": {
		{Query: "histogram_quantile(0.95, rate(http_request_duration_seconds_bucket{SELECTOR}[5m]))", Description: "P95 latency"},
		{Query: "histogram_quantile(0.99, rate(http_request_duration_seconds_bucket{SELECTOR}[5m]))", Description: "P99 latency"},
	},
	"availability": {
		{Query: "up{SELECTOR}", Description: "Service availability"},
		{Query: "sum(up{SELECTOR}) / count(up{SELECTOR})", Description: "Availability ratio"},
	},
}

var orderedMetricPatternKeys = []string{"disk", "memory", "cpu", "network", "error", "latency", "availability"}

// PromQLQueryBuilder builds PromQL query hints from an alert's labels.
type PromQLQueryBuilder struct {
	Labels map[string]string
}

// LabelSelector builds the raw (brace-free) PromQL label selector shared by
// every suggested query.
func (b *PromQLQueryBuilder) LabelSelector() string {
	selected := map[string]string{}
	for _, key := range metricFilterLabels {
		if v, ok := b.Labels[key]; ok {
			selected[key] = v
		}
	}
	if len(selected) == 0 {
		for k, v := range b.Labels {
			if !metricExcludeLabels[k] {
				selected[k] = v
			}
		}
	}
	if len(selected) == 0 {
		return ""
	}
	return joinSelectors(selected)
}

func (b *PromQLQueryBuilder) applySelector(template string) string {
	selector := b.LabelSelector()
	out := strings.ReplaceAll(template, "{SELECTOR}", "{"+selector+"}")
	return strings.ReplaceAll(out, "SELECTOR", selector)
}

func (b *PromQLQueryBuilder) suggestions(alertname string) []querySuggestion {
	lower := strings.ToLower(alertname)
	var out []querySuggestion
	for _, key := range orderedMetricPatternKeys {
		if strings.Contains(lower, key) {
			for _, p := range alertMetricPatterns[key] {
				out = append(out, querySuggestion{Query: b.applySelector(p.Query), Description: p.Description})
			}
		}
	}
	out = append(out, querySuggestion{Query: b.applySelector("up{SELECTOR}"), Description: "Service availability"})
	if service, ok := b.Labels["service"]; ok {
		out = append(out, querySuggestion{
			Query: fmt.Sprintf(`sum(rate(http_requests_total{service=%q,status=~"5.."}[5m])) / sum(rate(http_requests_total{service=%q}[5m]))`, service, service),
			Description: fmt.Sprintf("Error rate for %s", service),
		})
	}
	return out
}

// QueryHints renders the suggested-queries block shown to the model.
func (b *PromQLQueryBuilder) QueryHints(alertname string) string {
	lines := []string{"Suggested PromQL queries for this alert:"}
	for i, s := range b.suggestions(alertname) {
		lines = append(lines, fmt.Sprintf("  %d. %s:", i+1, s.Description))
		lines = append(lines, "     "+s.Query)
	}
	return strings.Join(lines, "\n")
}

func joinSelectors(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return strings.Join(parts, ", ")
}
