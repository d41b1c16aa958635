// Package semantic implements the LLM-arbitrated second phase of alert
// correlation: a local keyword-category classifier plus an LLM call that
// decides whether a new alert and a candidate incident describe the same
// underlying problem. Grounded on
// original_source/src/services/semantic_correlator.py.
package semantic

import (
	"strings"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

// Category is one of the fixed incident categories the classifier picks from.
type Category string

const (
	CategoryNetworkConnectivity Category = "network_connectivity"
	CategoryNetworkCongestion   Category = "network_congestion"
	CategoryRoutingProtocol     Category = "routing_protocol"
	CategoryDatabaseFailure     Category = "database_failure"
	CategoryMemoryExhaustion    Category = "memory_exhaustion"
	CategoryDiskExhaustion      Category = "disk_exhaustion"
	CategoryServiceFailure      Category = "service_failure"
	CategoryLatencyDegradation  Category = "latency_degradation"
	CategoryUnknown             Category = "unknown"
)

// categoryKeywords is the fixed keyword list per category used by the local
// classifier. Order matters only for deterministic best-category tie-break.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryNetworkConnectivity, []string{
		"interface down", "link down", "carrier lost", "port down",
		"connection refused", "unreachable", "no route", "network partition",
	}},
	{CategoryNetworkCongestion, []string{
		"congestion", "packet drop", "buffer overflow", "queue full",
		"bandwidth saturation", "throttling", "qos violation", "traffic spike",
	}},
	{CategoryRoutingProtocol, []string{
		"bgp", "ospf", "eigrp", "routing", "neighbor down", "adjacency",
		"route withdrawal", "convergence", "peering",
	}},
	{CategoryDatabaseFailure, []string{
		"database", "postgresql", "mysql", "mongodb", "redis",
		"connection pool", "replication", "replica", "primary", "failover",
	}},
	{CategoryMemoryExhaustion, []string{
		"oom", "out of memory", "memory leak", "heap", "gc pressure",
		"memory exhaustion", "killed", "evicted",
	}},
	{CategoryDiskExhaustion, []string{
		"disk full", "disk space", "storage", "inode", "quota exceeded",
		"filesystem", "volume",
	}},
	{CategoryServiceFailure, []string{
		"crash", "error", "exception", "failed", "unavailable",
		"circuit breaker", "timeout", "unhealthy",
	}},
	{CategoryLatencyDegradation, []string{
		"latency", "slow", "degraded", "response time", "p99", "p95",
		"high latency", "performance",
	}},
}

// incompatiblePairs are category pairs that can never describe the same
// incident, checked symmetrically.
var incompatiblePairs = [][2]Category{
	{CategoryNetworkConnectivity, CategoryMemoryExhaustion},
	{CategoryNetworkConnectivity, CategoryDiskExhaustion},
	{CategoryNetworkCongestion, CategoryDatabaseFailure},
	{CategoryNetworkCongestion, CategoryMemoryExhaustion},
	{CategoryRoutingProtocol, CategoryDiskExhaustion},
	{CategoryMemoryExhaustion, CategoryDiskExhaustion},
}

// AreIncompatible reports whether a and b can never belong to the same
// incident.
func AreIncompatible(a, b Category) bool {
	for _, pair := range incompatiblePairs {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true
		}
	}
	return false
}

// CategorizeAlert classifies an alert by the fraction of each category's
// keyword list found in its lowercased context text, returning the
// best-scoring category and its normalized confidence.
func CategorizeAlert(alert *models.Alert) (Category, float64) {
	text := strings.ToLower(alertContext(alert))

	best := CategoryUnknown
	bestScore := 0.0
	for _, entry := range categoryKeywords {
		matches := 0
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		score := float64(matches) / float64(len(entry.keywords))
		if score > bestScore {
			bestScore = score
			best = entry.category
		}
	}
	return best, bestScore
}

// alertContext builds the same concatenated label/annotation text the LLM
// prompt also uses, so the classifier and the prompt see consistent context.
func alertContext(alert *models.Alert) string {
	var b strings.Builder
	b.WriteString("Alert: ")
	b.WriteString(alert.AlertName)
	b.WriteString("\nSeverity: ")
	b.WriteString(string(alert.Severity))
	b.WriteString("\nService: ")
	b.WriteString(labelOr(alert.Labels, "service", "unknown"))
	b.WriteString("\nNamespace: ")
	b.WriteString(labelOr(alert.Labels, "namespace", "unknown"))
	b.WriteString("\nDatacenter: ")
	b.WriteString(labelOr(alert.Labels, "datacenter", "unknown"))
	b.WriteString("\nNetwork Segment: ")
	b.WriteString(networkSegment(alert.Labels))
	b.WriteString("\nSummary: ")
	b.WriteString(labelOr(alert.Annotations, "summary", "N/A"))
	b.WriteString("\nDescription: ")
	b.WriteString(labelOr(alert.Annotations, "description", "N/A"))

	for _, key := range []string{"node", "interface", "cluster", "upstream", "downstream", "peer"} {
		if v, ok := alert.Label(key); ok {
			b.WriteString("\n")
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(v)
		}
	}
	return b.String()
}

func networkSegment(labels map[string]string) string {
	if v, ok := labels["network_segment"]; ok {
		return v
	}
	if v, ok := labels["network_path"]; ok {
		return v
	}
	return "unknown"
}

func labelOr(m map[string]string, key, def string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return def
}
