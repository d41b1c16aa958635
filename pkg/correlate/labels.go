// Package correlate implements the two-phase alert-to-incident correlation
// engine: structural label/affinity scoring followed by optional semantic
// arbitration. Grounded on original_source/src/services/correlation_service.py.
package correlate

// CorrelationLabels are checked for direct, exact-or-partial label matches.
var CorrelationLabels = []string{"service", "namespace", "node", "instance", "job", "app"}

// InfrastructureLabels carry cross-namespace correlation signal — two alerts
// sharing a datacenter or network segment are related even without a
// matching service label.
var InfrastructureLabels = []string{
	"datacenter", "network_segment", "cluster", "zone", "region", "rack", "network_path",
}

// CrossReferenceLabels name another entity the alert is about (e.g. the peer
// on the other end of a BGP session).
var CrossReferenceLabels = []string{
	"target_node", "destination", "source", "peer", "upstream", "downstream", "dependency",
}

// InfrastructureAlertPatterns are substrings of an alertname that mark it as
// a likely network/infrastructure root cause rather than a symptom.
var InfrastructureAlertPatterns = []string{
	"interface", "bgp", "ospf", "network", "route", "switch", "router",
	"connectivity", "partition", "unreachable", "carrier", "link",
}

// CausalIndicators weights substrings of a lowercased alertname by how
// likely they are to indicate a root cause versus a downstream symptom.
// Infrastructure causes rank highest, resource exhaustion next, generic
// symptoms lowest.
var CausalIndicators = map[string]int{
	"interface": 15,
	"bgp":       14,
	"carrier":   14,
	"ospf":      13,
	"partition": 13,
	"route":     12,
	"network":   11,
	"disk":      10,
	"storage":   10,
	"memory":    9,
	"oom":       9,
	"cpu":       8,
	"quota":     8,
	"connectivity": 5,
	"error":        4,
	"timeout":      3,
	"latency":      3,
	"health":       3,
	"unavailable":  2,
}

// infraNamespaces are namespaces already considered infrastructure-owned;
// affinity scoring for them is skipped since they aren't "crossing over"
// from application alerts.
var infraNamespaces = map[string]bool{
	"network-infra":  true,
	"infrastructure": true,
	"networking":     true,
}
