// Package metrics holds the Prometheus collectors the rest of the module
// instruments against, grounded on cycle-start-hosting's
// internal/api/middleware/metrics.go: package-level promauto vars registered
// against the default registry, scraped by the /metrics handler already
// wired in pkg/api/server.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsIngestedTotal counts webhook alerts by how the ingestion
	// decision table (spec §4.1) disposed of them.
	AlertsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rca_alerts_ingested_total",
			Help: "Alerts processed by the ingestion pipeline, by outcome.",
		},
		[]string{"outcome"},
	)

	// CorrelationDecisionsTotal counts CorrelateAlert outcomes by how the
	// alert was resolved against existing incidents (spec §4.2).
	CorrelationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rca_correlation_decisions_total",
			Help: "Alert correlation decisions, by outcome.",
		},
		[]string{"decision"},
	)

	// CacheResultsTotal counts query-result cache lookups by keyspace and
	// hit/miss, the basis for the cache hit rate SPEC_FULL.md calls for.
	CacheResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rca_cache_results_total",
			Help: "Query result cache lookups, by keyspace and result.",
		},
		[]string{"keyspace", "result"},
	)

	// CacheEvictionsTotal counts entries dropped from a keyspace, whether by
	// TTL expiry or FIFO eviction under size pressure.
	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rca_cache_evictions_total",
			Help: "Query result cache entries evicted, by keyspace.",
		},
		[]string{"keyspace"},
	)

	// RCAIterations observes how many agent-loop iterations (spec §5.2) one
	// investigation took before producing a report.
	RCAIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rca_investigation_iterations",
			Help:    "Agent-loop iterations per RCA investigation.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	// RCAToolCallsTotal counts tool invocations the agent loop made, by tool
	// name, across all investigations.
	RCAToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rca_tool_calls_total",
			Help: "Tool calls executed by the RCA agent loop, by tool.",
		},
		[]string{"tool"},
	)

	// RCAInvestigationsTotal counts completed investigations by terminal
	// outcome (report produced vs. failed outright).
	RCAInvestigationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rca_investigations_total",
			Help: "Completed RCA investigations, by outcome.",
		},
		[]string{"outcome"},
	)
)
