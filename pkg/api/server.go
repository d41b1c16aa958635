// Package api exposes the RCA service's HTTP surface (spec §6): the
// Alertmanager-compatible ingest webhook and the read API projecting
// persisted alerts, incidents, and reports. Grounded on the teacher's
// gin-based pkg/api/handlers.go and cmd/tarsy/main.go router setup — the
// framework actually pinned in the teacher's go.mod, not the later
// echo-based pkg/api/server.go generation.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeready-toolchain/rca-service/pkg/ingest"
	"github.com/codeready-toolchain/rca-service/pkg/services"
)

// Server holds the wired Services and exposes the gin routes spec §6 names.
type Server struct {
	services *services.Services
}

// NewServer builds a Server, grounded on the teacher's NewServer(sessionMgr,
// llmClient, wsHub) constructor shape.
func NewServer(svc *services.Services) *Server {
	return &Server{services: svc}
}

// Router builds the gin.Engine with every route spec §6 requires registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.Healthz)
	// promhttp.Handler serves the default registry, which also carries the
	// domain counters/histograms pkg/metrics registers via promauto
	// (ingestion throughput, correlation decisions, cache hit rate, RCA
	// iteration counts) alongside the Go-runtime collectors.
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/webhooks/alertmanager", s.IngestWebhook)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/alerts", s.ListAlerts)
		v1.GET("/alerts/:id", s.GetAlert)

		v1.GET("/incidents", s.ListIncidents)
		v1.GET("/incidents/:id", s.GetIncident)
		v1.GET("/incidents/:id/alerts", s.ListIncidentAlerts)
		v1.POST("/incidents/:id/correlate", s.CorrelateIncident)
		v1.GET("/incidents/:id/report", s.GetIncidentReport)

		v1.GET("/reports", s.ListReports)
		v1.GET("/reports/:id", s.GetReport)
		v1.GET("/reports/:id/export", s.ExportReport)

		v1.POST("/admin/incidents/reset-stuck", s.ResetStuckIncidents)
	}

	return r
}

// Healthz implements the readiness endpoint: per-dependency booleans, 503
// when any is false (spec §7).
func (s *Server) Healthz(c *gin.Context) {
	r := s.services.Ready(c.Request.Context())
	status := http.StatusOK
	if !r.AllHealthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, r)
}

// IngestWebhook implements POST /webhooks/alertmanager (spec §6.1).
func (s *Server) IngestWebhook(c *gin.Context) {
	var payload ingest.AlertmanagerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result := s.services.Pipeline.ProcessBatch(c.Request.Context(), &payload)

	if result.AlertsReceived == 0 && len(payload.Alerts) > 0 {
		respondBadRequest(c, "no alert in the batch passed validation")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":          "accepted",
		"message":         "alerts accepted for processing",
		"alerts_received": result.AlertsReceived,
		"processing_ids":  result.ProcessingIDs,
	})
}
