package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/store"
)

// incidentView is the JSON shape of one row in the incidents list, carrying
// alert_count alongside the incident fields (spec §6.2).
type incidentView struct {
	*models.Incident
	AlertCount int `json:"alert_count"`
}

// ListIncidents implements GET /api/v1/incidents?status&severity&service&since&until&limit&offset.
func (s *Server) ListIncidents(c *gin.Context) {
	limit, offset := queryLimitOffset(c)

	filter := store.IncidentFilter{Service: c.Query("service"), Limit: limit, Offset: offset}
	if v := c.Query("status"); v != "" {
		status := models.IncidentStatus(v)
		filter.Status = &status
	}
	if v := c.Query("severity"); v != "" {
		sev := models.IncidentSeverity(v)
		filter.Severity = &sev
	}
	since, err := queryTime(c, "since")
	if err != nil {
		respondBadRequest(c, "since must be RFC3339")
		return
	}
	filter.Since = since
	until, err := queryTime(c, "until")
	if err != nil {
		respondBadRequest(c, "until must be RFC3339")
		return
	}
	filter.Until = until

	rows, total, err := s.services.Store.ListIncidentsFiltered(c.Request.Context(), filter)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	items := make([]incidentView, 0, len(rows))
	for _, r := range rows {
		items = append(items, incidentView{Incident: r.Incident, AlertCount: r.AlertCount})
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// incidentDetail is GET /api/v1/incidents/{id}'s response shape: the
// incident alongside its full member alert list.
type incidentDetail struct {
	*models.Incident
	Alerts []*models.Alert `json:"alerts"`
}

// GetIncident implements GET /api/v1/incidents/{id} → incident with full
// member alerts.
func (s *Server) GetIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "id must be a UUID")
		return
	}

	incident, err := s.services.Store.GetIncident(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	alerts, err := s.services.Store.ListAlertsByIncident(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, incidentDetail{Incident: incident, Alerts: alerts})
}

// ListIncidentAlerts implements GET /api/v1/incidents/{id}/alerts → member
// alerts ordered by starts_at asc.
func (s *Server) ListIncidentAlerts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "id must be a UUID")
		return
	}

	alerts, err := s.services.Store.ListAlertsByIncident(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": alerts})
}

// correlateRequest is POST /api/v1/incidents/{id}/correlate's body.
type correlateRequest struct {
	AlertIDs []uuid.UUID `json:"alert_ids"`
}

// CorrelateIncident implements POST /api/v1/incidents/{id}/correlate: moves
// the named alerts onto this incident, appending "Manual correlation" to its
// correlation_reason.
func (s *Server) CorrelateIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "id must be a UUID")
		return
	}

	var req correlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if len(req.AlertIDs) == 0 {
		respondBadRequest(c, "alert_ids must be non-empty")
		return
	}

	if err := s.services.CorrelateManually(c.Request.Context(), id, req.AlertIDs); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "correlated"})
}

// GetIncidentReport implements GET /api/v1/incidents/{id}/report.
func (s *Server) GetIncidentReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "id must be a UUID")
		return
	}

	report, err := s.services.Store.GetReportByIncident(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
