package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/store"
)

// ListAlerts implements GET /api/v1/alerts?status&severity&service&since&until&limit&offset.
func (s *Server) ListAlerts(c *gin.Context) {
	limit, offset := queryLimitOffset(c)

	filter := store.AlertFilter{Service: c.Query("service"), Limit: limit, Offset: offset}
	if v := c.Query("status"); v != "" {
		status := models.AlertStatus(v)
		filter.Status = &status
	}
	if v := c.Query("severity"); v != "" {
		sev := models.AlertSeverity(v)
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

	alerts, total, err := s.services.Store.ListAlertsFiltered(c.Request.Context(), filter)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  alerts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetAlert implements GET /api/v1/alerts/{id}.
func (s *Server) GetAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "id must be a UUID")
		return
	}

	alert, err := s.services.Store.GetAlertByID(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
