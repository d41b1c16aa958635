package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/rca-service/pkg/models"
	"github.com/codeready-toolchain/rca-service/pkg/report"
)

// ListReports implements GET /api/v1/reports?status&limit&offset.
func (s *Server) ListReports(c *gin.Context) {
	limit, offset := queryLimitOffset(c)

	var status *models.RCAReportStatus
	if v := c.Query("status"); v != "" {
		st := models.RCAReportStatus(v)
		status = &st
	}

	reports, err := s.services.Store.ListReports(c.Request.Context(), status, limit, offset)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reports, "limit": limit, "offset": offset})
}

// GetReport implements GET /api/v1/reports/{id}.
func (s *Server) GetReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "id must be a UUID")
		return
	}

	r, err := s.services.Store.GetReport(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ExportReport implements GET /api/v1/reports/{id}/export?format=json|markdown.
func (s *Server) ExportReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "id must be a UUID")
		return
	}

	r, err := s.services.Store.GetReport(c.Request.Context(), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		c.JSON(http.StatusOK, r)
	case "markdown":
		c.String(http.StatusOK, report.Markdown(r))
	default:
		respondBadRequest(c, "format must be 'json' or 'markdown'")
	}
}
