package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResetStuckIncidents implements POST /api/v1/admin/incidents/reset-stuck:
// bulk transition of incidents stuck in "analyzing" back to "open".
func (s *Server) ResetStuckIncidents(c *gin.Context) {
	n, err := s.services.ResetStuckIncidents(c.Request.Context())
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reset_count": n})
}
