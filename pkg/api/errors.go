package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/rca-service/pkg/store"
)

// errorResponse is the {error, message, details?} shape spec §7 requires.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// mapServiceError maps a service/store error to the HTTP status spec §7
// assigns it, adapted from the teacher's pkg/api/errors.go (mapServiceError)
// to gin instead of echo.
func mapServiceError(c *gin.Context, err error) {
	var ve *store.ValidationError
	switch {
	case err == nil:
		return
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation_error",
			Message: "request failed validation",
			Details: ve.Error(),
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: "resource not found",
		})
	case errors.Is(err, store.ErrAlreadyExists):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error:   "already_exists",
			Message: "resource already exists",
		})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error:   "internal_error",
			Message: "an unexpected error occurred",
			Details: err.Error(),
		})
	}
}

func respondUpstreamUnready(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, errorResponse{
		Error:   "upstream_unready",
		Message: message,
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, errorResponse{
		Error:   "validation_error",
		Message: message,
	})
}
