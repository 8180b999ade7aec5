package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalRedis "ridemeter/internal/redis"
	"ridemeter/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidSessionType),
		errors.Is(err, service.ErrInvalidRideTotal),
		errors.Is(err, service.ErrInvalidRideCount),
		errors.Is(err, service.ErrFutureActivity):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRideTotalDecrease),
		errors.Is(err, service.ErrStaleActivity),
		errors.Is(err, service.ErrNotVIP):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrStorageUnavailable),
		errors.Is(err, internalRedis.ErrLockTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
