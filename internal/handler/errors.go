package handler

import (
	"context"
	"errors"
	"net/http"

	"mediagrab/internal/model"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the API error body. Callers can
// tell an unsupported source from an unreachable one and from a failed
// download.
func respondError(c *gin.Context, err error) {
	status, code, message := classify(err)
	c.JSON(status, model.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, model.ErrUnsupportedSource):
		return http.StatusBadRequest, "unsupported_source", "URL domain is not supported"
	case errors.Is(err, model.ErrInvalidFormatID):
		return http.StatusBadRequest, "invalid_format", "Invalid format ID"
	case errors.Is(err, model.ErrProbeFailed):
		return http.StatusBadGateway, "probe_failed", err.Error()
	case errors.Is(err, model.ErrNoOutputProduced):
		return http.StatusInternalServerError, "no_output", "Downloader finished without producing a file"
	case errors.Is(err, model.ErrProcessFailed):
		return http.StatusBadGateway, "download_failed", err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "Operation timed out"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}
