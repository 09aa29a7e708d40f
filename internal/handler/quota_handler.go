package handler

import (
	"net/http"

	"mediagrab/internal/model"

	"github.com/gin-gonic/gin"
)

// QuotaReporter exposes the quota state of a client
type QuotaReporter interface {
	GetQuotaInfo(ip string) model.QuotaInfo
}

// QuotaHandler reports download quotas
type QuotaHandler struct {
	quota QuotaReporter
}

// NewQuotaHandler creates a new quota handler
func NewQuotaHandler(q QuotaReporter) *QuotaHandler {
	return &QuotaHandler{quota: q}
}

// GetQuota handles GET /quota for the calling client
func (h *QuotaHandler) GetQuota(c *gin.Context) {
	c.JSON(http.StatusOK, h.quota.GetQuotaInfo(c.ClientIP()))
}
