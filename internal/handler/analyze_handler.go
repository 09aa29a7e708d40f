package handler

import (
	"context"
	"net/http"

	"mediagrab/internal/model"
	"mediagrab/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Analyzer lists the quality options of a source URL
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*model.AnalyzeResponse, error)
}

// Pinger is a dependency whose health is reported by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// AnalyzeHandler handles analyze and health requests
type AnalyzeHandler struct {
	analyzer Analyzer
	cache    Pinger
}

// NewAnalyzeHandler creates a new analyze handler. cache may be nil.
func NewAnalyzeHandler(analyzer Analyzer, cache Pinger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, cache: cache}
}

// Analyze handles POST /analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger.Warn("Invalid analyze request", zap.Error(err))
		badRequest(c, "Video URL is required")
		return
	}

	resp, err := h.analyzer.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		logger.Logger.Warn("Analyze failed", zap.String("url", req.URL), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /health
func (h *AnalyzeHandler) HealthCheck(c *gin.Context) {
	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			logger.Logger.Warn("Probe cache unhealthy", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"service": "mediagrab",
				"cache":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mediagrab",
	})
}
