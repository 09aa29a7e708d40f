package handler

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"mediagrab/internal/model"
	"mediagrab/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Downloader produces a local file for a download request
type Downloader interface {
	Download(ctx context.Context, req *model.DownloadRequest) (*model.DownloadResult, error)
}

// UsageRecorder charges produced bytes to a client
type UsageRecorder interface {
	AddUsage(ip string, sizeBytes int64)
}

// DownloadHandler handles download requests
type DownloadHandler struct {
	downloader Downloader
	usage      UsageRecorder
}

// NewDownloadHandler creates a new download handler. usage may be nil.
func NewDownloadHandler(d Downloader, usage UsageRecorder) *DownloadHandler {
	return &DownloadHandler{downloader: d, usage: usage}
}

// Download handles POST /download and streams the produced file back. The
// file stays on disk until the cleanup scheduler removes it.
func (h *DownloadHandler) Download(c *gin.Context) {
	var req model.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger.Warn("Invalid download request", zap.Error(err))
		badRequest(c, "Invalid request format")
		return
	}

	result, err := h.downloader.Download(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := os.Stat(result.LocalFilePath); err != nil {
		logger.Logger.Error("Produced file vanished before streaming",
			zap.String("path", result.LocalFilePath),
			zap.Error(err))
		respondError(c, model.ErrNoOutputProduced)
		return
	}

	clientIP := c.ClientIP()
	if h.usage != nil {
		h.usage.AddUsage(clientIP, result.SizeBytes)
	}

	c.Header("Content-Disposition", buildContentDispositionHeader(result.FileName))
	c.Header("Content-Type", result.ContentType)
	c.Header("X-Source", result.SourceLabel)
	c.File(result.LocalFilePath)

	logger.Logger.Info("File sent to client",
		zap.String("file", result.FileName),
		zap.String("source", result.SourceLabel),
		zap.Int64("size_bytes", result.SizeBytes),
		zap.String("ip", clientIP))
}

// buildContentDispositionHeader builds a Content-Disposition header, using
// RFC 5987 encoding for unicode and special characters
func buildContentDispositionHeader(filename string) string {
	needsEncoding := strings.ContainsAny(filename, " \t\n\r")
	for _, r := range filename {
		if r > 127 || r == '"' || r == '\\' || r == ';' || r == ',' {
			needsEncoding = true
			break
		}
	}

	if !needsEncoding {
		return fmt.Sprintf(`attachment; filename="%s"`, filename)
	}

	return fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename))
}
