package service

import (
	"context"
	"strings"
	"time"

	"mediagrab/internal/metrics"
	"mediagrab/internal/model"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/validator"

	"go.uber.org/zap"
)

// Prober fetches the format catalog of a source URL
type Prober interface {
	Probe(ctx context.Context, url string) (*model.MediaInfo, error)
}

// ProbeCache stores probe results between analyze calls
type ProbeCache interface {
	Get(ctx context.Context, url string) (*model.MediaInfo, error)
	Set(ctx context.Context, url string, info *model.MediaInfo) error
	Delete(ctx context.Context, url string) error
}

// VideoService answers analyze requests
type VideoService struct {
	prober         Prober
	cache          ProbeCache
	allowedDomains []string
	categories     []string
	probeTimeout   time.Duration
}

// NewVideoService creates a new video service. cache may be nil.
func NewVideoService(prober Prober, cache ProbeCache, cfg *model.Config) *VideoService {
	return &VideoService{
		prober:         prober,
		cache:          cache,
		allowedDomains: cfg.Security.AllowedDomains,
		categories:     cfg.QualityCategories.Enabled,
		probeTimeout:   time.Duration(cfg.Download.ProbeTimeout) * time.Second,
	}
}

// Analyze probes url and returns its quality options
func (s *VideoService) Analyze(ctx context.Context, url string) (*model.AnalyzeResponse, error) {
	url = strings.TrimSpace(url)
	if _, err := validator.DetectPlatform(url, s.allowedDomains); err != nil {
		logger.Logger.Warn("Rejected analyze for unsupported source", zap.String("url", url))
		return nil, err
	}

	info, err := s.GetMediaInfo(ctx, url)
	if err != nil {
		return nil, err
	}

	options := FilterCategories(SelectTiers(info), s.categories)
	logger.Logger.Info("Video info retrieved",
		zap.String("title", info.Title),
		zap.Int("formats", len(info.Formats)),
		zap.Int("options", len(options)))

	return &model.AnalyzeResponse{
		Title:    info.Title,
		Uploader: info.Uploader,
		Formats:  options,
	}, nil
}

// GetMediaInfo returns the probe result for url, from cache when possible.
// Cache failures are logged and otherwise ignored.
func (s *VideoService) GetMediaInfo(ctx context.Context, url string) (*model.MediaInfo, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, url)
		switch {
		case err != nil:
			logger.Logger.Warn("Probe cache lookup failed", zap.Error(err))
		case cached != nil:
			metrics.RecordProbeCache("hit")
			return cached, nil
		default:
			metrics.RecordProbeCache("miss")
		}
	}

	probeCtx := ctx
	if s.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
	}

	info, err := s.prober.Probe(probeCtx, url)
	if err != nil {
		metrics.RecordProbe("failed")
		logger.Logger.Error("Failed to probe formats", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	metrics.RecordProbe("success")

	if s.cache != nil {
		if err := s.cache.Set(ctx, url, info); err != nil {
			logger.Logger.Warn("Probe cache store failed", zap.Error(err))
		}
	}
	return info, nil
}
