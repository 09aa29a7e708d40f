package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediagrab/config"
	"mediagrab/internal/cache"
	"mediagrab/internal/extractor"
	"mediagrab/internal/handler"
	"mediagrab/internal/model"
	"mediagrab/internal/service"
	"mediagrab/internal/storage"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting media download server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	// Storage and deferred cleanup
	storageManager := storage.NewManager(&cfg.Storage)
	if err := storageManager.EnsureDownloadDir(); err != nil {
		logger.Logger.Fatal("Failed to create download directory", zap.Error(err))
	}
	if _, err := storageManager.ReclaimOrphans(time.Duration(cfg.Storage.OrphanMaxAge)*time.Second, service.OutputPrefixes()...); err != nil {
		logger.Logger.Warn("Failed to scan download directory for leftovers", zap.Error(err))
	}
	storageManager.Start()
	defer storageManager.Stop()
	logger.Logger.Info("Download directory ready",
		zap.String("dir", storageManager.DownloadDir()),
		zap.Duration("grace_period", storageManager.GracePeriod()))

	// External tools
	tools := extractor.ResolveTools(cfg.Tools)
	logger.Logger.Info("Resolved external tools",
		zap.String("yt-dlp", tools.YtDlp),
		zap.String("ffmpeg", tools.Ffmpeg))
	ytdlp := extractor.NewYtDlp(tools, cfg.Download.Retries, nil)
	ffmpeg := extractor.NewFFmpeg(tools, nil)

	// Optional probe cache
	var probeCache service.ProbeCache
	var cachePinger handler.Pinger
	if cfg.Cache.Enabled {
		pc, err := cache.NewProbeCache(cfg.Cache)
		if err != nil {
			logger.Logger.Warn("Probe cache disabled", zap.Error(err))
		} else {
			defer pc.Close()
			probeCache, cachePinger = pc, pc
			logger.Logger.Info("Probe cache enabled", zap.String("host", cfg.Cache.Host), zap.Int("ttl_seconds", cfg.Cache.TTL))
		}
	}

	// Services
	videoService := service.NewVideoService(ytdlp, probeCache, cfg)
	downloadService := service.NewDownloadService(ytdlp, ffmpeg, storageManager, probeCache, cfg)

	quotaService := service.NewQuotaService(&cfg.Quota)
	defer quotaService.Stop()

	rateLimitService := service.NewRateLimitService(&cfg.RateLimit)
	defer rateLimitService.Stop()

	// Handlers
	analyzeHandler := handler.NewAnalyzeHandler(videoService, cachePinger)
	var usage handler.UsageRecorder
	if cfg.Quota.Enabled {
		usage = quotaService
	}
	downloadHandler := handler.NewDownloadHandler(downloadService, usage)
	quotaHandler := handler.NewQuotaHandler(quotaService)

	router := setupRouter(cfg, analyzeHandler, downloadHandler, quotaHandler, rateLimitService, quotaService)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server stopped")
}

func setupRouter(cfg *model.Config, ah *handler.AnalyzeHandler, dh *handler.DownloadHandler, qh *handler.QuotaHandler, rls *service.RateLimitService, qs *service.QuotaService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.GinLogger())

	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/health", ah.HealthCheck)
	router.GET("/quota", qh.GetQuota)

	api := router.Group("/")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimitMiddleware(rls))
		logger.Logger.Info("Rate limiting enabled", zap.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute))
	}
	if cfg.Quota.Enabled {
		api.Use(middleware.QuotaCheckMiddleware(qs))
		logger.Logger.Info("Quota limiting enabled", zap.Int64("daily_limit_mb", cfg.Quota.DailyLimitMB), zap.Int("reset_hour", cfg.Quota.ResetHour))
	}
	{
		api.POST("/analyze", ah.Analyze)
		api.POST("/download", dh.Download)
	}

	return router
}

// writeTimeout leaves room for the slowest download plus streaming the file.
func writeTimeout(cfg *model.Config) time.Duration {
	server := time.Duration(cfg.Server.Timeout) * time.Second
	if cfg.Download.DownloadTimeout <= 0 {
		return 0
	}
	download := time.Duration(cfg.Download.DownloadTimeout)*time.Second + time.Minute
	if download > server {
		return download
	}
	return server
}
