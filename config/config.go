package config

import (
	"os"
	"strconv"
	"strings"

	"mediagrab/internal/model"

	"github.com/joho/godotenv"
)

// DefaultAllowedDomains are the source domains accepted when ALLOWED_DOMAINS is unset.
const DefaultAllowedDomains = "youtube.com,youtu.be,tiktok.com,twitter.com,x.com,instagram.com,facebook.com,fb.watch,vimeo.com"

// DefaultQualityCategories lists every tier analyze can return.
var DefaultQualityCategories = []string{"Audio", "SD", "HD", "FHD"}

// Load loads configuration from environment variables
func Load() *model.Config {
	godotenv.Load()

	return &model.Config{
		Server: model.ServerConfig{
			Port:    getEnvInt("SERVER_PORT", 8080),
			Host:    getEnvStr("SERVER_HOST", "0.0.0.0"),
			Timeout: getEnvInt("SERVER_TIMEOUT", 300),
		},
		Storage: model.StorageConfig{
			DownloadDir:       getEnvStr("DOWNLOAD_DIR", "./TempStorage"),
			CleanupInterval:   getEnvInt("STORAGE_CLEANUP_INTERVAL", 10),
			FileTTLSeconds:    getEnvInt("FILE_TTL_SECONDS", 300),
			OrphanMaxAge:      getEnvInt("ORPHAN_MAX_AGE_SECONDS", 3600),
			MaxDeleteAttempts: getEnvInt("CLEANUP_MAX_ATTEMPTS", 3),
		},
		Tools: model.ToolsConfig{
			YtDlpPath:  getEnvStr("YTDLP_PATH", ""),
			FfmpegPath: getEnvStr("FFMPEG_PATH", ""),
			ToolsDir:   getEnvStr("TOOLS_DIR", ""),
		},
		Download: model.DownloadConfig{
			Retries:         getEnvInt("DOWNLOAD_RETRIES", 10),
			DownloadTimeout: getEnvInt("DOWNLOAD_TIMEOUT", 900),
			ProbeTimeout:    getEnvInt("PROBE_TIMEOUT", 120),
		},
		Logging: model.LoggingConfig{
			Level:    getEnvStr("LOG_LEVEL", "info"),
			FilePath: getEnvStr("LOG_FILE", "./log/app.log"),
		},
		Security: model.SecurityConfig{
			AllowedDomains: splitList(getEnvStr("ALLOWED_DOMAINS", DefaultAllowedDomains)),
		},
		Quota: model.QuotaConfig{
			Enabled:      getEnvBool("QUOTA_ENABLED", false),
			DailyLimitMB: getEnvInt64("QUOTA_DAILY_LIMIT_MB", 1000),
			ResetHour:    getEnvInt("QUOTA_RESET_HOUR", 0),
			ResetMinute:  getEnvInt("QUOTA_RESET_MINUTE", 0),
		},
		RateLimit: model.RateLimitConfig{
			Enabled:           getEnvBool("RATELIMIT_ENABLED", true),
			RequestsPerMinute: getEnvInt("RATELIMIT_REQUESTS_PER_MINUTE", 60),
			BurstSize:         getEnvInt("RATELIMIT_BURST_SIZE", 10),
			CleanupInterval:   getEnvInt("RATELIMIT_CLEANUP_INTERVAL", 1800),
		},
		QualityCategories: model.QualityCategoriesConfig{
			Enabled: parseEnabledQualityCategories(getEnvStr("ENABLED_QUALITY_CATEGORIES", "")),
		},
		Cache: model.CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", false),
			Host:     getEnvStr("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvStr("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvInt("PROBE_CACHE_TTL_SECONDS", 600),
		},
		Metrics: model.MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
	}
}

// parseEnabledQualityCategories parses comma-separated quality categories from env
func parseEnabledQualityCategories(categoriesStr string) []string {
	valid := map[string]bool{}
	for _, c := range DefaultQualityCategories {
		valid[c] = true
	}

	var enabled []string
	for _, cat := range splitList(categoriesStr) {
		// Matching is case-sensitive on the canonical keys after trimming.
		if valid[cat] {
			enabled = append(enabled, cat)
		}
	}

	if len(enabled) == 0 {
		return append([]string(nil), DefaultQualityCategories...)
	}
	return enabled
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvStr(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	valStr := getEnvStr(key, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	valStr := getEnvStr(key, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	valStr := strings.ToLower(getEnvStr(key, ""))
	if valStr == "true" || valStr == "1" || valStr == "yes" {
		return true
	}
	if valStr == "false" || valStr == "0" || valStr == "no" {
		return false
	}
	return defaultVal
}
