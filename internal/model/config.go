package model

// Config holds application configuration
type Config struct {
	Server            ServerConfig
	Storage           StorageConfig
	Tools             ToolsConfig
	Download          DownloadConfig
	Logging           LoggingConfig
	Security          SecurityConfig
	Quota             QuotaConfig
	RateLimit         RateLimitConfig
	QualityCategories QualityCategoriesConfig
	Cache             CacheConfig
	Metrics           MetricsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port    int
	Host    string
	Timeout int // seconds
}

// StorageConfig holds storage and cleanup configuration
type StorageConfig struct {
	DownloadDir       string
	CleanupInterval   int // seconds between sweeps
	FileTTLSeconds    int // grace period before a produced file is deleted
	OrphanMaxAge      int // seconds; leftovers older than this are reclaimed at startup
	MaxDeleteAttempts int
}

// ToolsConfig holds locations of the external executables.
// Empty paths are resolved by extractor.ResolveTools.
type ToolsConfig struct {
	YtDlpPath  string
	FfmpegPath string
	ToolsDir   string
}

// DownloadConfig holds downloader process settings
type DownloadConfig struct {
	Retries         int
	DownloadTimeout int // seconds, 0 disables
	ProbeTimeout    int // seconds, 0 disables
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string
	FilePath string
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedDomains []string
}

// QuotaConfig holds user download quota configuration
type QuotaConfig struct {
	Enabled      bool  // Enable quota limiting
	DailyLimitMB int64 // Daily quota limit in MB per IP
	ResetHour    int   // Hour (0-23) to reset quota (midnight = 0)
	ResetMinute  int   // Minute (0-59) to reset quota
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
	CleanupInterval   int // seconds
}

// QualityCategoriesConfig lists the tiers exposed by analyze (Audio, SD, HD, FHD).
type QualityCategoriesConfig struct {
	Enabled []string
}

// CacheConfig holds the Redis probe cache configuration
type CacheConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      int // seconds
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}
