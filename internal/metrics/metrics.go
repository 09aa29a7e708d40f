package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagrab_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagrab_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Probe Metrics
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagrab_probes_total",
			Help: "Total number of format probes by outcome",
		},
		[]string{"status"},
	)

	ProbeCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagrab_probe_cache_total",
			Help: "Probe cache lookups by result",
		},
		[]string{"result"},
	)

	// Download Metrics
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagrab_downloads_total",
			Help: "Completed download requests by output kind, winning strategy and status",
		},
		[]string{"kind", "strategy", "status"},
	)

	DownloadAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagrab_download_attempts_total",
			Help: "External process attempts by strategy and exit outcome",
		},
		[]string{"strategy", "status"},
	)

	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagrab_download_duration_seconds",
			Help:    "Download request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"kind"},
	)

	DownloadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediagrab_download_size_bytes",
			Help:    "Size of produced files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		},
	)

	// Cleanup Metrics
	CleanupPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediagrab_cleanup_pending",
			Help: "Files waiting for deferred deletion",
		},
	)

	CleanupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagrab_cleanup_total",
			Help: "Deferred deletions by result",
		},
		[]string{"result"},
	)
)

// RecordHTTPRequest records an HTTP request metric
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordProbe records a probe outcome
func RecordProbe(status string) {
	ProbesTotal.WithLabelValues(status).Inc()
}

// RecordProbeCache records a cache hit or miss
func RecordProbeCache(result string) {
	ProbeCacheTotal.WithLabelValues(result).Inc()
}

// RecordAttempt records one external process attempt
func RecordAttempt(strategy, status string) {
	DownloadAttemptsTotal.WithLabelValues(strategy, status).Inc()
}

// RecordDownload records a finished download request
func RecordDownload(kind, strategy, status string, duration float64, sizeBytes int64) {
	DownloadsTotal.WithLabelValues(kind, strategy, status).Inc()
	DownloadDuration.WithLabelValues(kind).Observe(duration)
	if sizeBytes > 0 {
		DownloadSizeBytes.Observe(float64(sizeBytes))
	}
}

// RecordCleanup records the result of a deletion attempt
func RecordCleanup(result string) {
	CleanupTotal.WithLabelValues(result).Inc()
}

// SetCleanupPending updates the pending cleanup gauge
func SetCleanupPending(n int) {
	CleanupPending.Set(float64(n))
}
