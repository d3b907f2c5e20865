package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backdrops_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backdrops_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Metadata metrics
var (
	MetadataLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_metadata_loads_total",
			Help: "Total number of metadata document loads",
		},
		[]string{"status"}, // "success", "not_found", "malformed", "error"
	)

	MetadataLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backdrops_metadata_load_duration_seconds",
			Help:    "Time spent reading, decoding and enriching the metadata document",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	MetadataCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrops_metadata_cache_hits_total",
			Help: "Number of metadata requests served from the enriched snapshot",
		},
	)

	CatalogImages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backdrops_catalog_images",
			Help: "Number of catalog images by category",
		},
		[]string{"category"},
	)
)

// Download metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_downloads_total",
			Help: "Total number of download flows by outcome",
		},
		[]string{"outcome"}, // "purchase", "converted", "fallback"
	)

	DownloadFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_download_failures_total",
			Help: "Failures recovered inside the download flow, by stage",
		},
		[]string{"stage"}, // "fetch", "decode", "encode", "save", "link", "open"
	)

	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backdrops_download_duration_seconds",
			Help:    "Download flow duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)
)

// Transcoder metrics
var (
	TranscodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_transcodes_total",
			Help: "Total number of transcodes by engine, target format and status",
		},
		[]string{"engine", "format", "status"},
	)

	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backdrops_transcode_duration_seconds",
			Help:    "Transcode duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"engine"},
	)

	TranscodesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backdrops_transcodes_in_progress",
			Help: "Number of server-side transcodes currently running",
		},
	)
)

// Loader metrics
var (
	LoaderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_loader_transitions_total",
			Help: "Visibility-gated loader state transitions by target state",
		},
		[]string{"state"},
	)

	LoaderRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrops_loader_retries_total",
			Help: "Number of manual image load retries",
		},
	)
)

// Analytics metrics
var (
	AnalyticsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_analytics_events_total",
			Help: "Analytics events emitted by action and category",
		},
		[]string{"action", "category"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backdrops_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_filesystem_retry_attempts_total",
			Help: "Retries issued after stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_filesystem_retry_failures_total",
			Help: "Operations that still failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrops_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backdrops_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backdrops_memory_transcodes_paused",
			Help: "1 while server-side transcodes are held back by memory pressure",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrops_memory_pauses_total",
			Help: "Number of times transcodes were paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backdrops_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
