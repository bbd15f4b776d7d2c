package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genai_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genai_gallery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genai_gallery_db_transaction_duration_seconds",
			Help:    "Duration of database transactions by outcome",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"type"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genai_gallery_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Reconciler metrics
var (
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_reconcile_runs_total",
			Help: "Total number of reconciliation passes by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genai_gallery_reconcile_duration_seconds",
			Help:    "Duration of full reconciliation passes",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ReconcileLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_reconcile_last_run_timestamp",
			Help: "Unix timestamp of the last successful reconciliation pass",
		},
	)

	ReconcileInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_reconcile_in_progress",
			Help: "Whether a reconciliation pass is currently running (1) or not (0)",
		},
	)

	ReconcileFilesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genai_gallery_reconcile_files_scanned_total",
			Help: "Total number of media files visited by reconciliation",
		},
	)

	ReconcileClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_reconcile_classifications_total",
			Help: "Files classified by reconciliation outcome",
		},
		[]string{"case"},
	)

	CoordinatorDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_coordinator_decisions_total",
			Help: "Reconcile requests by coordinator decision",
		},
		[]string{"decision"}, // "ran", "cooldown", "busy"
	)
)

// Hashing and extraction metrics
var (
	HashFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genai_gallery_hash_failures_total",
			Help: "Files skipped because they could not be fingerprinted",
		},
	)

	HashBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genai_gallery_hash_bytes_total",
			Help: "Total bytes read while fingerprinting files",
		},
	)

	HashDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genai_gallery_hash_duration_seconds",
			Help:    "Time spent fingerprinting a single file",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	MetadataExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_metadata_extractions_total",
			Help: "Metadata extraction attempts by result",
		},
		[]string{"result"}, // "found", "absent", "error"
	)

	MetadataPairsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genai_gallery_metadata_pairs_extracted_total",
			Help: "Total metadata pairs produced by extraction",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genai_gallery_filesystem_retry_duration_seconds",
			Help:    "Total duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genai_gallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genai_gallery_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genai_gallery_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_gallery_uploads_total",
			Help: "Uploaded files by result",
		},
		[]string{"status"},
	)
)

// Catalog metrics
var (
	CatalogEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_catalog_entries",
			Help: "Number of entries in the catalog",
		},
	)

	CatalogEntriesWithMetadata = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_catalog_entries_with_metadata",
			Help: "Number of catalog entries with at least one metadata pair",
		},
	)

	CatalogMetadataPairsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_catalog_metadata_pairs",
			Help: "Number of metadata pairs in the catalog",
		},
	)

	CatalogMetadataKeysTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_gallery_catalog_metadata_keys",
			Help: "Number of distinct metadata keys in the catalog",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genai_gallery_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
