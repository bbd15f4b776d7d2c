// Package metrics provides Prometheus instrumentation for genai-gallery.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "genai_gallery_". The handlers package mounts
// promhttp.Handler() on /metrics when METRICS_ENABLED is set.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, route template and status
//   - HTTPRequestDuration: request latency by method and route template
//   - HTTPRequestsInFlight: requests currently being served
//
// ## Database Metrics
//
//   - DBQueryTotal, DBQueryDuration: per catalog operation
//   - DBTransactionDuration: commit and rollback latency
//   - DBConnectionsOpen: open connections in the pool
//   - DBSizeBytes: main, WAL and SHM file sizes
//
// ## Reconcile Metrics
//
//   - ReconcileRunsTotal: passes by outcome (success/error)
//   - ReconcileDuration, ReconcileLastRunTimestamp, ReconcileInProgress
//   - ReconcileFilesScanned: files seen by the walker
//   - ReconcileClassifications: files by case (inserted, moved, duplicate...)
//   - CoordinatorDecisionsTotal: sync requests that ran, hit the cooldown,
//     or found a pass already in flight
//
// ## Hashing and Metadata
//
//   - HashBytesTotal, HashDuration, HashFailuresTotal
//   - MetadataExtractionsTotal: PNG reads by result (found/absent/error)
//   - MetadataPairsExtracted: key/value pairs produced
//
// ## Filesystem Retries
//
// Recorded through the [filesystem.Observer] returned by
// [NewFilesystemObserver]:
//
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures
//   - FilesystemStaleErrors, FilesystemRetryDuration
//
// ## Thumbnails and Uploads
//
//   - ThumbnailGenerationsTotal, ThumbnailGenerationDuration
//   - ThumbnailCacheHits, ThumbnailCacheMisses
//   - UploadsTotal: uploaded files by status
//
// ## Catalog
//
// Updated by the [Collector]:
//
//   - CatalogEntriesTotal, CatalogEntriesWithMetadata
//   - CatalogMetadataPairsTotal, CatalogMetadataKeysTotal
//
// ## Application Info
//
//   - AppInfo: constant 1 with version, commit and Go version labels
//
// # Collector
//
// [Collector] polls a [StatsProvider] and the database files on an interval:
//
//	collector := metrics.NewCollector(db, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Files per reconcile case:
//
//	sum(rate(genai_gallery_reconcile_classifications_total[1h])) by (case)
//
// Requests turned away by the cooldown:
//
//	rate(genai_gallery_coordinator_decisions_total{decision="cooldown"}[5m])
//
// Thumbnail cache hit rate:
//
//	rate(genai_gallery_thumbnail_cache_hits_total[5m]) /
//	(rate(genai_gallery_thumbnail_cache_hits_total[5m]) + rate(genai_gallery_thumbnail_cache_misses_total[5m]))
//
// P95 catalog query latency:
//
//	histogram_quantile(0.95, sum(rate(genai_gallery_db_query_duration_seconds_bucket[5m])) by (le, operation))
package metrics
