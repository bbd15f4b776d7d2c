// Package main provides the entry point for genai-gallery.
//
// genai-gallery keeps a SQLite catalog in step with a folder of generated
// images. Every file is identified by a hash of its bytes, so renames and
// moves keep their catalog entry, and prompt metadata embedded in PNG files
// is extracted into searchable key/value pairs.
//
// # Commands
//
//	genai-gallery [serve]   run the HTTP server and background sync
//	genai-gallery sync      run one reconciliation pass and print a summary
//	genai-gallery version   print build information
//
// # Application Lifecycle
//
//  1. Configuration Loading: environment variables, or a YAML file named by
//     GALLERY_CONFIG, validated and resolved to absolute paths
//  2. Database Initialization: opens the catalog with WAL and FTS5
//  3. Component Initialization:
//     - Reconciler and Coordinator: one pass at a time, with a cooldown
//     - Indexer: initial pass in the background, optional polling
//     - Thumbnail Generator: on-demand JPEG thumbnails in CACHE_DIR
//     - Metrics Collector: catalog and database size gauges
//  4. HTTP Server Setup: routes, metrics and access log middleware
//  5. Graceful Shutdown: SIGINT/SIGTERM drain requests, then stop the
//     indexer and collector
//
// # Environment Variables
//
//   - IMAGES_DIR: root of the content tree (default: ./images)
//   - DB_PATH: catalog file (default: IMAGES_DIR/gallery.db)
//   - CACHE_DIR: thumbnail cache (default: ./cache)
//   - PORT: HTTP port (default: 8000)
//   - SYNC_COOLDOWN: minimum gap between passes (default: 2s)
//   - SYNC_INTERVAL: background poll interval, 0 disables (default: 0s)
//   - CATALOG_EXTENSIONS, METADATA_EXTENSIONS: comma separated
//   - HASH_ALGORITHM, HASH_BLOCK_SIZE, HASH_WORKERS
//   - THUMBNAIL_SIZE, METRICS_ENABLED
//   - LOG_LEVEL, LOG_FORMAT, LOG_FILE, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//
// # Build Requirements
//
// SQLite is linked through cgo and needs the FTS5 extension:
//
//	go build -tags sqlite_fts5 -o genai-gallery .
package main
