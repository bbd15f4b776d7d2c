// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads a [Config] with cleanenv. Values come from environment
// variables, or from a YAML file named by GALLERY_CONFIG with environment
// variables taking precedence:
//
//   - IMAGES_DIR: root of the image tree (default: ./images)
//   - DB_PATH: catalog database (default: <IMAGES_DIR>/gallery.db)
//   - CACHE_DIR: thumbnail cache (default: ./cache)
//   - PORT: HTTP port, also serving /metrics (default: 8000)
//   - SYNC_COOLDOWN: minimum time between reconciliation passes (default: 2s)
//   - SYNC_INTERVAL: background polling interval, 0 disables (default: 0)
//   - CATALOG_EXTENSIONS, METADATA_EXTENSIONS: comma separated extension sets
//   - HASH_ALGORITHM (sha1 or blake2b), HASH_BLOCK_SIZE, HASH_WORKERS
//   - THUMBNAIL_SIZE, METRICS_ENABLED
//   - LOG_LEVEL, LOG_FORMAT, LOG_FILE, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//
// The images and database directories are created when missing; the
// database directory must be writable. Thumbnails are disabled when the
// cache directory cannot be written.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// The Log* functions print the banner-style sections used at startup and
// shutdown so every deployment logs the same layout.
package startup
