package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"genai-gallery/internal/hasher"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/mediatypes"
)

// ConfigFileEnv names the environment variable holding an optional YAML
// config file. Environment variables override values from the file.
const ConfigFileEnv = "GALLERY_CONFIG"

// Config holds all application configuration
type Config struct {
	ImagesDir string `yaml:"images_dir" env:"IMAGES_DIR" env-default:"./images"`
	// DBPath defaults to gallery.db inside ImagesDir.
	DBPath   string `yaml:"db_path" env:"DB_PATH"`
	CacheDir string `yaml:"cache_dir" env:"CACHE_DIR" env-default:"./cache"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`

	SyncCooldown time.Duration `yaml:"sync_cooldown" env:"SYNC_COOLDOWN" env-default:"2s"`
	// SyncInterval of 0 disables background polling.
	SyncInterval time.Duration `yaml:"sync_interval" env:"SYNC_INTERVAL" env-default:"0s"`

	CatalogExtensions  []string `yaml:"catalog_extensions" env:"CATALOG_EXTENSIONS" env-separator:"," env-default:".png,.jpg,.jpeg,.webp,.mp4,.mov"`
	MetadataExtensions []string `yaml:"metadata_extensions" env:"METADATA_EXTENSIONS" env-separator:"," env-default:".png"`

	HashAlgorithm string `yaml:"hash_algorithm" env:"HASH_ALGORITHM" env-default:"sha1"`
	HashBlockSize int    `yaml:"hash_block_size" env:"HASH_BLOCK_SIZE" env-default:"65536"`
	// HashWorkers of 0 sizes the pool from the CPU count.
	HashWorkers int `yaml:"hash_workers" env:"HASH_WORKERS" env-default:"0"`

	ThumbnailSize  int  `yaml:"thumbnail_size" env:"THUMBNAIL_SIZE" env-default:"400"`
	MetricsEnabled bool `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"true"`

	LogLevel        string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat       string `yaml:"log_format" env:"LOG_FORMAT" env-default:"console"`
	LogFile         string `yaml:"log_file" env:"LOG_FILE"`
	LogStaticFiles  bool   `yaml:"log_static_files" env:"LOG_STATIC_FILES" env-default:"false"`
	LogHealthChecks bool   `yaml:"log_health_checks" env:"LOG_HEALTH_CHECKS" env-default:"true"`

	// Derived paths
	ThumbnailDir string `yaml:"-"`

	// Feature flags based on directory availability
	ThumbnailsEnabled bool `yaml:"-"`
}

// Load reads configuration from the environment, or from the YAML file
// named by GALLERY_CONFIG with environment overrides, and validates it. It
// does not touch the filesystem.
func Load() (*Config, error) {
	cfg := &Config{}

	if file := os.Getenv(ConfigFileEnv); file != "" {
		if err := cleanenv.ReadConfig(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := hasher.New(hasher.Algorithm(c.HashAlgorithm), c.HashBlockSize); err != nil {
		return err
	}
	if c.HashBlockSize < 0 {
		return fmt.Errorf("HASH_BLOCK_SIZE must not be negative")
	}
	if c.HashWorkers < 0 {
		return fmt.Errorf("HASH_WORKERS must not be negative")
	}
	if c.SyncCooldown < 0 || c.SyncInterval < 0 {
		return fmt.Errorf("sync durations must not be negative")
	}
	if c.ThumbnailSize <= 0 {
		return fmt.Errorf("THUMBNAIL_SIZE must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json", "":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// Registry returns the configured extension sets.
func (c *Config) Registry() *mediatypes.Registry {
	return mediatypes.NewRegistry(c.CatalogExtensions, c.MetadataExtensions)
}

// Hasher returns the configured content hasher.
func (c *Config) Hasher() (*hasher.Hasher, error) {
	return hasher.New(hasher.Algorithm(c.HashAlgorithm), c.HashBlockSize)
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: strings.ToLower(c.LogFormat),
		File:   c.LogFile,
	}
}

// Resolve makes paths absolute and fills derived paths.
func (c *Config) Resolve() error {
	var err error
	if c.ImagesDir, err = filepath.Abs(c.ImagesDir); err != nil {
		return fmt.Errorf("failed to resolve images directory path: %w", err)
	}
	if c.CacheDir, err = filepath.Abs(c.CacheDir); err != nil {
		return fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.ImagesDir, "gallery.db")
	}
	if c.DBPath, err = filepath.Abs(c.DBPath); err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	c.ThumbnailDir = filepath.Join(c.CacheDir, "thumbnails")
	return nil
}

// LoadConfig loads, resolves and validates configuration, prepares the
// directories and logs the CONFIGURATION and DIRECTORY SETUP sections.
func LoadConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := logging.Init(cfg.Logging()); err != nil {
		return nil, err
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  IMAGES_DIR:          %s", cfg.ImagesDir)
	logging.Info("  DB_PATH:             %s", orDefault(cfg.DBPath, "<IMAGES_DIR>/gallery.db"))
	logging.Info("  CACHE_DIR:           %s", cfg.CacheDir)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  SYNC_COOLDOWN:       %v", cfg.SyncCooldown)
	logging.Info("  SYNC_INTERVAL:       %v", cfg.SyncInterval)
	logging.Info("  CATALOG_EXTENSIONS:  %s", strings.Join(cfg.CatalogExtensions, ","))
	logging.Info("  METADATA_EXTENSIONS: %s", strings.Join(cfg.MetadataExtensions, ","))
	logging.Info("  HASH_ALGORITHM:      %s", cfg.HashAlgorithm)
	logging.Info("  HASH_WORKERS:        %d", cfg.HashWorkers)
	logging.Info("  THUMBNAIL_SIZE:      %d", cfg.ThumbnailSize)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	logging.Info("  Images directory (absolute): %s", cfg.ImagesDir)
	logging.Info("  Cache directory (absolute):  %s", cfg.CacheDir)
	logging.Info("  Database path (absolute):    %s", cfg.DBPath)

	if err := ensureDirectory(cfg.ImagesDir, "images"); err != nil {
		return nil, fmt.Errorf("images directory error: %w", err)
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if err := ensureDirectory(dbDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(dbDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	cfg.ThumbnailsEnabled = setupOptionalDir(cfg.ThumbnailDir, "thumbnails")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Thumbnails:  %s", enabledString(cfg.ThumbnailsEnabled))
	logging.Info("    Metrics:     %s", enabledString(cfg.MetricsEnabled))

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
