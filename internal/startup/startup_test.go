package startup

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genai-gallery/internal/logging"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
	assert.Equal(t, GoVersion, info.GoVersion)
}

// clearConfigEnv makes the test independent of the caller's environment.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigFileEnv, "IMAGES_DIR", "DB_PATH", "CACHE_DIR", "PORT", "SYNC_COOLDOWN",
		"SYNC_INTERVAL", "CATALOG_EXTENSIONS", "METADATA_EXTENSIONS", "HASH_ALGORITHM",
		"HASH_BLOCK_SIZE", "HASH_WORKERS", "THUMBNAIL_SIZE", "METRICS_ENABLED",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_STATIC_FILES", "LOG_HEALTH_CHECKS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./images", cfg.ImagesDir)
	assert.Equal(t, "", cfg.DBPath)
	assert.Equal(t, "./cache", cfg.CacheDir)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.SyncCooldown)
	assert.Equal(t, time.Duration(0), cfg.SyncInterval)
	assert.Equal(t, []string{".png", ".jpg", ".jpeg", ".webp", ".mp4", ".mov"}, cfg.CatalogExtensions)
	assert.Equal(t, []string{".png"}, cfg.MetadataExtensions)
	assert.Equal(t, "sha1", cfg.HashAlgorithm)
	assert.Equal(t, 65536, cfg.HashBlockSize)
	assert.Equal(t, 0, cfg.HashWorkers)
	assert.Equal(t, 400, cfg.ThumbnailSize)
	assert.True(t, cfg.MetricsEnabled)
	assert.True(t, cfg.LogHealthChecks)
	assert.False(t, cfg.LogStaticFiles)

	reg := cfg.Registry()
	assert.True(t, reg.IsCatalogued("a.MOV"))
	assert.True(t, reg.SupportsMetadata("a.png"))
	assert.False(t, reg.SupportsMetadata("a.jpg"))
}

func TestLoadFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("IMAGES_DIR", "/srv/images")
	t.Setenv("SYNC_COOLDOWN", "5s")
	t.Setenv("SYNC_INTERVAL", "1m")
	t.Setenv("CATALOG_EXTENSIONS", ".png,.gif")
	t.Setenv("HASH_ALGORITHM", "blake2b")
	t.Setenv("HASH_WORKERS", "4")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/images", cfg.ImagesDir)
	assert.Equal(t, 5*time.Second, cfg.SyncCooldown)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, []string{".png", ".gif"}, cfg.CatalogExtensions)
	assert.Equal(t, 4, cfg.HashWorkers)
	assert.False(t, cfg.MetricsEnabled)

	h, err := cfg.Hasher()
	require.NoError(t, err)
	assert.Equal(t, "blake2b", string(h.Algorithm()))
}

func TestLoadFromFile(t *testing.T) {
	clearConfigEnv(t)
	file := filepath.Join(t.TempDir(), "gallery.yaml")
	require.NoError(t, os.WriteFile(file, []byte("images_dir: /data/renders\nport: \"9000\"\nthumbnail_size: 256\n"), 0o644))
	t.Setenv(ConfigFileEnv, file)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/renders", cfg.ImagesDir)
	assert.Equal(t, "9100", cfg.Port, "environment overrides the file")
	assert.Equal(t, 256, cfg.ThumbnailSize)
	assert.Equal(t, 2*time.Second, cfg.SyncCooldown)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HASH_ALGORITHM", "md5"},
		{"HASH_WORKERS", "-1"},
		{"SYNC_COOLDOWN", "soon"},
		{"THUMBNAIL_SIZE", "0"},
		{"LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{ImagesDir: filepath.Join(dir, "images"), CacheDir: filepath.Join(dir, "cache")}
	require.NoError(t, cfg.Resolve())

	assert.Equal(t, filepath.Join(dir, "images", "gallery.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "cache", "thumbnails"), cfg.ThumbnailDir)

	cfg = &Config{ImagesDir: dir, CacheDir: dir, DBPath: filepath.Join(dir, "db", "custom.db")}
	require.NoError(t, cfg.Resolve())
	assert.Equal(t, filepath.Join(dir, "db", "custom.db"), cfg.DBPath)
}

func TestLoadConfigPreparesDirectories(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	t.Setenv("IMAGES_DIR", filepath.Join(dir, "images"))
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.DirExists(t, cfg.ImagesDir)
	assert.DirExists(t, cfg.ThumbnailDir)
	assert.True(t, cfg.ThumbnailsEnabled)
	assert.Equal(t, filepath.Join(dir, "images", "gallery.db"), cfg.DBPath)
}

func TestRoutes(t *testing.T) {
	noop := func(_ http.ResponseWriter, _ *http.Request) {}
	r := mux.NewRouter()
	r.HandleFunc("/livez", noop).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/metrics", noop).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/images", noop).Methods(http.MethodGet)
	api.HandleFunc("/sync", noop).Methods(http.MethodPost)
	api.HandleFunc("/sync", noop).Methods(http.MethodPut)
	r.HandleFunc("/images/{path:.*}", noop).Methods(http.MethodGet)

	routes, err := Routes(r)
	require.NoError(t, err)
	assert.Equal(t, []Route{
		{Section: "probes", Path: "/livez", Methods: []string{"GET", "HEAD"}},
		{Section: "metrics", Path: "/metrics", Methods: []string{"GET"}},
		{Section: "api", Path: "/api/images", Methods: []string{"GET"}},
		{Section: "api", Path: "/api/sync", Methods: []string{"POST", "PUT"}},
		{Section: "files", Path: "/images/{path:.*}", Methods: []string{"GET"}},
	}, routes)
}

func TestShutdownSteps(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logging.Init(logging.Config{Format: "json", Level: "info", Output: &buf}))
	t.Cleanup(func() { _ = logging.Init(logging.Config{}) })

	var order []string
	sd := BeginShutdown("interrupt")
	sd.Step("http server", func() error {
		order = append(order, "http")
		return errors.New("deadline exceeded")
	})
	sd.Step("indexer", func() error {
		order = append(order, "indexer")
		return nil
	})

	assert.Equal(t, 1, sd.Done())
	assert.Equal(t, []string{"http", "indexer"}, order, "a failed step does not stop the rest")

	out := buf.String()
	assert.Contains(t, out, `"signal":"interrupt"`)
	assert.Contains(t, out, `"step":"http server"`)
	assert.Contains(t, out, `"error":"deadline exceeded"`)
	assert.Contains(t, out, `"failed_steps":1`)
}
