package media

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"genai-gallery/internal/logging"
	"genai-gallery/internal/mediatypes"
	"genai-gallery/internal/metrics"
)

// DefaultThumbnailSize is the bounding box used when none is configured.
const DefaultThumbnailSize = 400

var (
	// ErrThumbnailsDisabled is returned when the cache directory is unusable.
	ErrThumbnailsDisabled = errors.New("thumbnails disabled")
	// ErrUnsupported is returned for entries that are not still images.
	ErrUnsupported = errors.New("thumbnail not supported for this file type")
)

// ThumbnailGenerator renders JPEG thumbnails for catalogued images and
// caches them by entry identity. Content-addressed keys mean a cached
// thumbnail never goes stale.
type ThumbnailGenerator struct {
	cacheDir string
	size     int
	enabled  bool
	mu       sync.Mutex
}

// NewThumbnailGenerator creates a generator writing to cacheDir. A size <= 0
// selects DefaultThumbnailSize.
func NewThumbnailGenerator(cacheDir string, size int, enabled bool) *ThumbnailGenerator {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	if enabled {
		logging.Debug("ThumbnailGenerator: enabled, cache dir: %s", cacheDir)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			logging.Warn("ThumbnailGenerator: failed to create cache dir: %v", err)
		}
	} else {
		logging.Debug("ThumbnailGenerator: disabled")
	}
	return &ThumbnailGenerator{
		cacheDir: cacheDir,
		size:     size,
		enabled:  enabled,
	}
}

// IsEnabled reports whether thumbnails can be served.
func (t *ThumbnailGenerator) IsEnabled() bool {
	return t.enabled
}

// Size returns the thumbnail bounding box in pixels.
func (t *ThumbnailGenerator) Size() int {
	return t.size
}

// CachePath returns where the thumbnail for id is stored.
func (t *ThumbnailGenerator) CachePath(id string) string {
	return filepath.Join(t.cacheDir, id+".jpg")
}

// GetThumbnail returns the JPEG thumbnail for the entry id whose file is at
// absPath, generating and caching it on first use.
func (t *ThumbnailGenerator) GetThumbnail(id, absPath string) ([]byte, error) {
	if !t.enabled {
		return nil, ErrThumbnailsDisabled
	}
	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("invalid thumbnail id %q", id)
	}
	if mediatypes.GetFileType(absPath) != mediatypes.FileTypeImage {
		return nil, ErrUnsupported
	}

	cachePath := t.CachePath(id)
	if data, err := os.ReadFile(cachePath); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		return data, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if data, err := os.ReadFile(cachePath); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		return data, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	start := time.Now()
	data, err := t.render(absPath)
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()

	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
	} else {
		logging.Debug("Thumbnail cached: %s", cachePath)
	}

	return data, nil
}

func (t *ThumbnailGenerator) render(absPath string) ([]byte, error) {
	logging.Debug("Thumbnail generating: %s", absPath)

	img, err := LoadImageConstrained(absPath, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, fmt.Errorf("thumbnail generation failed: %w", err)
	}

	thumb := imaging.Fit(img, t.size, t.size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
