package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"genai-gallery/internal/hasher"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/mediatypes"
	"genai-gallery/internal/workers"
)

// maxHashWorkers caps the auto-sized hashing pool.
const maxHashWorkers = 16

// WalkerConfig configures the fingerprinting walker
type WalkerConfig struct {
	// Workers is the number of files hashed concurrently (0 = auto)
	Workers int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
}

// DefaultWalkerConfig returns the walker defaults.
func DefaultWalkerConfig() WalkerConfig {
	return WalkerConfig{SkipHidden: true}
}

// scannedFile is one recognized file found by the walker.
type scannedFile struct {
	// RelPath is slash-separated and relative to the root.
	RelPath string
	AbsPath string
	// ModTime is the modification time in unix seconds.
	ModTime int64
	Hash    string
	// Err is set when the file could not be fingerprinted.
	Err error
}

// Walker lists recognized files under a root and fingerprints them with a
// bounded pool. Results keep the walk's lexical order so classification
// is deterministic.
type Walker struct {
	root     string
	registry *mediatypes.Registry
	hasher   *hasher.Hasher
	config   WalkerConfig
}

// NewWalker creates a walker for root.
func NewWalker(root string, registry *mediatypes.Registry, h *hasher.Hasher, config WalkerConfig) *Walker {
	return &Walker{
		root:     root,
		registry: registry,
		hasher:   h,
		config:   config,
	}
}

// Workers returns the effective size of the hashing pool.
func (w *Walker) Workers() int {
	return workers.Resolve(w.config.Workers, maxHashWorkers, workers.ForIO)
}

// Walk returns every recognized file under the root, fingerprinted. A file
// that cannot be hashed is returned with Err set; only cancellation or an
// unreadable root fails the walk.
func (w *Walker) Walk(ctx context.Context) ([]scannedFile, error) {
	start := time.Now()

	files, err := w.list(ctx)
	if err != nil {
		return nil, err
	}

	numWorkers := w.Workers()
	logging.Debug("Fingerprinting %d files with %d workers", len(files), numWorkers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)

	for i := range files {
		f := &files[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f.Hash, f.Err = w.hasher.Fingerprint(gctx, f.AbsPath)
			// A failed file is skipped later; only cancellation stops the pool.
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Debug("Walk complete: %d files in %v", len(files), time.Since(start))
	return files, nil
}

// list walks the tree in lexical order and collects recognized files.
func (w *Walker) list(ctx context.Context) ([]scannedFile, error) {
	var files []scannedFile

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == w.root {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if path != w.root && w.config.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if !w.registry.IsCatalogued(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(w.root, path)
		if err != nil {
			//nolint:nilerr // skip this file but keep walking
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			return nil
		}

		files = append(files, scannedFile{
			RelPath: filepath.ToSlash(relPath),
			AbsPath: path,
			ModTime: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", w.root, err)
	}

	return files, nil
}
