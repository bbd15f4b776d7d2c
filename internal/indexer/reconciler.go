package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genai-gallery/internal/database"
	"genai-gallery/internal/filesystem"
	"genai-gallery/internal/hasher"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/mediatypes"
	"genai-gallery/internal/metadata"
	"genai-gallery/internal/metrics"
)

// ErrNotCatalogued is returned by ReconcileFile for files whose extension
// is not in the catalog set.
var ErrNotCatalogued = errors.New("file type is not catalogued")

// Config wires a Reconciler to its collaborators.
type Config struct {
	// Root is the content tree.
	Root      string
	Registry  *mediatypes.Registry
	Hasher    *hasher.Hasher
	Extractor *metadata.Extractor
	Walker    WalkerConfig
}

// Result summarizes one reconciliation pass.
type Result struct {
	RunID      string        `json:"runId"`
	Scanned    int           `json:"scanned"`
	Inserted   int           `json:"inserted"`
	Evicted    int           `json:"evicted"`
	Timestamps int           `json:"timestamps"`
	Moved      int           `json:"moved"`
	Duplicates int           `json:"duplicates"`
	Backfilled int           `json:"backfilled"`
	Unchanged  int           `json:"unchanged"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
}

// Changed reports whether the pass mutated the catalog.
func (r Result) Changed() bool {
	return r.Inserted+r.Evicted+r.Timestamps+r.Moved+r.Backfilled > 0
}

// Reconciler brings the catalog and search index into agreement with the
// files under the root.
type Reconciler struct {
	db        *database.Database
	root      string
	registry  *mediatypes.Registry
	hasher    *hasher.Hasher
	extractor *metadata.Extractor
	walker    *Walker
	retry     filesystem.RetryConfig
	log       zerolog.Logger
}

// NewReconciler creates a Reconciler. Nil collaborators get defaults.
func NewReconciler(db *database.Database, cfg Config) (*Reconciler, error) {
	if cfg.Registry == nil {
		cfg.Registry = mediatypes.DefaultRegistry()
	}
	if cfg.Hasher == nil {
		h, err := hasher.New(hasher.SHA1, hasher.DefaultBlockSize)
		if err != nil {
			return nil, err
		}
		cfg.Hasher = h
	}
	if cfg.Extractor == nil {
		cfg.Extractor = metadata.New()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", cfg.Root, err)
	}

	return &Reconciler{
		db:        db,
		root:      root,
		registry:  cfg.Registry,
		hasher:    cfg.Hasher,
		extractor: cfg.Extractor,
		walker:    NewWalker(root, cfg.Registry, cfg.Hasher, cfg.Walker),
		retry:     filesystem.DefaultRetryConfig(),
		log:       logging.Component("reconciler"),
	}, nil
}

// Root returns the absolute content root.
func (r *Reconciler) Root() string {
	return r.root
}

// Run performs one full pass: fingerprint every recognized file, classify
// each against the catalog, and commit all mutations in one transaction.
// Entries whose files disappeared are kept.
func (r *Reconciler) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	res.RunID = uuid.NewString()
	log := r.log.With().Str("run_id", res.RunID).Logger()

	metrics.ReconcileInProgress.Set(1)
	defer func() {
		metrics.ReconcileInProgress.Set(0)
		res.Duration = time.Since(start)
		metrics.ReconcileDuration.Observe(res.Duration.Seconds())
		if err != nil {
			metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).Dur("duration", res.Duration).Msg("reconcile failed")
			return
		}
		metrics.ReconcileRunsTotal.WithLabelValues("success").Inc()
		metrics.ReconcileLastRunTimestamp.Set(float64(time.Now().Unix()))
	}()

	log.Debug().Str("root", r.root).Msg("reconcile started")

	files, err := r.walker.Walk(ctx)
	if err != nil {
		return res, err
	}
	res.Scanned = len(files)
	metrics.ReconcileFilesScanned.Add(float64(len(files)))

	tx, err := r.db.BeginBatch(ctx)
	if err != nil {
		return res, fmt.Errorf("begin reconcile transaction: %w", err)
	}

	err = func() error {
		states, err := r.db.ListEntryStates(tx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		p := r.newPass(tx, newMemoryIndex(states), &res, log)
		for i := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := p.classify(files[i], nil); err != nil {
				return err
			}
		}

		return r.db.RecordSync(tx, res.RunID, time.Now())
	}()

	if err = r.db.EndBatch(tx, err); err != nil {
		return res, err
	}

	log.Info().
		Int("scanned", res.Scanned).
		Int("inserted", res.Inserted).
		Int("evicted", res.Evicted).
		Int("moved", res.Moved).
		Int("timestamps", res.Timestamps).
		Int("backfilled", res.Backfilled).
		Int("duplicates", res.Duplicates).
		Int("skipped", res.Skipped).
		Dur("duration", time.Since(start)).
		Msg("reconcile complete")

	return res, nil
}

// FileOptions adjusts a single-file reconciliation.
type FileOptions struct {
	// Prompt, when set, is stored on the resulting entry.
	Prompt *string
}

// FileResult describes the outcome for one file.
type FileResult struct {
	// Hash identifies the entry now representing the file's content.
	Hash string `json:"id"`
	// Path is the entry's canonical path, which differs from the file's
	// path when the content was already catalogued elsewhere.
	Path string `json:"path"`
	// Case is the classification applied.
	Case string `json:"case"`
}

// ReconcileFile classifies a single file using targeted catalog lookups in
// its own transaction. relPath is relative to the root.
func (r *Reconciler) ReconcileFile(ctx context.Context, relPath string, opts FileOptions) (FileResult, error) {
	relPath, err := r.cleanRelPath(relPath)
	if err != nil {
		return FileResult{}, err
	}
	if !r.registry.IsCatalogued(relPath) {
		return FileResult{}, fmt.Errorf("%s: %w", relPath, ErrNotCatalogued)
	}

	absPath := filepath.Join(r.root, filepath.FromSlash(relPath))
	info, err := filesystem.StatWithRetry(absPath, r.retry)
	if err != nil {
		return FileResult{}, fmt.Errorf("stat %s: %w", relPath, err)
	}

	hash, err := r.hasher.Fingerprint(ctx, absPath)
	if err != nil {
		return FileResult{}, err
	}

	f := scannedFile{
		RelPath: relPath,
		AbsPath: absPath,
		ModTime: info.ModTime().Unix(),
		Hash:    hash,
	}

	tx, err := r.db.BeginBatch(ctx)
	if err != nil {
		return FileResult{}, fmt.Errorf("begin transaction: %w", err)
	}

	var res Result
	var out FileResult
	log := r.log.With().Str("path", relPath).Logger()

	err = func() error {
		p := r.newPass(tx, &storeIndex{db: r.db, tx: tx}, &res, log)
		entry, err := p.classify(f, opts.Prompt)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("%s was skipped, see log", relPath)
		}
		out = FileResult{Hash: entry.Hash, Path: entry.Path, Case: p.lastCase}
		return nil
	}()

	if err = r.db.EndBatch(tx, err); err != nil {
		return FileResult{}, err
	}
	return out, nil
}

func (r *Reconciler) cleanRelPath(relPath string) (string, error) {
	clean := path.Clean(filepath.ToSlash(relPath))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid path %q", relPath)
	}
	return clean, nil
}

// entryIndex answers "who owns this fingerprint / path" during a pass.
type entryIndex interface {
	byHash(hash string) (*database.EntryState, error)
	byPath(path string) (*database.EntryState, error)
	add(e *database.EntryState)
	remove(e *database.EntryState)
	move(e *database.EntryState, newPath string)
}

// memoryIndex is loaded once per full pass.
type memoryIndex struct {
	hashes map[string]*database.EntryState
	paths  map[string]*database.EntryState
}

func newMemoryIndex(states []database.EntryState) *memoryIndex {
	idx := &memoryIndex{
		hashes: make(map[string]*database.EntryState, len(states)),
		paths:  make(map[string]*database.EntryState, len(states)),
	}
	for i := range states {
		idx.add(&states[i])
	}
	return idx
}

func (m *memoryIndex) byHash(hash string) (*database.EntryState, error) {
	return m.hashes[hash], nil
}

func (m *memoryIndex) byPath(path string) (*database.EntryState, error) {
	return m.paths[path], nil
}

func (m *memoryIndex) add(e *database.EntryState) {
	m.hashes[e.Hash] = e
	m.paths[e.Path] = e
}

func (m *memoryIndex) remove(e *database.EntryState) {
	delete(m.hashes, e.Hash)
	if m.paths[e.Path] == e {
		delete(m.paths, e.Path)
	}
}

func (m *memoryIndex) move(e *database.EntryState, newPath string) {
	if m.paths[e.Path] == e {
		delete(m.paths, e.Path)
	}
	e.Path = newPath
	m.paths[newPath] = e
}

// storeIndex reads straight from the transaction. Mutations are already
// visible through the transaction so the bookkeeping hooks only update the
// returned state.
type storeIndex struct {
	db *database.Database
	tx *sql.Tx
}

func (s *storeIndex) byHash(hash string) (*database.EntryState, error) {
	e, err := s.db.LookupByHash(s.tx, hash)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

func (s *storeIndex) byPath(path string) (*database.EntryState, error) {
	e, err := s.db.LookupByPath(s.tx, path)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

func (s *storeIndex) add(*database.EntryState)    {}
func (s *storeIndex) remove(*database.EntryState) {}

func (s *storeIndex) move(e *database.EntryState, newPath string) {
	e.Path = newPath
}

// pass carries the state of one transaction.
type pass struct {
	r        *Reconciler
	tx       *sql.Tx
	index    entryIndex
	res      *Result
	log      zerolog.Logger
	lastCase string
}

func (r *Reconciler) newPass(tx *sql.Tx, index entryIndex, res *Result, log zerolog.Logger) *pass {
	return &pass{r: r, tx: tx, index: index, res: res, log: log}
}

func (p *pass) count(c string) {
	p.lastCase = c
	metrics.ReconcileClassifications.WithLabelValues(c).Inc()

	switch c {
	case metrics.CaseInserted:
		p.res.Inserted++
	case metrics.CaseEvicted:
		p.res.Evicted++
	case metrics.CaseTimestamp:
		p.res.Timestamps++
	case metrics.CaseMoved:
		p.res.Moved++
	case metrics.CaseDuplicate:
		p.res.Duplicates++
	case metrics.CaseBackfill:
		p.res.Backfilled++
	case metrics.CaseUnchanged:
		p.res.Unchanged++
	case metrics.CaseSkipped:
		p.res.Skipped++
	}
}

// classify applies the first matching rule to f and returns the entry that
// now represents its content. It returns a nil entry for skipped files.
// Only store failures are returned as errors.
func (p *pass) classify(f scannedFile, prompt *string) (*database.EntryState, error) {
	log := p.log.With().Str("path", f.RelPath).Logger()

	if f.Err != nil || f.Hash == "" {
		log.Warn().Err(f.Err).Msg("skipping file that could not be fingerprinted")
		p.count(metrics.CaseSkipped)
		return nil, nil
	}

	entry, err := p.index.byHash(f.Hash)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		// Content changed at a claimed path: the old content loses its entry.
		occupant, err := p.index.byPath(f.RelPath)
		if err != nil {
			return nil, err
		}
		if occupant != nil {
			if err := p.evict(occupant); err != nil {
				return nil, err
			}
		}

		entry = &database.EntryState{Hash: f.Hash, Path: f.RelPath, ModTime: f.ModTime}
		if err := p.r.db.InsertEntry(p.tx, *entry); err != nil {
			return nil, err
		}
		p.index.add(entry)
		p.count(metrics.CaseInserted)
		log.Debug().Str("hash", f.Hash).Msg("inserted")
		return entry, p.process(entry, f, prompt)
	}

	if entry.Path == f.RelPath {
		touched := false
		if entry.ModTime != f.ModTime {
			if err := p.r.db.UpdateEntryTimestamp(p.tx, entry.Hash, f.ModTime); err != nil {
				return nil, err
			}
			entry.ModTime = f.ModTime
			p.count(metrics.CaseTimestamp)
			touched = true
		}

		switch {
		case p.needsBackfill(entry, f):
			p.count(metrics.CaseBackfill)
			return entry, p.process(entry, f, prompt)
		case !touched:
			p.count(metrics.CaseUnchanged)
		}
		if prompt != nil {
			return entry, p.applyPrompt(entry, prompt)
		}
		return entry, nil
	}

	oldPath := filepath.Join(p.r.root, filepath.FromSlash(entry.Path))
	exists, err := filesystem.Exists(oldPath, p.r.retry)
	if err != nil {
		log.Warn().Err(err).Str("recorded_path", entry.Path).Msg("cannot check recorded path, skipping")
		p.count(metrics.CaseSkipped)
		return nil, nil
	}

	if exists {
		// Redundant copy; the recorded path stays canonical.
		log.Debug().Str("canonical", entry.Path).Msg("duplicate content")
		p.count(metrics.CaseDuplicate)
		if prompt != nil {
			return entry, p.applyPrompt(entry, prompt)
		}
		return entry, nil
	}

	occupant, err := p.index.byPath(f.RelPath)
	if err != nil {
		return nil, err
	}
	if occupant != nil && occupant.Hash != entry.Hash {
		if err := p.evict(occupant); err != nil {
			return nil, err
		}
	}

	if err := p.r.db.UpdateEntryPath(p.tx, entry.Hash, f.RelPath); err != nil {
		return nil, err
	}
	log.Debug().Str("from", entry.Path).Str("hash", entry.Hash).Msg("moved")
	p.index.move(entry, f.RelPath)

	if entry.ModTime != f.ModTime {
		if err := p.r.db.UpdateEntryTimestamp(p.tx, entry.Hash, f.ModTime); err != nil {
			return nil, err
		}
		entry.ModTime = f.ModTime
	}
	p.count(metrics.CaseMoved)
	return entry, p.process(entry, f, prompt)
}

func (p *pass) needsBackfill(entry *database.EntryState, f scannedFile) bool {
	return !entry.HasMetadata &&
		entry.MetadataVersion < p.r.extractor.Version() &&
		p.r.registry.SupportsMetadata(f.RelPath)
}

// evict removes an entry, its metadata and its search row, and forgets it
// in the pass index.
func (p *pass) evict(e *database.EntryState) error {
	p.log.Debug().Str("hash", e.Hash).Str("path", e.Path).Msg("evicting entry")
	p.index.remove(e)
	if err := p.r.db.DeleteSearchRow(p.tx, e.Hash); err != nil {
		return err
	}
	if err := p.r.db.DeleteEntry(p.tx, e.Hash); err != nil {
		return err
	}
	p.count(metrics.CaseEvicted)
	return nil
}

// process re-extracts metadata for formats that carry it and rebuilds the
// entry's search row.
func (p *pass) process(entry *database.EntryState, f scannedFile, prompt *string) error {
	if p.r.registry.SupportsMetadata(f.RelPath) {
		pairs := p.r.extractor.Extract(f.AbsPath)
		items := make([]database.MetadataItem, len(pairs))
		for i, pair := range pairs {
			items[i] = database.MetadataItem{Key: pair.Key, Value: pair.Value}
		}
		if err := p.r.db.ReplaceMetadata(p.tx, entry.Hash, items, p.r.extractor.Version()); err != nil {
			return err
		}
		entry.HasMetadata = len(items) > 0
		entry.MetadataVersion = p.r.extractor.Version()
	}

	if prompt != nil {
		if err := p.r.db.SetPrompt(p.tx, entry.Hash, prompt); err != nil {
			return err
		}
	}

	return p.r.db.RebuildSearchRow(p.tx, entry.Hash)
}

func (p *pass) applyPrompt(entry *database.EntryState, prompt *string) error {
	if err := p.r.db.SetPrompt(p.tx, entry.Hash, prompt); err != nil {
		return err
	}
	return p.r.db.RebuildSearchRow(p.tx, entry.Hash)
}
