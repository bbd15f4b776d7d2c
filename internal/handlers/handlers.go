package handlers

import (
	"net/http"

	"genai-gallery/internal/database"
	"genai-gallery/internal/indexer"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/media"
	"genai-gallery/internal/mediatypes"
	"genai-gallery/internal/startup"
)

const (
	defaultPageSize = 50
	// maxUploadMemory is the multipart memory budget; larger parts spill to
	// temporary files.
	maxUploadMemory = 32 << 20
)

// Handlers serves the gallery API. Read endpoints ask the coordinator for a
// reconciliation first and then answer from the catalog, so a failed or
// skipped pass still serves the last committed state.
type Handlers struct {
	db        *database.Database
	coord     *indexer.Coordinator
	indexer   *indexer.Indexer
	thumbGen  *media.ThumbnailGenerator
	scanner   *media.Scanner
	registry  *mediatypes.Registry
	imagesDir string
}

// New creates the handler set.
func New(db *database.Database, coord *indexer.Coordinator, idx *indexer.Indexer, thumbGen *media.ThumbnailGenerator, config *startup.Config) *Handlers {
	return &Handlers{
		db:        db,
		coord:     coord,
		indexer:   idx,
		thumbGen:  thumbGen,
		scanner:   media.NewScanner(config.ImagesDir),
		registry:  config.Registry(),
		imagesDir: config.ImagesDir,
	}
}

// reconcile brings the catalog up to date before a read. Errors are logged
// and the read proceeds.
func (h *Handlers) reconcile(r *http.Request) {
	if _, err := h.coord.Reconcile(r.Context()); err != nil {
		logging.Error("Reconcile before %s %s failed: %v", r.Method, r.URL.Path, err)
	}
}
