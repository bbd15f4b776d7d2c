package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"genai-gallery/internal/database"
	"genai-gallery/internal/filesystem"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/media"
)

// GetThumbnail serves the cached JPEG thumbnail of an image entry. The
// response is immutable because the id is the content fingerprint.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !h.thumbGen.IsEnabled() {
		writeJSONError(w, "Thumbnails are disabled", http.StatusServiceUnavailable)
		return
	}

	entry, err := h.db.GetEntry(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Thumbnail lookup for %s failed: %v", id, err)
		writeJSONError(w, "Failed to load image", http.StatusInternalServerError)
		return
	}

	absPath := filepath.Join(h.imagesDir, filepath.FromSlash(entry.Path))
	data, err := h.thumbGen.GetThumbnail(entry.Hash, absPath)
	switch {
	case errors.Is(err, media.ErrUnsupported):
		writeJSONError(w, "No thumbnail for this file type", http.StatusUnsupportedMediaType)
		return
	case err != nil:
		logging.Warn("Thumbnail for %s (%s) failed: %v", entry.Hash, entry.Path, err)
		writeJSONError(w, "Failed to generate thumbnail", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := w.Write(data); err != nil {
		logging.Debug("Thumbnail write for %s aborted: %v", entry.Hash, err)
	}
}

// ServeImage serves a raw file from the images tree. Only catalogued file
// types are exposed; hidden paths, directories and the database file are
// not.
func (h *Handlers) ServeImage(w http.ResponseWriter, r *http.Request) {
	rel, err := media.NormalizePath(mux.Vars(r)["path"])
	if err != nil || rel == "" || !h.registry.IsCatalogued(rel) {
		http.NotFound(w, r)
		return
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			http.NotFound(w, r)
			return
		}
	}

	absPath := filepath.Join(h.imagesDir, filepath.FromSlash(rel))
	info, err := filesystem.StatWithRetry(absPath, filesystem.DefaultRetryConfig())
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to stat %s: %v", absPath, err)
		}
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, absPath)
}
