package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"genai-gallery/internal/database"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/media"
	"genai-gallery/internal/mediatypes"
)

// ListImages returns catalog entries. The q parameter is either a
// key:substring metadata filter or a free-text phrase; sort is asc or desc
// by timestamp.
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	h.reconcile(r)

	q := database.ParseQuery(r.URL.Query().Get("q"))
	order := mediatypes.ParseSortOrder(r.URL.Query().Get("sort"))

	entries, err := h.db.Search(r.Context(), q, order)
	if err != nil {
		logging.Error("ListImages query failed: %v", err)
		writeJSONError(w, "Failed to list images", http.StatusInternalServerError)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, entries)
}

// GetImage returns one entry with its metadata items.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	h.reconcile(r)

	id := mux.Vars(r)["id"]
	entry, err := h.db.GetEntry(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("GetImage %s failed: %v", id, err)
		writeJSONError(w, "Failed to load image", http.StatusInternalServerError)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, entry)
}

// BrowseResponse is one page of a folder view.
type BrowseResponse struct {
	media.Listing
	Images []database.Entry `json:"images"`
	Total  int              `json:"total"`
	Page   int              `json:"page"`
	Pages  int              `json:"pages"`
}

// Browse lists a folder: its subdirectories and the entries whose parent
// directory is path, paginated. With q it searches the whole catalog and
// omits subdirectories.
func (h *Handlers) Browse(w http.ResponseWriter, r *http.Request) {
	h.reconcile(r)

	listing, err := h.scanner.GetDirectory(r.URL.Query().Get("path"))
	switch {
	case errors.Is(err, media.ErrInvalidPath):
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	case errors.Is(err, media.ErrNotDirectory):
		writeJSONError(w, "Directory not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("Browse %q failed: %v", r.URL.Query().Get("path"), err)
		writeJSONError(w, "Failed to read directory", http.StatusInternalServerError)
		return
	}

	rawQuery := r.URL.Query().Get("q")
	order := mediatypes.ParseSortOrder(r.URL.Query().Get("sort"))

	entries, err := h.db.Search(r.Context(), database.ParseQuery(rawQuery), order)
	if err != nil {
		logging.Error("Browse query failed: %v", err)
		writeJSONError(w, "Failed to list images", http.StatusInternalServerError)
		return
	}

	if rawQuery != "" {
		listing.Directories = []media.Directory{}
	} else {
		entries = inDirectory(entries, listing.Path)
	}

	page := positiveInt(r, "page", 1)
	limit := positiveInt(r, "limit", defaultPageSize)
	images, pages := paginate(entries, page, limit)

	writeJSONStatusCode(w, http.StatusOK, BrowseResponse{
		Listing: *listing,
		Images:  images,
		Total:   len(entries),
		Page:    page,
		Pages:   pages,
	})
}

func inDirectory(entries []database.Entry, dir string) []database.Entry {
	out := make([]database.Entry, 0, len(entries))
	for _, e := range entries {
		if media.ParentDir(e.Path) == dir {
			out = append(out, e)
		}
	}
	return out
}

// paginate returns the 1-based page of entries and the page count.
func paginate(entries []database.Entry, page, limit int) ([]database.Entry, int) {
	total := len(entries)
	pages := (total + limit - 1) / limit
	if page > pages {
		return []database.Entry{}, pages
	}

	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	return entries[start:end], pages
}
