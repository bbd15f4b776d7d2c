package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"genai-gallery/internal/database"
	"genai-gallery/internal/indexer"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/media"
	"genai-gallery/internal/mediatypes"
	"genai-gallery/internal/metrics"
)

const (
	// defaultUploadBase names uploads sent without a filename prefix.
	defaultUploadBase = "upload"
	sequenceWidth     = 5
	// maxSequenceAttempts bounds the O_EXCL retry loop when names race.
	maxSequenceAttempts = 100
)

var errUnsupportedUpload = errors.New("unsupported file type")

// Upload stores multipart files under the images tree and catalogues them
// immediately. Each file is written as <dir>/<base>_<NNNNN><ext>, where
// filename_prefix supplies dir/base and NNNNN is the next free sequence
// number for that base. An optional prompt field is recorded on every
// created entry.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSONError(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("Failed to remove multipart temp files: %v", err)
		}
	}()

	var files []*multipart.FileHeader
	files = append(files, r.MultipartForm.File["files[]"]...)
	files = append(files, r.MultipartForm.File["files"]...)
	if len(files) == 0 {
		writeJSONError(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	dir, base, err := splitPrefix(r.FormValue("filename_prefix"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var prompt *string
	if values, ok := r.MultipartForm.Value["prompt"]; ok && len(values) > 0 {
		prompt = &values[0]
	}

	created := []database.Entry{}
	var lastErr error
	for _, fh := range files {
		entry, err := h.storeUpload(r, fh, dir, base, prompt)
		if err != nil {
			logging.Error("Upload of %q failed: %v", fh.Filename, err)
			metrics.UploadsTotal.WithLabelValues("error").Inc()
			lastErr = err
			continue
		}
		metrics.UploadsTotal.WithLabelValues("success").Inc()
		created = append(created, *entry)
	}

	if len(created) == 0 {
		writeJSONError(w, "Upload failed: "+lastErr.Error(), uploadErrorStatus(lastErr))
		return
	}

	writeJSONStatusCode(w, http.StatusOK, created)
}

func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, errUnsupportedUpload), errors.Is(err, indexer.ErrNotCatalogued):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, indexer.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// splitPrefix turns filename_prefix into a relative directory and a base
// name: "outputs/fox" stores outputs/fox_00001.png. An empty prefix stores
// at the root with the default base.
func splitPrefix(prefix string) (dir, base string, err error) {
	clean, err := media.NormalizePath(strings.Trim(prefix, "/"))
	if err != nil {
		return "", "", fmt.Errorf("invalid filename_prefix")
	}
	if clean == "" {
		return "", defaultUploadBase, nil
	}

	for _, part := range strings.Split(clean, "/") {
		if strings.HasPrefix(part, ".") {
			return "", "", fmt.Errorf("invalid filename_prefix")
		}
	}

	return media.ParentDir(clean), path.Base(clean), nil
}

func (h *Handlers) storeUpload(r *http.Request, fh *multipart.FileHeader, dir, base string, prompt *string) (*database.Entry, error) {
	ext := mediatypes.Ext(fh.Filename)
	if !h.registry.IsCatalogued(fh.Filename) {
		return nil, fmt.Errorf("%w: %q", errUnsupportedUpload, ext)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	relPath, err := h.writeSequenced(src, dir, base, ext)
	if err != nil {
		return nil, err
	}
	logging.Info("Stored upload %q as %s", fh.Filename, relPath)

	res, err := h.coord.ReconcileFile(r.Context(), relPath, indexer.FileOptions{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	return h.db.GetEntry(r.Context(), res.Hash)
}

// writeSequenced copies src to the next free <base>_<NNNNN><ext> in dir and
// returns its slash-separated path relative to the images root.
func (h *Handlers) writeSequenced(src io.Reader, dir, base, ext string) (string, error) {
	absDir := filepath.Join(h.imagesDir, filepath.FromSlash(dir))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	seq, err := nextSequence(absDir, base)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		name := fmt.Sprintf("%s_%0*d%s", base, sequenceWidth, seq+attempt, ext)
		absPath := filepath.Join(absDir, name)

		f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := io.Copy(f, src); err != nil {
			f.Close()
			os.Remove(absPath)
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(absPath)
			return "", fmt.Errorf("close %s: %w", name, err)
		}

		if dir == "" {
			return name, nil
		}
		return dir + "/" + name, nil
	}

	return "", fmt.Errorf("no free file name for %s in %s", base, dir)
}

// nextSequence returns one more than the highest sequence number already
// used by <base>_<digits>.<ext> files in absDir, starting at 1.
func nextSequence(absDir, base string) (int, error) {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, entry := range entries {
		rest, ok := strings.CutPrefix(entry.Name(), base+"_")
		if !ok {
			continue
		}
		digits := strings.TrimSuffix(rest, path.Ext(rest))
		if digits == "" || strings.Trim(digits, "0123456789") != "" {
			continue
		}
		if n, err := strconv.Atoi(digits); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}
