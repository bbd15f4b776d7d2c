package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// FileType represents the type of a media file.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "folder"
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// SortOrder specifies the direction of sorting by creation time.
type SortOrder string

const (
	// SortAsc sorts oldest first.
	SortAsc SortOrder = "asc"
	// SortDesc sorts newest first.
	SortDesc SortOrder = "desc"
)

// ParseSortOrder maps a query parameter to a SortOrder. Anything other than
// "asc" sorts newest first.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// DefaultCatalogExtensions are the formats reconciled into the catalog.
var DefaultCatalogExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".mp4", ".mov"}

// DefaultMetadataExtensions are the formats handed to the metadata extractor.
var DefaultMetadataExtensions = []string{".png"}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
	".m4v":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".m4v":  "video/x-m4v",
}

// Registry holds the configured extension sets. The zero value recognizes
// nothing; use NewRegistry or DefaultRegistry.
type Registry struct {
	catalog  map[string]bool
	metadata map[string]bool
}

// NewRegistry builds a registry from extension lists. Extensions are
// normalized to lowercase with a leading dot; blanks are ignored.
// Metadata extensions are always treated as catalogued too.
func NewRegistry(catalog, metadata []string) *Registry {
	r := &Registry{
		catalog:  make(map[string]bool),
		metadata: make(map[string]bool),
	}
	for _, ext := range catalog {
		if ext = NormalizeExt(ext); ext != "" {
			r.catalog[ext] = true
		}
	}
	for _, ext := range metadata {
		if ext = NormalizeExt(ext); ext != "" {
			r.metadata[ext] = true
			r.catalog[ext] = true
		}
	}
	return r
}

// DefaultRegistry returns a registry with the default extension sets.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultCatalogExtensions, DefaultMetadataExtensions)
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Ext returns the lowercase extension of name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsCatalogued reports whether files named like name belong in the catalog.
func (r *Registry) IsCatalogued(name string) bool {
	return r.catalog[Ext(name)]
}

// SupportsMetadata reports whether name may carry an embedded side-channel.
func (r *Registry) SupportsMetadata(name string) bool {
	return r.metadata[Ext(name)]
}

// CatalogExtensions returns the catalogued extensions in sorted order.
func (r *Registry) CatalogExtensions() []string {
	return sortedKeys(r.catalog)
}

// MetadataExtensions returns the metadata-bearing extensions in sorted order.
func (r *Registry) MetadataExtensions() []string {
	return sortedKeys(r.metadata)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GetFileType returns the FileType for a file name or extension.
func GetFileType(name string) FileType {
	ext := Ext(name)
	if videoExtensions[ext] {
		return FileTypeVideo
	}
	if mime, ok := MimeTypes[ext]; ok && strings.HasPrefix(mime, "image/") {
		return FileTypeImage
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a file name or extension, or
// "application/octet-stream" when unknown.
func GetMimeType(name string) string {
	ext := Ext(name)
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
