package media

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"genai-gallery/internal/filesystem"
	"genai-gallery/internal/logging"
)

// RootName labels the images root in breadcrumbs.
const RootName = "Images"

var (
	// ErrInvalidPath is returned for paths that escape the root.
	ErrInvalidPath = errors.New("invalid path")
	// ErrNotDirectory is returned when the path does not name a directory.
	ErrNotDirectory = errors.New("directory not found")
)

// Scanner lists folders of the images tree for browsing. Files are served
// from the catalog; the scanner only supplies the directory structure.
type Scanner struct {
	root string
}

// NewScanner creates a new Scanner rooted at root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// NormalizePath cleans a browse path into slash-separated form relative to
// the root. "", "/" and "." all name the root. Any ".." component is
// rejected.
func NormalizePath(relativePath string) (string, error) {
	p := strings.ReplaceAll(relativePath, "\\", "/")
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", ErrInvalidPath
		}
	}
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/"), nil
}

// GetDirectory returns the listing for relativePath: its visible
// subdirectories in name order plus breadcrumb navigation.
func (s *Scanner) GetDirectory(relativePath string) (*Listing, error) {
	relativePath, err := NormalizePath(relativePath)
	if err != nil {
		return nil, err
	}

	fullPath, err := s.validatePath(relativePath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}

	dirs := []Directory{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dirs = append(dirs, Directory{
			Name: entry.Name(),
			Path: joinRel(relativePath, entry.Name()),
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })

	return s.buildListing(relativePath, dirs), nil
}

// validatePath ensures the path is a directory within the root
func (s *Scanner) validatePath(relativePath string) (string, error) {
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(absRoot, filepath.FromSlash(relativePath))

	if fullPath != absRoot && !strings.HasPrefix(fullPath, absRoot+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	info, err := filesystem.StatWithRetry(fullPath, filesystem.DefaultRetryConfig())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotDirectory
		}
		logging.Warn("Failed to stat browse path %s: %v", fullPath, err)
		return "", err
	}
	if !info.IsDir() {
		return "", ErrNotDirectory
	}

	return fullPath, nil
}

func (s *Scanner) buildListing(relativePath string, dirs []Directory) *Listing {
	var parent string
	name := RootName
	if relativePath != "" {
		parent = path.Dir(relativePath)
		if parent == "." {
			parent = ""
		}
		name = path.Base(relativePath)
	}

	return &Listing{
		Path:        relativePath,
		Name:        name,
		Parent:      parent,
		Breadcrumb:  buildBreadcrumb(relativePath),
		Directories: dirs,
	}
}

func buildBreadcrumb(relativePath string) []PathPart {
	breadcrumb := []PathPart{
		{Name: RootName, Path: ""},
	}

	if relativePath == "" {
		return breadcrumb
	}

	currentPath := ""
	for _, part := range strings.Split(relativePath, "/") {
		if part == "" {
			continue
		}
		currentPath = joinRel(currentPath, part)
		breadcrumb = append(breadcrumb, PathPart{
			Name: part,
			Path: currentPath,
		})
	}

	return breadcrumb
}

// ParentDir returns the slash-separated parent of a catalog path, "" for
// files at the root.
func ParentDir(entryPath string) string {
	dir := path.Dir(entryPath)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
