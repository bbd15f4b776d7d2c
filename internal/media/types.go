package media

// Directory is a subdirectory of the browsed folder.
type Directory struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// PathPart represents a single component of a breadcrumb path.
type PathPart struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing describes a folder of the images tree. Paths are slash-separated
// and relative to the root; the root itself is "".
type Listing struct {
	Path        string      `json:"path"`
	Name        string      `json:"name"`
	Parent      string      `json:"parent,omitempty"`
	Breadcrumb  []PathPart  `json:"breadcrumb"`
	Directories []Directory `json:"directories"`
}
