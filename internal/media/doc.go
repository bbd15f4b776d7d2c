// Package media serves the images tree to the HTTP layer.
//
// The Scanner lists the folders of the tree for browsing; the files shown in
// a folder come from the catalog. The ThumbnailGenerator renders JPEG
// thumbnails of catalogued still images, keyed by the entry's content
// fingerprint so cached thumbnails never need invalidation.
package media
