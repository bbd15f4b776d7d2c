// Package handlers provides the HTTP API of the gallery.
//
// It includes handlers for:
//   - Listing, searching and fetching catalog entries
//   - Folder browsing with pagination
//   - Uploads that are catalogued on arrival
//   - Manual sync requests
//   - Thumbnails and raw files from the images tree
//   - Health, readiness, version and metrics
package handlers
