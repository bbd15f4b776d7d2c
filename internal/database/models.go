package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is a catalogued file as returned by the read API. Its identity is the
// content fingerprint.
type Entry struct {
	Hash          string         `json:"id"`
	Path          string         `json:"path"`
	Prompt        *string        `json:"prompt"`
	CreatedAt     time.Time      `json:"created_at"`
	MetadataItems []MetadataItem `json:"metadata_items,omitempty"`
}

// MetadataItem is one key/value pair extracted from an entry. Keys may repeat.
type MetadataItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EntryState is the reconciliation view of an entry: identity, location,
// timestamp and whether metadata has been recorded.
type EntryState struct {
	Hash            string
	Path            string
	ModTime         int64 // unix seconds
	HasMetadata     bool
	MetadataVersion int
}

// CatalogStats holds catalog totals.
type CatalogStats struct {
	TotalEntries        int `json:"totalEntries"`
	EntriesWithMetadata int `json:"entriesWithMetadata"`
	TotalMetadataPairs  int `json:"totalMetadataPairs"`
	DistinctKeys        int `json:"distinctKeys"`
}
