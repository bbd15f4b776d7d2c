// Package database provides the SQLite catalog store and full-text search
// index for the gallery.
//
// It stores:
//   - Catalog entries keyed by content fingerprint, each with a unique
//     relative path, an optional prompt and a timestamp
//   - Metadata pairs per entry (keys may repeat), cascade-deleted with it
//   - One FTS5 search row per entry, rebuilt whole from path, prompt and
//     metadata values whenever those change
//   - Small process state such as the last successful sync
//
// Mutations take the *sql.Tx returned by BeginBatch so a reconciliation
// pass commits or rolls back as a unit. Reads use their own connections and
// see the last committed state.
//
// FTS5 requires building with the sqlite_fts5 tag:
//
//	go build -tags sqlite_fts5 ./...
package database
