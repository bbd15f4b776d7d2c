package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestDB(t testing.TB) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// withBatch runs fn in a transaction and commits it.
func withBatch(t testing.TB, db *Database, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := db.BeginBatch(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.EndBatch(tx, fn(tx)))
}

func seedEntry(t testing.TB, db *Database, hash, path string, modTime int64, items ...MetadataItem) {
	t.Helper()
	withBatch(t, db, func(tx *sql.Tx) error {
		if err := db.InsertEntry(tx, EntryState{Hash: hash, Path: path, ModTime: modTime}); err != nil {
			return err
		}
		if len(items) > 0 {
			if err := db.ReplaceMetadata(tx, hash, items, 1); err != nil {
				return err
			}
		}
		return db.RebuildSearchRow(tx, hash)
	})
}

func countRows(t testing.TB, db *Database, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.db.QueryRow(query, args...).Scan(&n))
	return n
}
