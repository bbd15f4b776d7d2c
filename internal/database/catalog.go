package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Catalog mutations run inside the reconciliation transaction. They use a
// background context; the transaction's own context bounds their lifetime.

const entryStateColumns = `
	i.hash, i.path, i.created_at, i.metadata_version,
	EXISTS(SELECT 1 FROM image_metadata m WHERE m.image_hash = i.hash)
`

func scanEntryState(row interface{ Scan(...any) error }) (EntryState, error) {
	var s EntryState
	err := row.Scan(&s.Hash, &s.Path, &s.ModTime, &s.MetadataVersion, &s.HasMetadata)
	return s, err
}

// ListEntryStates returns every entry's identity, path, timestamp and
// metadata status.
func (d *Database) ListEntryStates(tx *sql.Tx) (states []EntryState, err error) {
	start := time.Now()
	defer func() { recordQuery("list_entry_states", start, err) }()

	rows, err := tx.QueryContext(context.Background(), `SELECT `+entryStateColumns+` FROM images i`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanEntryState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// LookupByHash returns the entry with the given fingerprint or ErrNotFound.
func (d *Database) LookupByHash(tx *sql.Tx, hash string) (s *EntryState, err error) {
	start := time.Now()
	defer func() { recordQuery("lookup_by_hash", start, err) }()
	return lookupState(tx, `SELECT `+entryStateColumns+` FROM images i WHERE i.hash = ?`, hash)
}

// LookupByPath returns the entry recorded at path or ErrNotFound.
func (d *Database) LookupByPath(tx *sql.Tx, path string) (s *EntryState, err error) {
	start := time.Now()
	defer func() { recordQuery("lookup_by_path", start, err) }()
	return lookupState(tx, `SELECT `+entryStateColumns+` FROM images i WHERE i.path = ?`, path)
}

func lookupState(tx *sql.Tx, query string, arg string) (*EntryState, error) {
	s, err := scanEntryState(tx.QueryRowContext(context.Background(), query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertEntry creates a new entry with no prompt and no metadata.
func (d *Database) InsertEntry(tx *sql.Tx, s EntryState) (err error) {
	start := time.Now()
	defer func() { recordQuery("insert_entry", start, err) }()

	_, err = tx.ExecContext(context.Background(),
		`INSERT INTO images (hash, path, created_at, metadata_version) VALUES (?, ?, ?, 0)`,
		s.Hash, s.Path, s.ModTime,
	)
	if err != nil {
		return fmt.Errorf("insert %s at %s: %w", s.Hash, s.Path, err)
	}
	return nil
}

// UpdateEntryPath records that the entry now lives at path.
func (d *Database) UpdateEntryPath(tx *sql.Tx, hash, path string) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_path", start, err) }()
	return execOne(tx, `UPDATE images SET path = ? WHERE hash = ?`, path, hash)
}

// UpdateEntryTimestamp sets the entry's timestamp (unix seconds).
func (d *Database) UpdateEntryTimestamp(tx *sql.Tx, hash string, modTime int64) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_timestamp", start, err) }()
	return execOne(tx, `UPDATE images SET created_at = ? WHERE hash = ?`, modTime, hash)
}

// SetPrompt sets or clears the entry's free-text prompt.
func (d *Database) SetPrompt(tx *sql.Tx, hash string, prompt *string) (err error) {
	start := time.Now()
	defer func() { recordQuery("set_prompt", start, err) }()
	return execOne(tx, `UPDATE images SET prompt = ? WHERE hash = ?`, prompt, hash)
}

// SetMetadataVersion records which extractor version last processed the entry.
func (d *Database) SetMetadataVersion(tx *sql.Tx, hash string, version int) (err error) {
	start := time.Now()
	defer func() { recordQuery("set_metadata_version", start, err) }()
	return execOne(tx, `UPDATE images SET metadata_version = ? WHERE hash = ?`, version, hash)
}

// DeleteEntry removes the entry. Its metadata cascades and its search row
// is removed by trigger.
func (d *Database) DeleteEntry(tx *sql.Tx, hash string) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_entry", start, err) }()
	_, err = tx.ExecContext(context.Background(), `DELETE FROM images WHERE hash = ?`, hash)
	return err
}

// DeleteMetadata removes all metadata pairs of the entry.
func (d *Database) DeleteMetadata(tx *sql.Tx, hash string) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_metadata", start, err) }()
	_, err = tx.ExecContext(context.Background(), `DELETE FROM image_metadata WHERE image_hash = ?`, hash)
	return err
}

// InsertMetadataBatch adds pairs to the entry, preserving duplicates.
func (d *Database) InsertMetadataBatch(tx *sql.Tx, hash string, items []MetadataItem) error {
	if len(items) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(context.Background(),
		`INSERT INTO image_metadata (image_hash, key, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(context.Background(), hash, item.Key, item.Value); err != nil {
			return fmt.Errorf("insert metadata %q for %s: %w", item.Key, hash, err)
		}
	}
	return nil
}

// ReplaceMetadata swaps the entry's metadata set for items and stamps the
// extractor version.
func (d *Database) ReplaceMetadata(tx *sql.Tx, hash string, items []MetadataItem, version int) (err error) {
	start := time.Now()
	defer func() { recordQuery("replace_metadata", start, err) }()

	if err = d.DeleteMetadata(tx, hash); err != nil {
		return err
	}
	if err = d.InsertMetadataBatch(tx, hash, items); err != nil {
		return err
	}
	return d.SetMetadataVersion(tx, hash, version)
}

func execOne(tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(context.Background(), query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
