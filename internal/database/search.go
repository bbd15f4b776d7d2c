package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// DeleteSearchRow removes the entry's search row, if any.
func (d *Database) DeleteSearchRow(tx *sql.Tx, hash string) error {
	_, err := tx.ExecContext(context.Background(), `DELETE FROM search_index WHERE image_hash = ?`, hash)
	return err
}

// InsertSearchRow adds a search row with the given aggregated text.
func (d *Database) InsertSearchRow(tx *sql.Tx, hash, content string) error {
	_, err := tx.ExecContext(context.Background(),
		`INSERT INTO search_index (image_hash, content) VALUES (?, ?)`, hash, content)
	return err
}

// RebuildSearchRow regenerates the entry's search row from its current
// path, prompt and metadata values. The old row is deleted and a complete
// new one inserted; rows are never patched.
func (d *Database) RebuildSearchRow(tx *sql.Tx, hash string) (err error) {
	start := time.Now()
	defer func() { recordQuery("rebuild_search_row", start, err) }()

	var path string
	var prompt sql.NullString
	err = tx.QueryRowContext(context.Background(),
		`SELECT path, prompt FROM images WHERE hash = ?`, hash).Scan(&path, &prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(context.Background(),
		`SELECT value FROM image_metadata WHERE image_hash = ? ORDER BY id`, hash)
	if err != nil {
		return err
	}
	var values []string
	for rows.Next() {
		var v string
		if err = rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		values = append(values, v)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	if err = d.DeleteSearchRow(tx, hash); err != nil {
		return err
	}
	return d.InsertSearchRow(tx, hash, BuildSearchContent(path, prompt.String, values))
}

// BuildSearchContent joins path, prompt and metadata values with single
// spaces, skipping empty parts.
func BuildSearchContent(path, prompt string, values []string) string {
	parts := make([]string, 0, len(values)+2)
	for _, p := range append([]string{path, prompt}, values...) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// MatchFullText returns the fingerprints whose search row matches query as
// a single literal phrase. Tokenization is left to FTS5.
func (d *Database) MatchFullText(ctx context.Context, query string) (hashes []string, err error) {
	term := prepareSearchTerm(query)
	if term == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT image_hash FROM search_index WHERE search_index MATCH ?`, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// prepareSearchTerm turns free text into one FTS5 phrase: embedded double
// quotes are doubled and the whole term is quoted. Empty input yields "".
func prepareSearchTerm(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

// Query is a parsed search request.
type Query struct {
	// Key and Substring are set for structured key:substring filters.
	Key       string
	Substring string
	// Phrase is set for free-text search.
	Phrase string
}

// IsStructured reports whether the query filters metadata pairs directly.
func (q Query) IsStructured() bool {
	return q.Key != ""
}

// ParseQuery splits "key:substring" filters from free text. The first colon
// separates key from substring and both sides are trimmed. A query with an
// empty key is treated as free text.
func ParseQuery(raw string) Query {
	raw = strings.TrimSpace(raw)
	if key, value, ok := strings.Cut(raw, ":"); ok {
		if key = strings.TrimSpace(key); key != "" {
			return Query{Key: key, Substring: strings.TrimSpace(value)}
		}
	}
	return Query{Phrase: raw}
}
