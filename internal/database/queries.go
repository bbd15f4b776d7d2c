package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"genai-gallery/internal/mediatypes"
	"genai-gallery/internal/metrics"
)

const entryColumns = `i.hash, i.path, i.prompt, i.created_at`

func orderClause(order mediatypes.SortOrder) string {
	if order == mediatypes.SortAsc {
		return ` ORDER BY i.created_at ASC, i.path ASC`
	}
	return ` ORDER BY i.created_at DESC, i.path ASC`
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var prompt sql.NullString
		var created int64
		if err := rows.Scan(&e.Hash, &e.Path, &prompt, &created); err != nil {
			return nil, err
		}
		if prompt.Valid {
			p := prompt.String
			e.Prompt = &p
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (d *Database) queryEntries(ctx context.Context, operation, query string, args ...any) (entries []Entry, err error) {
	start := time.Now()
	defer func() { recordQuery(operation, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListEntries returns every entry ordered by timestamp.
func (d *Database) ListEntries(ctx context.Context, order mediatypes.SortOrder) ([]Entry, error) {
	return d.queryEntries(ctx, "list_entries",
		`SELECT `+entryColumns+` FROM images i`+orderClause(order))
}

// FilterByMetadata returns entries having at least one pair with exactly
// key whose value contains substring (case-insensitive for ASCII). The
// search index is not consulted.
func (d *Database) FilterByMetadata(ctx context.Context, key, substring string, order mediatypes.SortOrder) ([]Entry, error) {
	return d.queryEntries(ctx, "filter_by_metadata",
		`SELECT `+entryColumns+` FROM images i
		WHERE EXISTS (
			SELECT 1 FROM image_metadata m
			WHERE m.image_hash = i.hash AND m.key = ? AND m.value LIKE ? ESCAPE '\'
		)`+orderClause(order),
		key, "%"+escapeLike(substring)+"%")
}

// SearchFullText returns entries whose search row matches phrase.
func (d *Database) SearchFullText(ctx context.Context, phrase string, order mediatypes.SortOrder) ([]Entry, error) {
	term := prepareSearchTerm(phrase)
	if term == "" {
		return []Entry{}, nil
	}
	return d.queryEntries(ctx, "search_full_text",
		`SELECT `+entryColumns+` FROM images i
		WHERE i.hash IN (SELECT image_hash FROM search_index WHERE search_index MATCH ?)`+orderClause(order),
		term)
}

// Search runs a parsed query: structured filters go to FilterByMetadata,
// free text to SearchFullText, and an empty query lists everything.
func (d *Database) Search(ctx context.Context, q Query, order mediatypes.SortOrder) ([]Entry, error) {
	switch {
	case q.IsStructured():
		return d.FilterByMetadata(ctx, q.Key, q.Substring, order)
	case q.Phrase != "":
		return d.SearchFullText(ctx, q.Phrase, order)
	default:
		return d.ListEntries(ctx, order)
	}
}

// GetEntry returns the entry with its metadata items, or ErrNotFound.
func (d *Database) GetEntry(ctx context.Context, hash string) (entry *Entry, err error) {
	start := time.Now()
	defer func() { recordQuery("get_entry", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var e Entry
	var prompt sql.NullString
	var created int64
	err = d.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM images i WHERE i.hash = ?`, hash,
	).Scan(&e.Hash, &e.Path, &prompt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if prompt.Valid {
		p := prompt.String
		e.Prompt = &p
	}
	e.CreatedAt = time.Unix(created, 0).UTC()

	rows, err := d.db.QueryContext(ctx,
		`SELECT key, value FROM image_metadata WHERE image_hash = ? ORDER BY id`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	e.MetadataItems = []MetadataItem{}
	for rows.Next() {
		var item MetadataItem
		if err = rows.Scan(&item.Key, &item.Value); err != nil {
			return nil, err
		}
		e.MetadataItems = append(e.MetadataItems, item)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return &e, nil
}

// CalculateStats computes catalog totals.
func (d *Database) CalculateStats(ctx context.Context) (stats CatalogStats, err error) {
	start := time.Now()
	defer func() { recordQuery("calculate_stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM images),
			(SELECT COUNT(DISTINCT image_hash) FROM image_metadata),
			(SELECT COUNT(*) FROM image_metadata),
			(SELECT COUNT(DISTINCT key) FROM image_metadata)
	`).Scan(&stats.TotalEntries, &stats.EntriesWithMetadata, &stats.TotalMetadataPairs, &stats.DistinctKeys)
	if err != nil {
		return CatalogStats{}, fmt.Errorf("failed to calculate stats: %w", err)
	}
	return stats, nil
}

// CollectorStats adapts CalculateStats for the metrics collector.
func (d *Database) CollectorStats(ctx context.Context) (metrics.Stats, error) {
	d.UpdateDBMetrics()
	s, err := d.CalculateStats(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	return metrics.Stats{
		TotalEntries:        s.TotalEntries,
		EntriesWithMetadata: s.EntriesWithMetadata,
		TotalMetadataPairs:  s.TotalMetadataPairs,
		DistinctKeys:        s.DistinctKeys,
	}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
