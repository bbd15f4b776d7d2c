package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"genai-gallery/internal/logging"
	"genai-gallery/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the catalog store and search index.
type Database struct {
	db     *sql.DB
	dbPath string

	txMu     sync.Mutex
	txStarts map[*sql.Tx]time.Time
}

// New opens (creating if needed) the catalog at dbPath and applies the
// schema. The parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors while a
	// reconciliation pass holds the write transaction.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000&_temp_store=MEMORY", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:       db,
		dbPath:   dbPath,
		txStarts: make(map[*sql.Tx]time.Time),
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Content-addressed catalog entries
	CREATE TABLE IF NOT EXISTS images (
		hash TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		prompt TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_images_created_at ON images(created_at);

	-- Flattened generation parameters; keys may repeat per entry
	CREATE TABLE IF NOT EXISTS image_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image_hash TEXT NOT NULL REFERENCES images(hash) ON DELETE CASCADE,
		key TEXT NOT NULL,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_image_metadata_hash ON image_metadata(image_hash);
	CREATE INDEX IF NOT EXISTS idx_image_metadata_key ON image_metadata(key);

	-- Derived full-text index: path + prompt + metadata values
	CREATE VIRTUAL TABLE IF NOT EXISTS search_index USING fts5(
		image_hash UNINDEXED,
		content,
		tokenize='unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS images_ad AFTER DELETE ON images BEGIN
		DELETE FROM search_index WHERE image_hash = old.hash;
	END;

	-- Process state (last sync run, etc.)
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	if _, err = d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return d.runMigrations(ctx)
}

// runMigrations applies database schema migrations
func (d *Database) runMigrations(ctx context.Context) error {
	// Migration 1: track which extractor version processed each entry
	var columnExists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('images')
		WHERE name='metadata_version'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check for metadata_version column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating database: adding metadata_version column to images table")

		if _, err := d.db.ExecContext(ctx, `
			ALTER TABLE images ADD COLUMN metadata_version INTEGER NOT NULL DEFAULT 0
		`); err != nil {
			return fmt.Errorf("failed to add metadata_version column: %w", err)
		}

		logging.Info("Migration complete: metadata_version column added")
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Ping checks that the database answers queries.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// BeginBatch starts a transaction for a batch of catalog and search index
// mutations. The caller must call EndBatch exactly once. Cancelling ctx
// before EndBatch rolls the transaction back.
func (d *Database) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	start := time.Now()
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	d.txMu.Lock()
	d.txStarts[tx] = start
	d.txMu.Unlock()

	return tx, nil
}

// EndBatch commits the transaction when err is nil and rolls it back
// otherwise. A failed rollback is joined to err.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	d.txMu.Lock()
	start, ok := d.txStarts[tx]
	delete(d.txStarts, tx)
	d.txMu.Unlock()

	var duration float64
	if ok {
		duration = time.Since(start).Seconds()
	}

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", p, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only (mode %v), writes will fail", p, info.Mode())
		}
	}

	return nil
}
