package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	stateLastSyncRun = "last_sync_run"
	stateLastSyncID  = "last_sync_id"
)

// SyncRecord describes the last successful reconciliation pass.
type SyncRecord struct {
	RunID      string    `json:"runId"`
	FinishedAt time.Time `json:"finishedAt"`
}

// GetState retrieves a state value by key, or ErrNotFound.
func (d *Database) GetState(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetState sets a state key-value pair inside tx.
func (d *Database) SetState(tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// RecordSync stores the run id and finish time of a successful pass in the
// pass's own transaction.
func (d *Database) RecordSync(tx *sql.Tx, runID string, finishedAt time.Time) error {
	if err := d.SetState(tx, stateLastSyncRun, finishedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return d.SetState(tx, stateLastSyncID, runID)
}

// LastSync returns the last recorded successful pass. ok is false when no
// pass has been recorded.
func (d *Database) LastSync(ctx context.Context) (rec SyncRecord, ok bool, err error) {
	value, err := d.GetState(ctx, stateLastSyncRun)
	if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
		return SyncRecord{}, false, nil
	}
	if err != nil {
		return SyncRecord{}, false, err
	}

	finished, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return SyncRecord{}, false, err
	}

	id, err := d.GetState(ctx, stateLastSyncID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return SyncRecord{}, false, err
	}
	return SyncRecord{RunID: id, FinishedAt: finished}, true, nil
}
