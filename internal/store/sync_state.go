package store

import (
	"database/sql"
	"errors"
	"strconv"
)

// Sync state keys
const (
	KeyLastActivitySync = "last_activity_sync"
	KeyHistoryVersion   = "history_version"
	KeyScoreFingerprint = "score_fingerprint"
)

// GetSyncState retrieves a sync state value by key
// Returns empty string if key doesn't exist
func (db *DB) GetSyncState(key string) (string, error) {
	var value string
	err := db.QueryRow(`
		SELECT value FROM sync_state WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a sync state value
func (db *DB) SetSyncState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// HistoryVersion returns the counter bumped whenever stored loads change.
// It is 0 before the first change.
func (db *DB) HistoryVersion() (int64, error) {
	v, err := db.GetSyncState(KeyHistoryVersion)
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// BumpHistoryVersion increments the history version and returns the new value
func (db *DB) BumpHistoryVersion() (int64, error) {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, '1', CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = CAST(CAST(value AS INTEGER) + 1 AS TEXT),
			updated_at = CURRENT_TIMESTAMP
	`, KeyHistoryVersion)
	if err != nil {
		return 0, err
	}
	return db.HistoryVersion()
}
