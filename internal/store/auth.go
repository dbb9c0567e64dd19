package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// the auth table holds a single row
const authRowID = 1

// GetAuth returns the stored Strava credentials or ErrNoAuth
func (db *DB) GetAuth() (*Auth, error) {
	var a Auth
	var expiresAt int64
	err := db.QueryRow(
		"SELECT athlete_id, access_token, refresh_token, expires_at FROM auth WHERE id = ?",
		authRowID,
	).Scan(&a.AthleteID, &a.AccessToken, &a.RefreshToken, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNoAuth
	case err != nil:
		return nil, fmt.Errorf("reading auth: %w", err)
	}

	a.ExpiresAt = time.Unix(expiresAt, 0)
	return &a, nil
}

// SaveAuth stores the credentials of a fresh login, replacing any previous athlete
func (db *DB) SaveAuth(a *Auth) error {
	_, err := db.Exec(`
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, authRowID, a.AthleteID, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	return nil
}

// UpdateTokens persists a refreshed token pair. It fails with ErrNoAuth when
// nobody is logged in.
func (db *DB) UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error {
	return db.execAuth(
		"UPDATE auth SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		accessToken, refreshToken, expiresAt.Unix(), authRowID,
	)
}

// DeleteAuth forgets the stored credentials (logout)
func (db *DB) DeleteAuth() error {
	return db.execAuth("DELETE FROM auth WHERE id = ?", authRowID)
}

// execAuth runs a statement against the auth row, mapping "no row" to ErrNoAuth
func (db *DB) execAuth(query string, args ...any) error {
	result, err := db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating auth: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating auth: %w", err)
	}
	if n == 0 {
		return ErrNoAuth
	}
	return nil
}
