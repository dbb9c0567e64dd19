package store

import (
	"database/sql"
	"errors"
)

// SaveRecoveryScore records the recovery score for a day, replacing any earlier reading
func (db *DB) SaveRecoveryScore(r RecoveryScore) error {
	_, err := db.Exec(`
		INSERT INTO recovery_scores (date, score, source, recorded_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			score = excluded.score,
			source = excluded.source,
			recorded_at = CURRENT_TIMESTAMP
	`, r.Date, r.Score, r.Source)
	return err
}

// LatestRecoveryScore returns the most recent recovery score on or before date
func (db *DB) LatestRecoveryScore(date string) (*RecoveryScore, error) {
	var r RecoveryScore
	err := db.QueryRow(`
		SELECT date, score, source
		FROM recovery_scores
		WHERE date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, date).Scan(&r.Date, &r.Score, &r.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecoveryScore
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
