package store

import "fmt"

// ReplaceLoadSnapshots swaps the stored daily load series for snaps
func (db *DB) ReplaceLoadSnapshots(snaps []LoadSnapshot) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM load_snapshots"); err != nil {
		return fmt.Errorf("deleting snapshots: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO load_snapshots (date, daily_tss, atl, ctl, tsb)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range snaps {
		if _, err := stmt.Exec(s.Date, s.DailyTSS, s.ATL, s.CTL, s.TSB); err != nil {
			return fmt.Errorf("inserting snapshot %s: %w", s.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetLoadSnapshots returns snapshots with from <= date <= to (YYYY-MM-DD), oldest first
func (db *DB) GetLoadSnapshots(from, to string) ([]LoadSnapshot, error) {
	rows, err := db.Query(`
		SELECT date, daily_tss, atl, ctl, tsb
		FROM load_snapshots
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []LoadSnapshot
	for rows.Next() {
		var s LoadSnapshot
		if err := rows.Scan(&s.Date, &s.DailyTSS, &s.ATL, &s.CTL, &s.TSB); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}

	return snaps, rows.Err()
}
