package store

import (
	"fmt"
	"strings"
)

// streamInsertBatch rows per INSERT, 6 bound parameters each
const streamInsertBatch = 400

const streamColumns = "activity_id, time_offset, heartrate, watts, velocity_smooth, distance"

// SaveStreams replaces the stream data of an activity in one transaction
func (db *DB) SaveStreams(activityID int64, points []StreamPoint) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM streams WHERE activity_id = ?", activityID); err != nil {
		return fmt.Errorf("deleting existing streams: %w", err)
	}

	for start := 0; start < len(points); start += streamInsertBatch {
		batch := points[start:min(start+streamInsertBatch, len(points))]
		query, args := streamInsert(activityID, batch)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("inserting stream points %d-%d: %w", start, start+len(batch)-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// streamInsert builds one multi-row INSERT for batch
func streamInsert(activityID int64, batch []StreamPoint) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO streams (" + streamColumns + ") VALUES ")

	args := make([]any, 0, len(batch)*6)
	for i, p := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, activityID, p.TimeOffset, p.Heartrate, p.Watts, p.VelocitySmooth, p.Distance)
	}
	return sb.String(), args
}

// GetStreams returns an activity's stream points ordered by time offset.
// No rows means no streams were stored.
func (db *DB) GetStreams(activityID int64) ([]StreamPoint, error) {
	rows, err := db.Query(
		"SELECT "+streamColumns+" FROM streams WHERE activity_id = ? ORDER BY time_offset",
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying streams: %w", err)
	}
	defer rows.Close()

	var points []StreamPoint
	for rows.Next() {
		var p StreamPoint
		if err := rows.Scan(&p.ActivityID, &p.TimeOffset, &p.Heartrate, &p.Watts, &p.VelocitySmooth, &p.Distance); err != nil {
			return nil, fmt.Errorf("scanning stream point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
