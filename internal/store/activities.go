package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const activityColumns = `id, athlete_id, name, sport_type, modality, status, source,
	start_date, start_date_local, timezone, distance, moving_time, elapsed_time,
	average_heartrate, max_heartrate, average_watts, weighted_average_watts,
	perceived_exertion, has_heartrate, device_watts, streams_synced,
	tss, tss_tier, intensity_factor, normalized_hr, normalized_power, score_key`

// UpsertActivity inserts or updates an activity.
// A stored score is invalidated when any field that feeds the scorer changes.
func (db *DB) UpsertActivity(a *Activity) error {
	status := a.Status
	if status == "" {
		status = "completed"
	}
	source := a.Source
	if source == "" {
		source = SourceStrava
	}

	_, err := db.Exec(`
		INSERT INTO activities (
			id, athlete_id, name, sport_type, modality, status, source,
			start_date, start_date_local, timezone, distance, moving_time, elapsed_time,
			average_heartrate, max_heartrate, average_watts, weighted_average_watts,
			perceived_exertion, has_heartrate, device_watts, streams_synced, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			score_key = CASE WHEN
				activities.sport_type IS NOT excluded.sport_type OR
				activities.status IS NOT excluded.status OR
				activities.distance IS NOT excluded.distance OR
				activities.modality IS NOT excluded.modality OR
				activities.moving_time IS NOT excluded.moving_time OR
				activities.elapsed_time IS NOT excluded.elapsed_time OR
				activities.average_heartrate IS NOT excluded.average_heartrate OR
				activities.weighted_average_watts IS NOT excluded.weighted_average_watts OR
				activities.perceived_exertion IS NOT excluded.perceived_exertion
			THEN NULL ELSE activities.score_key END,
			athlete_id = excluded.athlete_id,
			name = excluded.name,
			sport_type = excluded.sport_type,
			modality = excluded.modality,
			status = excluded.status,
			source = excluded.source,
			start_date = excluded.start_date,
			start_date_local = excluded.start_date_local,
			timezone = excluded.timezone,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			average_heartrate = excluded.average_heartrate,
			max_heartrate = excluded.max_heartrate,
			average_watts = excluded.average_watts,
			weighted_average_watts = excluded.weighted_average_watts,
			perceived_exertion = excluded.perceived_exertion,
			has_heartrate = excluded.has_heartrate,
			device_watts = excluded.device_watts,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.AthleteID, a.Name, a.SportType, a.Modality, status, source,
		a.StartDate.Format(time.RFC3339), a.StartDateLocal.Format(time.RFC3339), a.Timezone,
		a.Distance, a.MovingTime, a.ElapsedTime,
		a.AverageHeartrate, a.MaxHeartrate, a.AverageWatts, a.WeightedAverageWatts,
		a.PerceivedExertion, boolToInt(a.HasHeartrate), boolToInt(a.DeviceWatts), boolToInt(a.StreamsSynced),
	)
	return err
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(id int64) (*Activity, error) {
	row := db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListActivities returns activities ordered by start date descending
func (db *DB) ListActivities(limit, offset int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		ORDER BY start_date DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// CountActivities returns the total number of activities
func (db *DB) CountActivities() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activities").Scan(&count)
	return count, err
}

// GetActivitiesNeedingStreams returns Strava activities with HR or power whose
// streams haven't been fetched yet
func (db *DB) GetActivitiesNeedingStreams(limit int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE streams_synced = 0
		AND source = ?
		AND (has_heartrate = 1 OR device_watts = 1 OR weighted_average_watts IS NOT NULL)
		ORDER BY start_date DESC
		LIMIT ?
	`, SourceStrava, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// MarkStreamsSynced marks an activity's streams as synced and clears its score,
// since a summary-only score is superseded once streams are stored
func (db *DB) MarkStreamsSynced(id int64) error {
	result, err := db.Exec(`
		UPDATE activities
		SET streams_synced = 1, score_key = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// GetActivitiesNeedingScore returns completed activities that are unscored or
// were scored with a different threshold fingerprint
func (db *DB) GetActivitiesNeedingScore(scoreKey string) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE status = 'completed'
		AND (score_key IS NULL OR score_key != ?)
		ORDER BY start_date
	`, scoreKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// UpdateActivityScore stores the computed TSS for an activity
func (db *DB) UpdateActivityScore(s ActivityScore) error {
	result, err := db.Exec(`
		UPDATE activities
		SET tss = ?, tss_tier = ?, intensity_factor = ?,
			normalized_hr = ?, normalized_power = ?, score_key = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, s.TSS, s.Tier, s.IntensityFactor, s.NormalizedHR, s.NormalizedPower, s.ScoreKey, s.ActivityID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// ListActivityLoads returns the date, TSS and status of every scored activity,
// oldest first
func (db *DB) ListActivityLoads() ([]ActivityLoad, error) {
	rows, err := db.Query(`
		SELECT start_date_local, tss, status
		FROM activities
		WHERE tss IS NOT NULL
		ORDER BY start_date_local
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loads []ActivityLoad
	for rows.Next() {
		var l ActivityLoad
		var startDateLocal string
		if err := rows.Scan(&startDateLocal, &l.TSS, &l.Status); err != nil {
			return nil, err
		}
		l.StartDateLocal, err = time.Parse(time.RFC3339, startDateLocal)
		if err != nil {
			return nil, fmt.Errorf("parsing start_date_local %q: %w", startDateLocal, err)
		}
		loads = append(loads, l)
	}

	return loads, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanActivity scans a single activity from a row
func scanActivity(row scanner) (*Activity, error) {
	var a Activity
	var startDate, startDateLocal string
	var hasHR, deviceWatts, streamsSynced int

	err := row.Scan(
		&a.ID, &a.AthleteID, &a.Name, &a.SportType, &a.Modality, &a.Status, &a.Source,
		&startDate, &startDateLocal, &a.Timezone, &a.Distance, &a.MovingTime, &a.ElapsedTime,
		&a.AverageHeartrate, &a.MaxHeartrate, &a.AverageWatts, &a.WeightedAverageWatts,
		&a.PerceivedExertion, &hasHR, &deviceWatts, &streamsSynced,
		&a.TSS, &a.TSSTier, &a.IntensityFactor, &a.NormalizedHR, &a.NormalizedPower, &a.ScoreKey,
	)
	if err != nil {
		return nil, err
	}

	var parseErr error
	a.StartDate, parseErr = time.Parse(time.RFC3339, startDate)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, parseErr)
	}
	a.StartDateLocal, parseErr = time.Parse(time.RFC3339, startDateLocal)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_date_local %q: %w", startDateLocal, parseErr)
	}
	a.HasHeartrate = hasHR == 1
	a.DeviceWatts = deviceWatts == 1
	a.StreamsSynced = streamsSynced == 1

	return &a, nil
}

// scanActivities scans multiple activities from rows
func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var activities []Activity

	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}

	return activities, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
