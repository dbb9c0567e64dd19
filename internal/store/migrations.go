package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activities from any source, with the TSS computed at ingestion
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			athlete_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			sport_type TEXT NOT NULL,
			modality TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			source TEXT NOT NULL DEFAULT 'strava',
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT '',
			distance REAL NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			average_heartrate REAL,
			max_heartrate REAL,
			average_watts REAL,
			weighted_average_watts REAL,
			perceived_exertion INTEGER,
			has_heartrate INTEGER NOT NULL,
			device_watts INTEGER NOT NULL DEFAULT 0,
			streams_synced INTEGER DEFAULT 0,
			tss REAL,
			tss_tier TEXT,
			intensity_factor REAL,
			normalized_hr REAL,
			normalized_power REAL,
			score_key TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_modality ON activities(modality)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_score_key ON activities(score_key)`,

		// Streams (second-by-second data from /activities/{id}/streams or a FIT file)
		`CREATE TABLE IF NOT EXISTS streams (
			activity_id INTEGER NOT NULL,
			time_offset INTEGER NOT NULL,
			heartrate INTEGER,
			watts INTEGER,
			velocity_smooth REAL,
			distance REAL,
			PRIMARY KEY (activity_id, time_offset),
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Daily load snapshot (derived, rebuilt after each sync)
		`CREATE TABLE IF NOT EXISTS load_snapshots (
			date TEXT PRIMARY KEY,
			daily_tss REAL NOT NULL,
			atl REAL NOT NULL,
			ctl REAL NOT NULL,
			tsb REAL NOT NULL,
			computed_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Wearable recovery scores (0-100), one per day
		`CREATE TABLE IF NOT EXISTS recovery_scores (
			date TEXT PRIMARY KEY,
			score REAL NOT NULL CHECK (score >= 0 AND score <= 100),
			source TEXT NOT NULL,
			recorded_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
