package store

import "time"

// Activity sources
const (
	SourceStrava = "strava"
	SourceFIT    = "fit"
)

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Activity is a completed (or planned) workout and its stored score
type Activity struct {
	ID                   int64     `db:"id"`
	AthleteID            int64     `db:"athlete_id"`
	Name                 string    `db:"name"`
	SportType            string    `db:"sport_type"` // provider type, e.g. "TrailRun"
	Modality             string    `db:"modality"`   // run, bike, swim, strength, other
	Status               string    `db:"status"`     // completed, planned, skipped
	Source               string    `db:"source"`     // strava, fit
	StartDate            time.Time `db:"start_date"`
	StartDateLocal       time.Time `db:"start_date_local"`
	Timezone             string    `db:"timezone"`
	Distance             float64   `db:"distance"`     // meters
	MovingTime           int       `db:"moving_time"`  // seconds
	ElapsedTime          int       `db:"elapsed_time"` // seconds
	AverageHeartrate     *float64  `db:"average_heartrate"`
	MaxHeartrate         *float64  `db:"max_heartrate"`
	AverageWatts         *float64  `db:"average_watts"`
	WeightedAverageWatts *float64  `db:"weighted_average_watts"`
	PerceivedExertion    *int      `db:"perceived_exertion"` // 1-10
	HasHeartrate         bool      `db:"has_heartrate"`
	DeviceWatts          bool      `db:"device_watts"`
	StreamsSynced        bool      `db:"streams_synced"`

	// Set once scored
	TSS             *float64 `db:"tss"`
	TSSTier         *string  `db:"tss_tier"`
	IntensityFactor *float64 `db:"intensity_factor"`
	NormalizedHR    *float64 `db:"normalized_hr"`
	NormalizedPower *float64 `db:"normalized_power"`
	ScoreKey        *string  `db:"score_key"`
}

// HasPower reports whether the activity carries power data worth fetching
func (a *Activity) HasPower() bool {
	return a.DeviceWatts || a.WeightedAverageWatts != nil
}

// ActivityScore is the scorer output persisted back onto an activity
type ActivityScore struct {
	ActivityID      int64
	TSS             float64
	Tier            string
	IntensityFactor float64
	NormalizedHR    *float64
	NormalizedPower *float64
	ScoreKey        string // fingerprint of the thresholds used
}

// ActivityLoad is the minimal per-activity view used for load aggregation
type ActivityLoad struct {
	StartDateLocal time.Time
	TSS            float64
	Status         string
}

// StreamPoint represents a single data point from activity streams
type StreamPoint struct {
	ActivityID     int64    `db:"activity_id"`
	TimeOffset     int      `db:"time_offset"` // seconds
	Heartrate      *int     `db:"heartrate"`   // bpm
	Watts          *int     `db:"watts"`
	VelocitySmooth *float64 `db:"velocity_smooth"` // m/s
	Distance       *float64 `db:"distance"`        // cumulative meters
}

// LoadSnapshot is the stored load for one day
type LoadSnapshot struct {
	Date     string  `db:"date"` // YYYY-MM-DD
	DailyTSS float64 `db:"daily_tss"`
	ATL      float64 `db:"atl"`
	CTL      float64 `db:"ctl"`
	TSB      float64 `db:"tsb"`
}

// RecoveryScore is a 0-100 wearable recovery reading for one day
type RecoveryScore struct {
	Date   string  `db:"date"` // YYYY-MM-DD
	Score  float64 `db:"score"`
	Source string  `db:"source"`
}
