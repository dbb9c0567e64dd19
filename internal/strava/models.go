package strava

import "time"

// Activity represents a Strava activity summary from the API
type Activity struct {
	ID                   int64     `json:"id"`
	Athlete              Athlete   `json:"athlete"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	SportType            string    `json:"sport_type"`
	StartDate            time.Time `json:"start_date"`
	StartDateLocal       time.Time `json:"start_date_local"`
	Timezone             string    `json:"timezone"`
	Distance             float64   `json:"distance"`     // meters
	MovingTime           int       `json:"moving_time"`  // seconds
	ElapsedTime          int       `json:"elapsed_time"` // seconds
	AverageHeartrate     *float64  `json:"average_heartrate"`
	MaxHeartrate         *float64  `json:"max_heartrate"`
	AverageWatts         *float64  `json:"average_watts"`
	WeightedAverageWatts *float64  `json:"weighted_average_watts"`
	DeviceWatts          bool      `json:"device_watts"`
	PerceivedExertion    *float64  `json:"perceived_exertion"` // 1-10, only on the owner's activities
	HasHeartrate         bool      `json:"has_heartrate"`
	Manual               bool      `json:"manual"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// EffectiveSportType prefers sport_type and falls back to the legacy type field
func (a Activity) EffectiveSportType() string {
	if a.SportType != "" {
		return a.SportType
	}
	return a.Type
}

// Streams represents activity stream data from the API
// Strava returns streams keyed by type when key_by_type=true
type Streams struct {
	Time           *StreamData[int]     `json:"time"`
	Heartrate      *StreamData[int]     `json:"heartrate"`
	Watts          *StreamData[*int]    `json:"watts"` // null while coasting on some devices
	VelocitySmooth *StreamData[float64] `json:"velocity_smooth"`
	Distance       *StreamData[float64] `json:"distance"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// Len returns the length of the stream, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}

// HasHeartrate returns true if heartrate data exists
func (s *Streams) HasHeartrate() bool {
	return s != nil && s.Heartrate != nil && len(s.Heartrate.Data) > 0
}

// HasWatts returns true if power data exists
func (s *Streams) HasWatts() bool {
	return s != nil && s.Watts != nil && len(s.Watts.Data) > 0
}
