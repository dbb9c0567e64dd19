// Package fitfile imports activities recorded by Garmin and other devices in
// the FIT format so they can be scored alongside synced activities.
package fitfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tormoder/fit"

	"trainload/internal/store"
)

var (
	// ErrNotActivity is returned for FIT files that are not activity recordings
	// (courses, workouts, settings)
	ErrNotActivity = errors.New("fit: not an activity file")
	// ErrNoData is returned when an activity has neither sessions nor records
	ErrNoData = errors.New("fit: activity has no sessions or records")
)

// FIT timestamps before this are uninitialised fields
var fitEpoch = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// UTC offsets outside this range are corrupt local timestamps
const maxUTCOffset = 14 * time.Hour

// Import is a decoded FIT activity
type Import struct {
	ID              int64 // negative, derived from the start time
	Name            string
	SportType       string // Strava-style, e.g. "Run", "TrailRun", "Ride"
	StartTime       time.Time
	UTCOffset       time.Duration // device local time minus UTC
	MovingTime      int // seconds
	ElapsedTime     int // seconds
	Distance        float64
	AvgHeartRate    *float64
	MaxHeartRate    *float64
	AvgPower        *float64
	NormalizedPower *float64
	Points          []store.StreamPoint
}

// Decode reads a FIT activity
func Decode(r io.Reader) (*Import, error) {
	f, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding fit file: %w", err)
	}
	af, err := f.Activity()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotActivity, err)
	}
	return fromActivity(af)
}

func fromActivity(af *fit.ActivityFile) (*Import, error) {
	if len(af.Sessions) == 0 && len(af.Records) == 0 {
		return nil, ErrNoData
	}

	imp := &Import{SportType: "Other"}
	if len(af.Sessions) > 0 {
		s := af.Sessions[0]
		imp.SportType = sportType(s.Sport, s.SubSport)
		if validTime(s.StartTime) {
			imp.StartTime = s.StartTime.UTC()
		}
		imp.MovingTime = seconds(s.GetTotalTimerTimeScaled())
		imp.ElapsedTime = seconds(s.GetTotalElapsedTimeScaled())
		if d := s.GetTotalDistanceScaled(); finite(d) {
			imp.Distance = d
		}
		imp.AvgHeartRate = u8(s.AvgHeartRate)
		imp.MaxHeartRate = u8(s.MaxHeartRate)
		imp.AvgPower = u16(s.AvgPower)
		imp.NormalizedPower = u16(s.NormalizedPower)
	}

	if imp.StartTime.IsZero() {
		for _, rec := range af.Records {
			if validTime(rec.Timestamp) {
				imp.StartTime = rec.Timestamp.UTC()
				break
			}
		}
	}
	if imp.StartTime.IsZero() {
		return nil, ErrNoData
	}

	imp.ID = -imp.StartTime.Unix()
	imp.UTCOffset = utcOffset(af.Activity)
	imp.Points = streamPoints(af.Records, imp.StartTime, imp.ID)

	if n := len(imp.Points); n > 0 {
		last := imp.Points[n-1]
		if imp.ElapsedTime == 0 {
			imp.ElapsedTime = last.TimeOffset
		}
		if imp.Distance == 0 && last.Distance != nil {
			imp.Distance = *last.Distance
		}
	}
	if imp.MovingTime == 0 {
		imp.MovingTime = imp.ElapsedTime
	}

	imp.Name = fmt.Sprintf("%s %s", imp.SportType, imp.LocalStart().Format("2006-01-02 15:04"))
	return imp, nil
}

// utcOffset reads the device's offset from the activity message. The local
// timestamp carries the wall clock, so the offset is its wall time minus the
// UTC timestamp, rounded to the quarter hour.
func utcOffset(msg *fit.ActivityMsg) time.Duration {
	if msg == nil || !validTime(msg.Timestamp) || !validTime(msg.LocalTimestamp) {
		return 0
	}
	lt := msg.LocalTimestamp
	wall := time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), 0, time.UTC)
	offset := wall.Sub(msg.Timestamp.UTC()).Round(15 * time.Minute)
	if offset > maxUTCOffset || offset < -maxUTCOffset {
		return 0
	}
	return offset
}

// LocalStart is the start time on the athlete's wall clock, expressed in UTC
// the way provider local dates are
func (imp *Import) LocalStart() time.Time {
	return imp.StartTime.Add(imp.UTCOffset)
}

// timezone formats the offset like provider timezones, e.g. "(GMT-05:00)"
func (imp *Import) timezone() string {
	if imp.UTCOffset == 0 {
		return "UTC"
	}
	sign := '+'
	off := imp.UTCOffset
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("(GMT%c%02d:%02d)", sign, int(off.Hours()), int(off.Minutes())%60)
}

// streamPoints converts 1 Hz (or sparser) records to stream points relative to start
func streamPoints(records []*fit.RecordMsg, start time.Time, activityID int64) []store.StreamPoint {
	points := make([]store.StreamPoint, 0, len(records))
	lastOffset := -1
	for _, rec := range records {
		if rec == nil || !validTime(rec.Timestamp) {
			continue
		}
		offset := int(rec.Timestamp.Sub(start) / time.Second)
		if offset < 0 || offset <= lastOffset {
			continue
		}
		lastOffset = offset

		p := store.StreamPoint{
			ActivityID: activityID,
			TimeOffset: offset,
			Heartrate:  intPtr(u8(rec.HeartRate)),
		}
		if rec.Power != math.MaxUint16 {
			w := int(rec.Power)
			p.Watts = &w
		}
		if v := rec.GetSpeedScaled(); finite(v) {
			p.VelocitySmooth = &v
		}
		if d := rec.GetDistanceScaled(); finite(d) {
			p.Distance = &d
		}
		points = append(points, p)
	}
	return points
}

// Activity converts the import into a stored activity
func (imp *Import) Activity(athleteID int64) *store.Activity {
	a := &store.Activity{
		ID:                   imp.ID,
		AthleteID:            athleteID,
		Name:                 imp.Name,
		SportType:            imp.SportType,
		Status:               "completed",
		Source:               store.SourceFIT,
		StartDate:            imp.StartTime,
		StartDateLocal:       imp.LocalStart(),
		Timezone:             imp.timezone(),
		Distance:             imp.Distance,
		MovingTime:           imp.MovingTime,
		ElapsedTime:          imp.ElapsedTime,
		AverageHeartrate:     imp.AvgHeartRate,
		MaxHeartrate:         imp.MaxHeartRate,
		AverageWatts:         imp.AvgPower,
		WeightedAverageWatts: imp.NormalizedPower,
		StreamsSynced:        true,
	}
	for _, p := range imp.Points {
		if p.Heartrate != nil {
			a.HasHeartrate = true
		}
		if p.Watts != nil {
			a.DeviceWatts = true
		}
	}
	return a
}

// sportType maps FIT sport codes onto the provider names the scorer understands
func sportType(sport fit.Sport, sub fit.SubSport) string {
	switch sport {
	case fit.SportRunning:
		if sub == fit.SubSportTrail {
			return "TrailRun"
		}
		return "Run"
	case fit.SportCycling:
		return "Ride"
	case fit.SportSwimming:
		return "Swim"
	case fit.SportTraining:
		if sub == fit.SubSportStrengthTraining {
			return "WeightTraining"
		}
		return "Workout"
	case fit.SportWalking:
		return "Walk"
	case fit.SportHiking:
		return "Hike"
	default:
		return "Other"
	}
}

func validTime(t time.Time) bool {
	return t.After(fitEpoch)
}

func seconds(v float64) int {
	if !finite(v) || v <= 0 {
		return 0
	}
	return int(math.Round(v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func u8(v uint8) *float64 {
	if v == math.MaxUint8 || v == 0 {
		return nil
	}
	f := float64(v)
	return &f
}

func u16(v uint16) *float64 {
	if v == math.MaxUint16 || v == 0 {
		return nil
	}
	f := float64(v)
	return &f
}

func intPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
