package service

import (
	"fmt"

	"trainload/internal/analysis"
	"trainload/internal/store"
	"trainload/internal/strava"
)

// sensorStreams extracts HR and power streams (with offsets) for the scorer.
// Readings outside the plausible range are dropped, not zeroed.
func sensorStreams(points []store.StreamPoint) analysis.ActivityStreams {
	var s analysis.ActivityStreams
	for _, p := range points {
		if isValidHeartrate(p.Heartrate) {
			s.HeartRate.Samples = append(s.HeartRate.Samples, float64(*p.Heartrate))
			s.HeartRate.Offsets = append(s.HeartRate.Offsets, p.TimeOffset)
		}
		if isValidWatts(p.Watts) {
			s.Power.Samples = append(s.Power.Samples, float64(*p.Watts))
			s.Power.Offsets = append(s.Power.Offsets, p.TimeOffset)
		}
	}
	return s
}

// isValidHeartrate checks if HR is in valid range
func isValidHeartrate(hr *int) bool {
	return hr != nil && *hr > MinValidHeartrate && *hr < MaxValidHeartrate
}

// isValidWatts accepts zero (coasting) but not dropout spikes
func isValidWatts(w *int) bool {
	return w != nil && *w >= 0 && *w < MaxValidWatts
}

// convertStreams converts Strava API streams to store stream points
func convertStreams(activityID int64, s *strava.Streams) []store.StreamPoint {
	length := s.Len()
	if length == 0 {
		return nil
	}

	points := make([]store.StreamPoint, length)
	for i := 0; i < length; i++ {
		p := store.StreamPoint{
			ActivityID: activityID,
			TimeOffset: s.Time.Data[i],
		}

		if s.Heartrate != nil && i < len(s.Heartrate.Data) {
			hr := s.Heartrate.Data[i]
			p.Heartrate = &hr
		}

		if s.Watts != nil && i < len(s.Watts.Data) && s.Watts.Data[i] != nil {
			w := *s.Watts.Data[i]
			p.Watts = &w
		}

		if s.VelocitySmooth != nil && i < len(s.VelocitySmooth.Data) {
			vel := s.VelocitySmooth.Data[i]
			p.VelocitySmooth = &vel
		}

		if s.Distance != nil && i < len(s.Distance.Data) {
			dist := s.Distance.Data[i]
			p.Distance = &dist
		}

		points[i] = p
	}

	return points
}

// formatDuration formats seconds as "H:MM:SS" or "M:SS"
func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
