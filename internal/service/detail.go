package service

import (
	"fmt"

	"trainload/internal/store"
)

// ActivityDetail is one activity with its score breakdown and per-minute charts
type ActivityDetail struct {
	ActivitySummary
	NormalizedHR    *float64 `json:"normalized_hr,omitempty"`
	NormalizedPower *float64 `json:"normalized_power,omitempty"`
	MaxHeartRate    *float64 `json:"max_heartrate,omitempty"`
	AvgPower        *float64 `json:"average_watts,omitempty"`
	WeightedPower   *float64 `json:"weighted_average_watts,omitempty"`
	PerceivedEffort *int     `json:"perceived_exertion,omitempty"`

	// Minute-by-minute averages, 0 where the minute has no readings
	HRByMinute    []float64 `json:"hr_by_minute,omitempty"`
	PowerByMinute []float64 `json:"power_by_minute,omitempty"`
}

// ActivityDetail returns the detail view of one activity
func (l *LoadService) ActivityDetail(id int64) (*ActivityDetail, error) {
	a, err := l.store.GetActivity(id)
	if err != nil {
		return nil, err
	}

	d := &ActivityDetail{
		ActivitySummary: summarize(*a),
		NormalizedHR:    a.NormalizedHR,
		NormalizedPower: a.NormalizedPower,
		MaxHeartRate:    a.MaxHeartrate,
		AvgPower:        a.AverageWatts,
		WeightedPower:   a.WeightedAverageWatts,
		PerceivedEffort: a.PerceivedExertion,
	}

	if a.StreamsSynced {
		points, err := l.store.GetStreams(id)
		if err != nil {
			return nil, fmt.Errorf("getting streams for %d: %w", id, err)
		}
		d.buildChartData(points)
	}

	return d, nil
}

// buildChartData aggregates valid stream readings into per-minute averages
func (d *ActivityDetail) buildChartData(points []store.StreamPoint) {
	if len(points) == 0 {
		return
	}

	minutes := points[len(points)-1].TimeOffset/SecondsPerMinute + 1
	hrSum := make([]float64, minutes)
	hrCount := make([]int, minutes)
	wSum := make([]float64, minutes)
	wCount := make([]int, minutes)

	var anyHR, anyPower bool
	for _, p := range points {
		m := p.TimeOffset / SecondsPerMinute
		if m < 0 || m >= minutes {
			continue
		}
		if isValidHeartrate(p.Heartrate) {
			hrSum[m] += float64(*p.Heartrate)
			hrCount[m]++
			anyHR = true
		}
		if isValidWatts(p.Watts) {
			wSum[m] += float64(*p.Watts)
			wCount[m]++
			anyPower = true
		}
	}

	if anyHR {
		d.HRByMinute = averages(hrSum, hrCount)
	}
	if anyPower {
		d.PowerByMinute = averages(wSum, wCount)
	}
}

func averages(sums []float64, counts []int) []float64 {
	out := make([]float64, len(sums))
	for i := range sums {
		if counts[i] > 0 {
			out[i] = sums[i] / float64(counts[i])
		}
	}
	return out
}
