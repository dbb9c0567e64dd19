package analysis

import "math"

// NormalizationWindow is the rolling window (samples, 1 Hz) used by NormalizeStream
const NormalizationWindow = 30

// MaxHoldGapSeconds is the longest recording gap that Resample fills by holding
// the previous sample. Longer gaps are treated as pauses and collapsed.
const MaxHoldGapSeconds = 10

// SensorStream is a heart rate (bpm) or power (watts) stream.
// Offsets is optional; when present it holds the time offset in seconds of each sample.
type SensorStream struct {
	Samples []float64
	Offsets []int
}

// Len returns the number of raw samples
func (s SensorStream) Len() int {
	return len(s.Samples)
}

// Resample returns the stream at one sample per second.
// Streams without offsets are assumed to be 1 Hz already.
func (s SensorStream) Resample() []float64 {
	if len(s.Offsets) != len(s.Samples) || len(s.Samples) < 2 {
		return s.Samples
	}

	out := make([]float64, 0, len(s.Samples))
	for i, v := range s.Samples {
		out = append(out, v)
		if i == len(s.Samples)-1 {
			break
		}
		gap := s.Offsets[i+1] - s.Offsets[i]
		if gap <= 1 || gap > MaxHoldGapSeconds {
			continue
		}
		for j := 1; j < gap; j++ {
			out = append(out, v)
		}
	}
	return out
}

// NormalizeStream computes normalized power/HR from a 1 Hz stream.
//
// Each 30 second rolling average is raised to the 4th power, averaged, and the
// 4th root is taken. Sustained hard segments weigh more than short spikes.
// Streams shorter than the window fall back to the plain mean.
// The result is rounded to the nearest integer.
func NormalizeStream(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	if len(samples) < NormalizationWindow {
		return math.Round(mean(samples))
	}

	var windowSum float64
	for i := 0; i < NormalizationWindow; i++ {
		windowSum += sample(samples[i])
	}

	var totalFourth float64
	count := 0
	for i := NormalizationWindow - 1; i < len(samples); i++ {
		if i >= NormalizationWindow {
			windowSum += sample(samples[i]) - sample(samples[i-NormalizationWindow])
		}
		rolling := windowSum / NormalizationWindow
		if rolling < 0 {
			// float drift from the incremental sum
			rolling = 0
		}
		totalFourth += math.Pow(rolling, 4)
		count++
	}

	return math.Round(math.Pow(totalFourth/float64(count), 0.25))
}

// NormalizeSensorStream resamples to 1 Hz and normalizes
func NormalizeSensorStream(s SensorStream) float64 {
	return NormalizeStream(s.Resample())
}

// sample treats dropouts (NaN, Inf, negative) as zero
func sample(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += sample(v)
	}
	return total / float64(len(values))
}
