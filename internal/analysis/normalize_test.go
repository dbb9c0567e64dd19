package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constantStream(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestNormalizeStream(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		expected float64
	}{
		{
			name:     "empty stream",
			samples:  nil,
			expected: 0,
		},
		{
			name:     "short stream uses mean",
			samples:  []float64{100, 101, 102},
			expected: 101,
		},
		{
			name:     "short stream mean is rounded",
			samples:  []float64{1, 2},
			expected: 2,
		},
		{
			name:     "29 samples still uses mean",
			samples:  append(constantStream(28, 100), 129),
			expected: 101, // 2929/29
		},
		{
			name:     "constant stream of exactly the window",
			samples:  constantStream(30, 180),
			expected: 180,
		},
		{
			name:     "constant long stream",
			samples:  constantStream(3600, 215),
			expected: 215,
		},
		{
			name:     "dropouts count as zero",
			samples:  []float64{100, math.NaN(), 100},
			expected: 67,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeStream(tt.samples)
			if result != tt.expected {
				t.Errorf("NormalizeStream() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNormalizeStream_FlatSignalProperty(t *testing.T) {
	for _, n := range []int{30, 31, 45, 600} {
		for _, v := range []float64{0, 1, 99, 142, 250, 1000} {
			assert.Equal(t, v, NormalizeStream(constantStream(n, v)), "n=%d v=%v", n, v)
		}
	}
}

func TestNormalizeStream_ShortStreamProperty(t *testing.T) {
	samples := []float64{}
	for i := 0; i < 29; i++ {
		samples = append(samples, float64(120+i*3%17))
		var sum float64
		for _, v := range samples {
			sum += v
		}
		assert.Equal(t, math.Round(sum/float64(len(samples))), NormalizeStream(samples))
	}
}

func TestNormalizeStream_WeightsHardSegments(t *testing.T) {
	// 30s easy then 30s hard: mean is 200
	samples := append(constantStream(30, 100), constantStream(30, 300)...)

	np := NormalizeStream(samples)
	assert.Greater(t, np, 200.0)
	assert.Less(t, np, 300.0)
}

func TestSensorStream_Resample(t *testing.T) {
	tests := []struct {
		name     string
		stream   SensorStream
		expected []float64
	}{
		{
			name:     "no offsets",
			stream:   SensorStream{Samples: []float64{1, 2, 3}},
			expected: []float64{1, 2, 3},
		},
		{
			name:     "already 1 Hz",
			stream:   SensorStream{Samples: []float64{1, 2, 3}, Offsets: []int{0, 1, 2}},
			expected: []float64{1, 2, 3},
		},
		{
			name:     "short gap holds previous value",
			stream:   SensorStream{Samples: []float64{1, 2, 3}, Offsets: []int{0, 3, 4}},
			expected: []float64{1, 1, 1, 2, 3},
		},
		{
			name:     "long gap is collapsed",
			stream:   SensorStream{Samples: []float64{1, 2, 3}, Offsets: []int{0, 1, 60}},
			expected: []float64{1, 2, 3},
		},
		{
			name:     "mismatched offsets are ignored",
			stream:   SensorStream{Samples: []float64{1, 2, 3}, Offsets: []int{0, 5}},
			expected: []float64{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.stream.Resample())
		})
	}
}

func TestNormalizeSensorStream_SmartRecording(t *testing.T) {
	// 30 samples every 2 seconds expand to 59 seconds at 1 Hz
	s := SensorStream{}
	for i := 0; i < 30; i++ {
		s.Samples = append(s.Samples, 150)
		s.Offsets = append(s.Offsets, i*2)
	}

	assert.Len(t, s.Resample(), 59)
	assert.Equal(t, 150.0, NormalizeSensorStream(s))
}
