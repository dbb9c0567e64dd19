package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeLoads_RegressionFixture(t *testing.T) {
	series := []DailyTSS{
		{Date: date(2024, 1, 1), TSS: 100},
		{Date: date(2024, 1, 2), TSS: 0},
		{Date: date(2024, 1, 3), TSS: 50},
	}

	points := ComputeLoads(series, date(2024, 1, 1), date(2024, 1, 3), 0, 0)
	require.Len(t, points, 3)

	expected := []struct {
		atl, ctl, tsb float64
		ctlDelta      float64
	}{
		{atl: 14.3, ctl: 2.4, tsb: 0},
		{atl: 12.2, ctl: 2.3, tsb: -11.9},
		// full precision state gives 3.46 here; stepwise rounding gives 3.4
		{atl: 17.6, ctl: 3.4, tsb: -9.9, ctlDelta: 0.1},
	}

	for i, want := range expected {
		p := points[i]
		assert.Equal(t, date(2024, 1, 1).AddDate(0, 0, i), p.Date)
		assert.InDelta(t, want.atl, p.ATL, 1e-9, "day %d atl", i+1)
		assert.InDelta(t, want.ctl, p.CTL, want.ctlDelta+1e-9, "day %d ctl", i+1)
		assert.InDelta(t, want.tsb, p.TSB, 1e-9, "day %d tsb", i+1)
	}
}

func TestComputeLoads_TSBLagsOneDay(t *testing.T) {
	var series []DailyTSS
	start := date(2024, 3, 1)
	for i := 0; i < 120; i++ {
		if i%7 == 6 {
			continue // rest day
		}
		series = append(series, DailyTSS{Date: start.AddDate(0, 0, i), TSS: float64(30 + (i*37)%90)})
	}

	seeds := []struct{ atl, ctl float64 }{
		{0, 0},
		{10, 20},
		{80, 45},
	}

	for _, seed := range seeds {
		points := ComputeLoads(series, start, start.AddDate(0, 0, 119), seed.atl, seed.ctl)
		require.Len(t, points, 120)

		assert.Equal(t, round1(seed.ctl-seed.atl), points[0].TSB)
		for i := 1; i < len(points); i++ {
			want := round1(points[i-1].CTL - points[i-1].ATL)
			if points[i].TSB != want {
				t.Fatalf("seed %+v day %d: TSB = %v, want %v", seed, i, points[i].TSB, want)
			}
		}
	}
}

func TestComputeLoads_ZeroActivityDecay(t *testing.T) {
	series := []DailyTSS{{Date: date(2024, 1, 1), TSS: 0}}

	points := ComputeLoads(series, date(2024, 1, 1), date(2024, 12, 31), 50, 60)
	require.Len(t, points, 366)

	for i := 1; i < len(points); i++ {
		if points[i].ATL > points[i-1].ATL || points[i].CTL > points[i-1].CTL {
			t.Fatalf("day %d: load increased without training", i)
		}
	}

	last := CurrentLoad(points)
	assert.InDelta(t, 0, last.ATL, 0.05)
	assert.InDelta(t, 0, last.CTL, 0.05)
	assert.InDelta(t, 0, last.TSB, 0.05)
}

func TestComputeLoads_NoGaps(t *testing.T) {
	series := []DailyTSS{
		{Date: date(2024, 1, 15), TSS: 80},
		{Date: date(2024, 2, 29), TSS: 120},
		{Date: date(2024, 3, 2), TSS: 60},
	}

	points := ComputeLoads(series, date(2024, 1, 1), date(2024, 3, 31), 0, 0)
	require.Len(t, points, 91)

	for i, p := range points {
		assert.Equal(t, date(2024, 1, 1).AddDate(0, 0, i), p.Date)
	}
}

func TestComputeLoads_EmptySeries(t *testing.T) {
	assert.Empty(t, ComputeLoads(nil, date(2024, 1, 1), date(2024, 3, 31), 0, 0))
	assert.Empty(t, ComputeLoads([]DailyTSS{}, date(2024, 1, 1), date(2024, 1, 1), 40, 40))
}

func TestComputeLoads_InvertedWindow(t *testing.T) {
	series := []DailyTSS{{Date: date(2024, 1, 1), TSS: 50}}
	assert.Empty(t, ComputeLoads(series, date(2024, 2, 1), date(2024, 1, 1), 0, 0))
}

func TestComputeLoads_HistoryBeforeWindow(t *testing.T) {
	start := date(2024, 1, 1)
	var series []DailyTSS
	for i := 0; i < 90; i++ {
		series = append(series, DailyTSS{Date: start.AddDate(0, 0, i), TSS: 100})
	}

	windowStart := start.AddDate(0, 0, 60)
	windowEnd := start.AddDate(0, 0, 89)

	full := ComputeLoads(series, windowStart, windowEnd, 0, 0)
	truncated := ComputeLoads(series[60:], windowStart, windowEnd, 0, 0)

	require.Len(t, full, 30)
	require.Len(t, truncated, 30)
	assert.Equal(t, windowStart, full[0].Date)

	// the recursive state entering the window carries the prior 60 days
	assert.Greater(t, full[0].CTL, truncated[0].CTL+30)
	assert.Greater(t, full[0].ATL, 99.0)
}

func TestComputeLoads_WindowBeforeHistory(t *testing.T) {
	series := []DailyTSS{{Date: date(2024, 1, 10), TSS: 70}}

	points := ComputeLoads(series, date(2024, 1, 1), date(2024, 1, 10), 0, 0)
	require.Len(t, points, 10)

	for _, p := range points[:9] {
		assert.Zero(t, p.ATL)
		assert.Zero(t, p.CTL)
	}
	assert.Equal(t, 10.0, points[9].ATL)
}

func TestComputeLoads_UnsortedAndDuplicateDays(t *testing.T) {
	unsorted := []DailyTSS{
		{Date: date(2024, 1, 2), TSS: 50},
		{Date: date(2024, 1, 1), TSS: 30},
		{Date: date(2024, 1, 1).Add(18 * time.Hour), TSS: 20},
	}
	sorted := []DailyTSS{
		{Date: date(2024, 1, 1), TSS: 50},
		{Date: date(2024, 1, 2), TSS: 50},
	}

	assert.Equal(t,
		ComputeLoads(sorted, date(2024, 1, 1), date(2024, 1, 5), 0, 0),
		ComputeLoads(unsorted, date(2024, 1, 1), date(2024, 1, 5), 0, 0),
	)
}

func TestComputeLoads_InvalidTSSClamped(t *testing.T) {
	series := []DailyTSS{
		{Date: date(2024, 1, 1), TSS: -40},
		{Date: date(2024, 1, 2), TSS: math.NaN()},
	}

	points := ComputeLoads(series, date(2024, 1, 1), date(2024, 1, 2), 0, 0)
	require.Len(t, points, 2)
	for _, p := range points {
		assert.Zero(t, p.ATL)
		assert.Zero(t, p.CTL)
		assert.Zero(t, p.TSB)
	}
}

func TestEstimateSeed(t *testing.T) {
	tests := []struct {
		name     string
		series   []DailyTSS
		atl, ctl float64
	}{
		{
			name:   "empty",
			series: nil,
			atl:    0,
			ctl:    0,
		},
		{
			name: "gap days count as zero",
			series: []DailyTSS{
				{Date: date(2024, 1, 1), TSS: 70},
				{Date: date(2024, 1, 3), TSS: 70},
			},
			atl: 140.0 / 3,
			ctl: 140.0 / 3,
		},
		{
			name: "long history uses first 7 and 42 days",
			series: func() []DailyTSS {
				var s []DailyTSS
				for i := 0; i < 50; i++ {
					tss := 10.0
					if i < 7 {
						tss = 70
					}
					s = append(s, DailyTSS{Date: date(2024, 1, 1).AddDate(0, 0, i), TSS: tss})
				}
				return s
			}(),
			atl: 70,
			ctl: (7*70 + 35*10) / 42.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atl, ctl := EstimateSeed(tt.series)
			if math.Abs(atl-tt.atl) > 1e-9 {
				t.Errorf("EstimateSeed() atl = %v, want %v", atl, tt.atl)
			}
			if math.Abs(ctl-tt.ctl) > 1e-9 {
				t.Errorf("EstimateSeed() ctl = %v, want %v", ctl, tt.ctl)
			}
		})
	}
}

func TestLoadTimeline(t *testing.T) {
	var history []DailyTSS
	for i := 0; i < 30; i++ {
		history = append(history, DailyTSS{Date: date(2024, 5, 1).AddDate(0, 0, i), TSS: 60})
	}

	points := LoadTimeline(history, date(2024, 5, 1), date(2024, 5, 30))
	require.Len(t, points, 30)

	// seeded at steady state, a constant load stays flat
	for _, p := range points {
		assert.InDelta(t, 60, p.ATL, 1e-9)
		assert.InDelta(t, 60, p.CTL, 1e-9)
		assert.InDelta(t, 0, p.TSB, 1e-9)
	}

	atl, ctl := EstimateSeed(history)
	assert.Equal(t, ComputeLoads(history, date(2024, 5, 10), date(2024, 5, 30), atl, ctl),
		LoadTimeline(history, date(2024, 5, 10), date(2024, 5, 30)))
}

func TestDailyTotals(t *testing.T) {
	mountain := time.FixedZone("MST", -7*3600)

	loads := []ActivityLoad{
		{Date: time.Date(2024, 6, 2, 7, 0, 0, 0, mountain), TSS: 60, Status: StatusCompleted},
		{Date: time.Date(2024, 6, 2, 23, 30, 0, 0, mountain), TSS: 30, Status: StatusCompleted},
		{Date: time.Date(2024, 6, 1, 9, 0, 0, 0, mountain), TSS: 45},
		{Date: time.Date(2024, 6, 3, 9, 0, 0, 0, mountain), TSS: 80, Status: StatusPlanned},
		{Date: time.Date(2024, 6, 2, 18, 0, 0, 0, mountain), TSS: 50, Status: StatusSkipped},
	}

	totals := DailyTotals(loads)
	assert.Equal(t, []DailyTSS{
		{Date: date(2024, 6, 1), TSS: 45},
		{Date: date(2024, 6, 2), TSS: 90},
	}, totals)
}

func TestCurrentLoad(t *testing.T) {
	assert.Equal(t, LoadPoint{}, CurrentLoad(nil))

	points := []LoadPoint{
		{Date: date(2024, 1, 1), ATL: 10},
		{Date: date(2024, 1, 2), ATL: 20},
	}
	assert.Equal(t, points[1], CurrentLoad(points))
}
