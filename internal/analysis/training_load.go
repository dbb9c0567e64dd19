package analysis

import (
	"math"
	"sort"
	"time"
)

// Time constants (days) of the two exponential moving averages
const (
	ATLTimeConstant = 7.0  // "fatigue"
	CTLTimeConstant = 42.0 // "fitness"
)

// ActivityStatus is the lifecycle state of an activity as reported by its source
type ActivityStatus string

const (
	StatusCompleted ActivityStatus = "completed"
	StatusPlanned   ActivityStatus = "planned"
	StatusSkipped   ActivityStatus = "skipped"
)

// ActivityLoad is the scored TSS of one activity on its local start date
type ActivityLoad struct {
	Date   time.Time
	TSS    float64
	Status ActivityStatus
}

// DailyTSS is the summed TSS for one calendar day (0 on rest days)
type DailyTSS struct {
	Date time.Time
	TSS  float64
}

// LoadPoint is ATL/CTL/TSB for a day.
// TSB always reflects the previous day's CTL - ATL.
type LoadPoint struct {
	Date time.Time
	ATL  float64 // Acute Training Load (7-day EMA) - "Fatigue"
	CTL  float64 // Chronic Training Load (42-day EMA) - "Fitness"
	TSB  float64 // Training Stress Balance - "Form"
}

// Day returns the calendar day of t (in t's own location) as midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DailyTotals sums completed activities per calendar day.
// Planned or skipped activities contribute nothing.
// The result is sorted by date and only contains days with activities.
func DailyTotals(loads []ActivityLoad) []DailyTSS {
	byDay := make(map[time.Time]float64)
	for _, l := range loads {
		if l.Status != StatusCompleted && l.Status != "" {
			continue
		}
		byDay[Day(l.Date)] += nonNegative(l.TSS)
	}

	totals := make([]DailyTSS, 0, len(byDay))
	for d, tss := range byDay {
		totals = append(totals, DailyTSS{Date: d, TSS: tss})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Date.Before(totals[j].Date)
	})
	return totals
}

// EstimateSeed estimates the load carried into the first day of history.
// ATL is the mean daily TSS over the first min(7, n) days and CTL over the
// first min(42, n) days, where n is the number of calendar days in the history.
func EstimateSeed(series []DailyTSS) (atl, ctl float64) {
	daily := fillDays(series)
	if len(daily) == 0 {
		return 0, 0
	}
	return meanFirst(daily, int(ATLTimeConstant)), meanFirst(daily, int(CTLTimeConstant))
}

// LoadTimeline seeds from the full history and returns the display window
func LoadTimeline(history []DailyTSS, windowStart, windowEnd time.Time) []LoadPoint {
	atl, ctl := EstimateSeed(history)
	return ComputeLoads(history, windowStart, windowEnd, atl, ctl)
}

// ComputeLoads runs the ATL/CTL recursion over every calendar day from the start
// of history (or windowStart, if earlier) through windowEnd, and returns one point
// per day in [windowStart, windowEnd].
//
//	TSB(d) = CTL(d-1) - ATL(d-1)
//	ATL(d) = ATL(d-1) + (TSS(d) - ATL(d-1)) / 7
//	CTL(d) = CTL(d-1) + (TSS(d) - CTL(d-1)) / 42
//
// ATL and CTL are carried at full precision and rounded to 1 decimal on output.
// TSB is the difference of the previous day's output values, so the emitted
// series satisfies tsb[i] == ctl[i-1] - atl[i-1] exactly.
// An empty series yields no points.
func ComputeLoads(series []DailyTSS, windowStart, windowEnd time.Time, initialATL, initialCTL float64) []LoadPoint {
	if len(series) == 0 {
		return nil
	}
	windowStart, windowEnd = Day(windowStart), Day(windowEnd)
	if windowEnd.Before(windowStart) {
		return nil
	}

	daily := make(map[time.Time]float64, len(series))
	first := Day(series[0].Date)
	for _, s := range series {
		d := Day(s.Date)
		daily[d] += nonNegative(s.TSS)
		if d.Before(first) {
			first = d
		}
	}
	if windowStart.Before(first) {
		first = windowStart
	}

	atl, ctl := nonNegative(initialATL), nonNegative(initialCTL)
	prevATL, prevCTL := round1(atl), round1(ctl)

	points := make([]LoadPoint, 0, int(windowEnd.Sub(windowStart).Hours()/24)+1)
	for d := first; !d.After(windowEnd); d = d.AddDate(0, 0, 1) {
		tss := daily[d] // 0 on rest days

		tsb := round1(prevCTL - prevATL)
		atl += (tss - atl) / ATLTimeConstant
		ctl += (tss - ctl) / CTLTimeConstant
		prevATL, prevCTL = round1(atl), round1(ctl)

		if d.Before(windowStart) {
			continue
		}
		points = append(points, LoadPoint{
			Date: d,
			ATL:  prevATL,
			CTL:  prevCTL,
			TSB:  tsb,
		})
	}

	return points
}

// CurrentLoad returns the most recent point, or the zero value
func CurrentLoad(points []LoadPoint) LoadPoint {
	if len(points) == 0 {
		return LoadPoint{}
	}
	return points[len(points)-1]
}

// fillDays expands a sparse series to one value per calendar day
func fillDays(series []DailyTSS) []float64 {
	if len(series) == 0 {
		return nil
	}

	byDay := make(map[time.Time]float64, len(series))
	first, last := Day(series[0].Date), Day(series[0].Date)
	for _, s := range series {
		d := Day(s.Date)
		byDay[d] += nonNegative(s.TSS)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var out []float64
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, byDay[d])
	}
	return out
}

func meanFirst(values []float64, n int) float64 {
	if n > len(values) {
		n = len(values)
	}
	if n == 0 {
		return 0
	}
	var total float64
	for _, v := range values[:n] {
		total += v
	}
	return total / float64(n)
}

func round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
