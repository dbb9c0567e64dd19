package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"trainload/internal/analysis"
	"trainload/internal/observability"
	"trainload/internal/store"
)

const dateLayout = "2006-01-02"

// ErrInvalidWindow is returned for timeline windows outside MinWindowDays..MaxWindowDays
var ErrInvalidWindow = fmt.Errorf("window must be between %d and %d days", MinWindowDays, MaxWindowDays)

// LoadService answers load and readiness queries for the TUI and HTTP API
type LoadService struct {
	store      *store.DB
	cache      *freecache.Cache
	windowDays int
	now        func() time.Time
}

// NewLoadService creates a load service with a timeline cache of cacheMB megabytes.
// windowDays is the default timeline length used by Current.
func NewLoadService(db *store.DB, cacheMB, windowDays int) *LoadService {
	if cacheMB <= 0 {
		cacheMB = 1
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &LoadService{
		store:      db,
		cache:      freecache.NewCache(cacheMB * 1024 * 1024),
		windowDays: windowDays,
		now:        time.Now,
	}
}

// TimelinePoint is one day of the load timeline
type TimelinePoint struct {
	Date string  `json:"date"`
	TSS  float64 `json:"tss"`
	ATL  float64 `json:"atl"`
	CTL  float64 `json:"ctl"`
	TSB  float64 `json:"tsb"`
}

// Timeline returns one point per day for the trailing windowDays ending today.
// The recursion always runs over the full history so early points are seeded correctly.
func (l *LoadService) Timeline(windowDays int) ([]TimelinePoint, error) {
	if windowDays < MinWindowDays || windowDays > MaxWindowDays {
		return nil, ErrInvalidWindow
	}

	version, err := l.store.HistoryVersion()
	if err != nil {
		return nil, fmt.Errorf("reading history version: %w", err)
	}

	today := analysis.Day(l.now())
	key := []byte(fmt.Sprintf("timeline:%d:%d:%s", windowDays, version, today.Format(dateLayout)))

	if cached, err := l.cache.Get(key); err == nil {
		points := []TimelinePoint{}
		if err := json.Unmarshal(cached, &points); err == nil {
			return points, nil
		}
	}

	points, err := l.computeTimeline(windowDays, today)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(points); err == nil {
		if err := l.cache.Set(key, data, int(TimelineCacheTTL/time.Second)); err != nil {
			logrus.WithError(err).Debug("Timeline too large to cache")
		}
	}

	return points, nil
}

func (l *LoadService) computeTimeline(windowDays int, today time.Time) ([]TimelinePoint, error) {
	started := time.Now()
	defer func() { observability.ObserveLoadCompute(time.Since(started)) }()

	loads, err := l.store.ListActivityLoads()
	if err != nil {
		return nil, fmt.Errorf("listing activity loads: %w", err)
	}

	history := analysis.DailyTotals(toAnalysisLoads(loads))
	windowStart := today.AddDate(0, 0, -(windowDays - 1))

	daily := make(map[time.Time]float64, len(history))
	for _, d := range history {
		daily[d.Date] = d.TSS
	}

	computed := analysis.LoadTimeline(history, windowStart, today)
	points := make([]TimelinePoint, 0, len(computed))
	for _, p := range computed {
		points = append(points, TimelinePoint{
			Date: p.Date.Format(dateLayout),
			TSS:  daily[p.Date],
			ATL:  p.ATL,
			CTL:  p.CTL,
			TSB:  p.TSB,
		})
	}
	return points, nil
}

// RecoveryReading is the latest recovery score and its classification
type RecoveryReading struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
	analysis.Recovery
}

// CurrentState is today's load, form and recovery picture
type CurrentState struct {
	Date     string             `json:"date"`
	ATL      float64            `json:"atl"`
	CTL      float64            `json:"ctl"`
	TSB      float64            `json:"tsb"`
	Form     analysis.Readiness `json:"form"`
	Recovery *RecoveryReading   `json:"recovery,omitempty"`
	Alerts   []analysis.Alert   `json:"alerts"`
}

// Current returns today's ATL/CTL/TSB with its form classification, the latest
// recovery score (if any) and load alerts
func (l *LoadService) Current() (*CurrentState, error) {
	points, err := l.Timeline(l.windowDays)
	if err != nil {
		return nil, err
	}

	loadPoints := toLoadPoints(points)
	today := analysis.CurrentLoad(loadPoints)

	state := &CurrentState{
		Date:   analysis.Day(l.now()).Format(dateLayout),
		ATL:    today.ATL,
		CTL:    today.CTL,
		TSB:    today.TSB,
		Form:   analysis.FormStatus(today.TSB),
		Alerts: analysis.LoadAlerts(loadPoints),
	}
	if state.Alerts == nil {
		state.Alerts = []analysis.Alert{}
	}

	rec, err := l.store.LatestRecoveryScore(state.Date)
	switch {
	case err == nil:
		state.Recovery = &RecoveryReading{
			Date:     rec.Date,
			Score:    rec.Score,
			Recovery: analysis.RecoveryStatus(rec.Score),
		}
	case !errors.Is(err, store.ErrNoRecoveryScore):
		return nil, fmt.Errorf("reading recovery score: %w", err)
	}

	observability.SetCurrentTSB(state.TSB)
	return state, nil
}

// History returns the stored daily load snapshots between from and to (inclusive)
func (l *LoadService) History(from, to time.Time) ([]TimelinePoint, error) {
	snaps, err := l.store.GetLoadSnapshots(from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("reading load snapshots: %w", err)
	}

	points := make([]TimelinePoint, 0, len(snaps))
	for _, s := range snaps {
		points = append(points, TimelinePoint{Date: s.Date, TSS: s.DailyTSS, ATL: s.ATL, CTL: s.CTL, TSB: s.TSB})
	}
	return points, nil
}

// ActivitySummary is a scored activity as shown in lists
type ActivitySummary struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	SportType       string   `json:"sport_type"`
	Modality        string   `json:"modality"`
	Source          string   `json:"source"`
	StartDateLocal  string   `json:"start_date_local"`
	MovingTime      int      `json:"moving_time"`
	Duration        string   `json:"duration"`
	Distance        float64  `json:"distance"`
	AvgHeartRate    *float64 `json:"average_heartrate,omitempty"`
	TSS             *float64 `json:"tss"`
	Tier            *string  `json:"tier"`
	IntensityFactor *float64 `json:"intensity_factor,omitempty"`
}

// ActivityPage is one page of activities, newest first
type ActivityPage struct {
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	Activities []ActivitySummary `json:"activities"`
}

// Activities returns a page of activities with their scores
func (l *LoadService) Activities(limit, offset int) (*ActivityPage, error) {
	if limit <= 0 {
		limit = DefaultActivitiesLimit
	}
	if limit > MaxActivitiesLimit {
		limit = MaxActivitiesLimit
	}
	if offset < 0 {
		offset = 0
	}

	total, err := l.store.CountActivities()
	if err != nil {
		return nil, fmt.Errorf("counting activities: %w", err)
	}
	activities, err := l.store.ListActivities(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	page := &ActivityPage{
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		Activities: make([]ActivitySummary, 0, len(activities)),
	}
	for _, a := range activities {
		page.Activities = append(page.Activities, summarize(a))
	}
	return page, nil
}

func summarize(a store.Activity) ActivitySummary {
	return ActivitySummary{
		ID:              a.ID,
		Name:            a.Name,
		SportType:       a.SportType,
		Modality:        a.Modality,
		Source:          a.Source,
		StartDateLocal:  a.StartDateLocal.Format("2006-01-02T15:04:05"),
		MovingTime:      a.MovingTime,
		Duration:        formatDuration(a.MovingTime),
		Distance:        a.Distance,
		AvgHeartRate:    a.AverageHeartrate,
		TSS:             a.TSS,
		Tier:            a.TSSTier,
		IntensityFactor: a.IntensityFactor,
	}
}

func toAnalysisLoads(loads []store.ActivityLoad) []analysis.ActivityLoad {
	out := make([]analysis.ActivityLoad, 0, len(loads))
	for _, l := range loads {
		out = append(out, analysis.ActivityLoad{
			Date:   l.StartDateLocal,
			TSS:    l.TSS,
			Status: analysis.ActivityStatus(l.Status),
		})
	}
	return out
}

func toLoadPoints(points []TimelinePoint) []analysis.LoadPoint {
	out := make([]analysis.LoadPoint, 0, len(points))
	for _, p := range points {
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			continue
		}
		out = append(out, analysis.LoadPoint{Date: d, ATL: p.ATL, CTL: p.CTL, TSB: p.TSB})
	}
	return out
}
