package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"trainload/internal/analysis"
	"trainload/internal/config"
	"trainload/internal/fitfile"
	"trainload/internal/observability"
	"trainload/internal/store"
	"trainload/internal/strava"
)

// Sync phases reported on the progress channel
const (
	PhaseActivities = "activities"
	PhaseStreams    = "streams"
	PhaseScoring    = "scoring"
	PhaseSnapshots  = "snapshots"
)

var (
	// ErrNoProvider is returned by SyncAll when no activity provider is configured
	ErrNoProvider = errors.New("no activity provider configured")
	// ErrInvalidRecoveryScore is returned for recovery scores outside 0-100
	ErrInvalidRecoveryScore = errors.New("recovery score must be between 0 and 100")
)

// ActivityProvider is a source of activity history
type ActivityProvider interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivityStreams(ctx context.Context, activityID int64) (*strava.Streams, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// SyncService ingests activities, scores them once and keeps the stored load
// history current
type SyncService struct {
	client     ActivityProvider
	store      *store.DB
	scorer     *analysis.Scorer
	thresholds analysis.AthleteThresholds
	scoreKey   string
	now        func() time.Time
	log        *logrus.Entry
}

// NewSyncService creates a sync service. client may be nil for offline use
// (FIT import, rescoring).
func NewSyncService(client ActivityProvider, db *store.DB, athlete config.AthleteConfig, rates map[string]float64) *SyncService {
	thresholds := athlete.Thresholds()
	durationRates := analysis.DurationRates(rates)
	return &SyncService{
		client:     client,
		store:      db,
		scorer:     analysis.NewScorer(durationRates),
		thresholds: thresholds,
		scoreKey:   ScoreFingerprint(thresholds, durationRates),
		now:        time.Now,
		log:        logrus.WithField("component", "sync"),
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string
	Total           int
	Completed       int
	CurrentActivity string
	Error           error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesStored  int
	StreamsFetched    int
	ActivitiesScored  int
	SnapshotDays      int
	Errors            []error
}

// ScoreFingerprint identifies the thresholds and duration table activities were
// scored with. Activities stored under a different fingerprint are rescored.
func ScoreFingerprint(th analysis.AthleteThresholds, rates analysis.DurationRates) string {
	if len(rates) == 0 {
		rates = analysis.DefaultDurationRates()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "max=%s;lthr=%s;ftp=%s;pace=%s",
		fmtOptional(th.MaxHR), fmtOptional(th.LTHR), fmtOptional(th.FTP), fmtOptional(th.ThresholdPaceMinPerKm))

	keys := make([]string, 0, len(rates))
	for k := range rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ";%s=%g", k, rates[k])
	}

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

func fmtOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

// ScoreKey returns the fingerprint of the current scoring configuration
func (s *SyncService) ScoreKey() string {
	return s.scoreKey
}

// SyncAll performs a full sync: activities -> streams -> scoring -> snapshots
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}
	if s.client == nil {
		return &SyncResult{}, ErrNoProvider
	}

	result := &SyncResult{}

	if err := s.syncActivities(ctx, progress, result); err != nil {
		observability.RecordSyncError(PhaseActivities)
		return result, fmt.Errorf("syncing activities: %w", err)
	}

	if err := s.syncStreams(ctx, progress, result); err != nil {
		observability.RecordSyncError(PhaseStreams)
		return result, fmt.Errorf("syncing streams: %w", err)
	}

	if err := s.finish(ctx, progress, result); err != nil {
		return result, err
	}

	s.log.WithFields(logrus.Fields{
		"fetched": result.ActivitiesFetched,
		"stored":  result.ActivitiesStored,
		"streams": result.StreamsFetched,
		"scored":  result.ActivitiesScored,
		"errors":  len(result.Errors),
	}).Info("Sync complete")

	return result, nil
}

// Rescore scores every activity that is unscored or was scored with different
// thresholds, then refreshes the load history. It needs no provider.
func (s *SyncService) Rescore(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}
	return result, s.finish(ctx, nil, result)
}

func (s *SyncService) finish(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	if err := s.scorePending(ctx, progress, result); err != nil {
		observability.RecordSyncError(PhaseScoring)
		return fmt.Errorf("scoring activities: %w", err)
	}

	s.report(ctx, progress, SyncProgress{Phase: PhaseSnapshots})
	days, err := s.RefreshSnapshots()
	if err != nil {
		observability.RecordSyncError(PhaseSnapshots)
		return fmt.Errorf("refreshing load snapshots: %w", err)
	}
	result.SnapshotDays = days
	return nil
}

// syncActivities fetches new activities from the provider and stores them
func (s *SyncService) syncActivities(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	lastSyncStr, err := s.store.GetSyncState(store.KeyLastActivitySync)
	if err != nil {
		return fmt.Errorf("reading last sync time: %w", err)
	}
	var after time.Time
	if lastSyncStr != "" {
		after, _ = time.Parse(time.RFC3339, lastSyncStr)
	}
	syncStarted := s.now()

	s.report(ctx, progress, SyncProgress{Phase: PhaseActivities})

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		activities, err := s.client.GetActivities(ctx, after, page, ActivitiesPerPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}

		result.ActivitiesFetched += len(activities)

		for _, a := range activities {
			if err := s.store.UpsertActivity(convertActivity(a)); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				continue
			}
			result.ActivitiesStored++
		}

		s.report(ctx, progress, SyncProgress{
			Phase:     PhaseActivities,
			Total:     result.ActivitiesFetched,
			Completed: result.ActivitiesStored,
		})

		if len(activities) < ActivitiesPerPage {
			break
		}
	}

	return s.store.SetSyncState(store.KeyLastActivitySync, syncStarted.UTC().Format(time.RFC3339))
}

// syncStreams fetches HR and power streams for a batch of activities
func (s *SyncService) syncStreams(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	activities, err := s.store.GetActivitiesNeedingStreams(StreamsBatchSize)
	if err != nil {
		return fmt.Errorf("getting activities needing streams: %w", err)
	}
	if len(activities) == 0 {
		return nil
	}

	for i, activity := range activities {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.report(ctx, progress, SyncProgress{
			Phase:           PhaseStreams,
			Total:           len(activities),
			Completed:       i,
			CurrentActivity: activity.Name,
		})

		streams, err := s.client.GetActivityStreams(ctx, activity.ID)
		switch {
		case errors.Is(err, strava.ErrUnauthorized):
			return err
		case errors.Is(err, strava.ErrRateLimited):
			// Remaining streams are picked up by the next sync
			s.log.WithField("pending", len(activities)-i).Warn("Rate limited, deferring stream sync")
			result.Errors = append(result.Errors, err)
			return nil
		case errors.Is(err, strava.ErrNotFound):
			// Manual activities have no streams; score from the summary
		case err != nil:
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): %w", activity.ID, activity.Name, err))
			continue
		}

		if points := convertStreams(activity.ID, streams); len(points) > 0 {
			if err := s.store.SaveStreams(activity.ID, points); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("saving streams for %d: %w", activity.ID, err))
				continue
			}
			result.StreamsFetched++
		}

		if err := s.store.MarkStreamsSynced(activity.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("marking synced for %d: %w", activity.ID, err))
		}
	}

	s.report(ctx, progress, SyncProgress{
		Phase:     PhaseStreams,
		Total:     len(activities),
		Completed: len(activities),
	})

	return nil
}

// scorePending scores unscored activities and those scored under other thresholds
func (s *SyncService) scorePending(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	activities, err := s.store.GetActivitiesNeedingScore(s.scoreKey)
	if err != nil {
		return fmt.Errorf("getting activities needing scores: %w", err)
	}

	for i := range activities {
		if err := ctx.Err(); err != nil {
			return err
		}
		activity := &activities[i]

		s.report(ctx, progress, SyncProgress{
			Phase:           PhaseScoring,
			Total:           len(activities),
			Completed:       i,
			CurrentActivity: activity.Name,
		})

		if _, err := s.scoreActivity(activity); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.ActivitiesScored++
	}

	if len(activities) > 0 {
		s.log.WithFields(logrus.Fields{
			"scored":    result.ActivitiesScored,
			"score_key": s.scoreKey,
		}).Info("Scored activities")
	}

	return s.store.SetSyncState(store.KeyScoreFingerprint, s.scoreKey)
}

// scoreActivity computes and stores the TSS of one activity
func (s *SyncService) scoreActivity(a *store.Activity) (analysis.Score, error) {
	var streams analysis.ActivityStreams
	if a.StreamsSynced {
		points, err := s.store.GetStreams(a.ID)
		if err != nil {
			return analysis.Score{}, fmt.Errorf("getting streams for %d: %w", a.ID, err)
		}
		streams = sensorStreams(points)
	}

	score := s.scorer.Score(activityRecord(a), s.thresholds, streams)

	err := s.store.UpdateActivityScore(store.ActivityScore{
		ActivityID:      a.ID,
		TSS:             score.TSS,
		Tier:            string(score.Tier),
		IntensityFactor: score.IntensityFactor,
		NormalizedHR:    optional(score.NormalizedHR),
		NormalizedPower: optional(score.NormalizedPower),
		ScoreKey:        s.scoreKey,
	})
	if err != nil {
		return score, fmt.Errorf("saving score for %d: %w", a.ID, err)
	}

	observability.RecordActivityScored(string(score.Tier))
	s.log.WithFields(logrus.Fields{
		"activity_id": a.ID,
		"tss":         score.TSS,
		"tier":        score.Tier,
	}).Debug("Scored activity")

	return score, nil
}

// RefreshSnapshots recomputes the stored daily load from the first activity
// through today and bumps the history version. It returns the number of days stored.
func (s *SyncService) RefreshSnapshots() (int, error) {
	started := time.Now()

	loads, err := s.store.ListActivityLoads()
	if err != nil {
		return 0, fmt.Errorf("listing activity loads: %w", err)
	}

	history := analysis.DailyTotals(toAnalysisLoads(loads))

	var snaps []store.LoadSnapshot
	if len(history) > 0 {
		end := analysis.Day(s.now())
		if last := history[len(history)-1].Date; last.After(end) {
			end = last
		}

		daily := make(map[time.Time]float64, len(history))
		for _, d := range history {
			daily[d.Date] = d.TSS
		}

		for _, p := range analysis.LoadTimeline(history, history[0].Date, end) {
			snaps = append(snaps, store.LoadSnapshot{
				Date:     p.Date.Format(dateLayout),
				DailyTSS: daily[p.Date],
				ATL:      p.ATL,
				CTL:      p.CTL,
				TSB:      p.TSB,
			})
		}
	}
	observability.ObserveLoadCompute(time.Since(started))

	if err := s.store.ReplaceLoadSnapshots(snaps); err != nil {
		return 0, err
	}
	if _, err := s.store.BumpHistoryVersion(); err != nil {
		return 0, fmt.Errorf("bumping history version: %w", err)
	}

	return len(snaps), nil
}

// ImportResult describes an imported FIT activity
type ImportResult struct {
	ActivityID int64
	Name       string
	SportType  string
	TSS        float64
	Tier       analysis.Tier
}

// ImportFIT stores, scores and folds a FIT activity into the load history
func (s *SyncService) ImportFIT(ctx context.Context, r io.Reader) (*ImportResult, error) {
	imp, err := fitfile.Decode(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var athleteID int64
	if a, err := s.store.GetAuth(); err == nil {
		athleteID = a.AthleteID
	} else if !errors.Is(err, store.ErrNoAuth) {
		return nil, fmt.Errorf("reading athlete: %w", err)
	}

	activity := imp.Activity(athleteID)
	activity.Modality = string(analysis.ModalityFromSportType(activity.SportType))

	if err := s.store.UpsertActivity(activity); err != nil {
		return nil, fmt.Errorf("storing activity: %w", err)
	}
	if err := s.store.SaveStreams(activity.ID, imp.Points); err != nil {
		return nil, fmt.Errorf("saving streams: %w", err)
	}

	score, err := s.scoreActivity(activity)
	if err != nil {
		return nil, err
	}
	if _, err := s.RefreshSnapshots(); err != nil {
		return nil, fmt.Errorf("refreshing load snapshots: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"activity_id": activity.ID,
		"sport_type":  activity.SportType,
		"points":      len(imp.Points),
		"tss":         score.TSS,
	}).Info("Imported FIT activity")

	return &ImportResult{
		ActivityID: activity.ID,
		Name:       activity.Name,
		SportType:  activity.SportType,
		TSS:        score.TSS,
		Tier:       score.Tier,
	}, nil
}

// RecordRecovery stores the wearable recovery score for the day containing date
func (s *SyncService) RecordRecovery(date time.Time, score float64, source string) error {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return fmt.Errorf("%w, got %v", ErrInvalidRecoveryScore, score)
	}
	if source == "" {
		source = "manual"
	}
	return s.store.SaveRecoveryScore(store.RecoveryScore{
		Date:   analysis.Day(date).Format(dateLayout),
		Score:  score,
		Source: source,
	})
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	if s.client == nil {
		return 0, 0
	}
	return s.client.RateLimitStatus()
}

// report sends progress unless nobody is listening anymore
func (s *SyncService) report(ctx context.Context, progress chan<- SyncProgress, p SyncProgress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}

// activityRecord maps a stored activity onto the scorer's input
func activityRecord(a *store.Activity) analysis.ActivityRecord {
	duration := a.MovingTime
	if duration <= 0 {
		duration = a.ElapsedTime
	}

	modality := analysis.Modality(a.Modality)
	if modality == "" {
		modality = analysis.ModalityFromSportType(a.SportType)
	}

	return analysis.ActivityRecord{
		DurationSeconds:      float64(duration),
		Modality:             modality,
		SportType:            a.SportType,
		DistanceMeters:       optional(a.Distance),
		AverageHeartRate:     a.AverageHeartrate,
		AveragePower:         a.AverageWatts,
		WeightedAveragePower: a.WeightedAverageWatts,
		PerceivedEffort:      a.PerceivedExertion,
	}
}

// convertActivity converts a Strava API activity to a store activity
func convertActivity(a strava.Activity) *store.Activity {
	sportType := a.EffectiveSportType()
	activity := &store.Activity{
		ID:                   a.ID,
		AthleteID:            a.Athlete.ID,
		Name:                 a.Name,
		SportType:            sportType,
		Modality:             string(analysis.ModalityFromSportType(sportType)),
		Status:               string(analysis.StatusCompleted),
		Source:               store.SourceStrava,
		StartDate:            a.StartDate,
		StartDateLocal:       a.StartDateLocal,
		Timezone:             a.Timezone,
		Distance:             a.Distance,
		MovingTime:           a.MovingTime,
		ElapsedTime:          a.ElapsedTime,
		AverageHeartrate:     positivePtr(a.AverageHeartrate),
		MaxHeartrate:         positivePtr(a.MaxHeartrate),
		AverageWatts:         positivePtr(a.AverageWatts),
		WeightedAverageWatts: positivePtr(a.WeightedAverageWatts),
		HasHeartrate:         a.HasHeartrate,
		DeviceWatts:          a.DeviceWatts,
	}

	if a.PerceivedExertion != nil {
		if rpe := int(math.Round(*a.PerceivedExertion)); rpe >= 1 && rpe <= 10 {
			activity.PerceivedExertion = &rpe
		}
	}

	return activity
}

func optional(v float64) *float64 {
	if v <= 0 || math.IsNaN(v) {
		return nil
	}
	return &v
}

func positivePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return optional(*v)
}
