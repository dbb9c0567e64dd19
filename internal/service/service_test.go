package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainload/internal/analysis"
	"trainload/internal/config"
	"trainload/internal/store"
	"trainload/internal/strava"
)

var testNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

// openTestDB creates an in-memory SQLite database with migrations applied
func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeProvider struct {
	pages     [][]strava.Activity
	streams   map[int64]*strava.Streams
	streamErr map[int64]error
	afters    []time.Time
}

func (f *fakeProvider) GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error) {
	f.afters = append(f.afters, after)
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func (f *fakeProvider) GetActivityStreams(ctx context.Context, id int64) (*strava.Streams, error) {
	if err, ok := f.streamErr[id]; ok {
		return nil, err
	}
	return f.streams[id], nil
}

func (f *fakeProvider) RateLimitStatus() (int, int) { return 90, 900 }

func floatPtr(v float64) *float64 { return &v }

func constantHRStreams(bpm, seconds int) *strava.Streams {
	s := &strava.Streams{
		Time:      &strava.StreamData[int]{},
		Heartrate: &strava.StreamData[int]{},
	}
	for i := 0; i < seconds; i++ {
		s.Time.Data = append(s.Time.Data, i)
		s.Heartrate.Data = append(s.Heartrate.Data, bpm)
	}
	return s
}

// newFixture returns a provider with a run (HR streams) and a ride (power summary, no streams)
func newFixture() *fakeProvider {
	run := strava.Activity{
		ID:               1,
		Athlete:          strava.Athlete{ID: 7},
		Name:             "Tempo Run",
		SportType:        "Run",
		StartDate:        time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
		StartDateLocal:   time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC),
		Distance:         12000,
		MovingTime:       3600,
		ElapsedTime:      3700,
		AverageHeartrate: floatPtr(150),
		HasHeartrate:     true,
	}
	ride := strava.Activity{
		ID:                   2,
		Athlete:              strava.Athlete{ID: 7},
		Name:                 "Trainer Ride",
		Type:                 "Ride",
		StartDate:            time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
		StartDateLocal:       time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
		MovingTime:           5400,
		ElapsedTime:          5400,
		WeightedAverageWatts: floatPtr(200),
		DeviceWatts:          true,
	}

	return &fakeProvider{
		pages:     [][]strava.Activity{{run, ride}},
		streams:   map[int64]*strava.Streams{1: constantHRStreams(150, 3600)},
		streamErr: map[int64]error{2: fmt.Errorf("fetching streams: %w", &strava.APIError{StatusCode: 404})},
	}
}

func newSyncService(client ActivityProvider, db *store.DB, lthr float64) *SyncService {
	s := NewSyncService(client, db, config.AthleteConfig{MaxHR: 185, ThresholdHR: lthr, FTP: 250}, nil)
	s.now = func() time.Time { return testNow }
	return s
}

func newLoadService(db *store.DB) *LoadService {
	l := NewLoadService(db, 1, 30)
	l.now = func() time.Time { return testNow }
	return l
}

func TestSyncAll_ScoresAndRefreshesHistory(t *testing.T) {
	db := openTestDB(t)
	s := newSyncService(newFixture(), db, 160)

	progress := make(chan SyncProgress, 1000)
	result, err := s.SyncAll(context.Background(), progress)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ActivitiesFetched)
	assert.Equal(t, 2, result.ActivitiesStored)
	assert.Equal(t, 1, result.StreamsFetched)
	assert.Equal(t, 2, result.ActivitiesScored)
	assert.Equal(t, 5, result.SnapshotDays) // Mar 1 - Mar 5
	assert.Empty(t, result.Errors)

	var phases []string
	for p := range progress {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
	}
	assert.Equal(t, []string{PhaseActivities, PhaseStreams, PhaseScoring, PhaseSnapshots}, phases)

	run, err := db.GetActivity(1)
	require.NoError(t, err)
	require.NotNil(t, run.TSS)
	assert.Equal(t, 88.0, *run.TSS) // IF 150/160, one hour
	assert.Equal(t, string(analysis.TierRunHR), *run.TSSTier)
	require.NotNil(t, run.NormalizedHR)
	assert.Equal(t, 150.0, *run.NormalizedHR)
	assert.Equal(t, s.ScoreKey(), *run.ScoreKey)

	ride, err := db.GetActivity(2)
	require.NoError(t, err)
	assert.Equal(t, "Ride", ride.SportType)
	assert.Equal(t, "bike", ride.Modality)
	assert.True(t, ride.StreamsSynced)
	assert.Equal(t, 96.0, *ride.TSS) // IF 200/250, 1.5 hours
	assert.Equal(t, string(analysis.TierPower), *ride.TSSTier)
	assert.Nil(t, ride.NormalizedPower)

	version, err := db.HistoryVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	fp, err := db.GetSyncState(store.KeyScoreFingerprint)
	require.NoError(t, err)
	assert.Equal(t, s.ScoreKey(), fp)

	snaps, err := db.GetLoadSnapshots("2024-03-01", "2024-03-05")
	require.NoError(t, err)
	require.Len(t, snaps, 5)
	assert.Equal(t, 88.0, snaps[0].DailyTSS)
	assert.Equal(t, 96.0, snaps[1].DailyTSS)
	assert.Equal(t, 0.0, snaps[4].DailyTSS)
}

func TestSyncAll_IncrementalUsesLastSyncTime(t *testing.T) {
	db := openTestDB(t)
	provider := newFixture()
	s := newSyncService(provider, db, 160)

	_, err := s.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	_, err = s.SyncAll(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, provider.afters, 2)
	assert.True(t, provider.afters[0].IsZero())
	assert.True(t, provider.afters[1].Equal(testNow))
}

func TestSyncAll_NoProvider(t *testing.T) {
	s := newSyncService(nil, openTestDB(t), 160)
	_, err := s.SyncAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoProvider)

	short, daily := s.RateLimitStatus()
	assert.Zero(t, short)
	assert.Zero(t, daily)
}

func TestSyncAll_UnauthorizedStreamsAbort(t *testing.T) {
	provider := newFixture()
	provider.streamErr[1] = &strava.APIError{StatusCode: 401}
	s := newSyncService(provider, openTestDB(t), 160)

	_, err := s.SyncAll(context.Background(), nil)
	assert.ErrorIs(t, err, strava.ErrUnauthorized)
}

func TestSyncAll_DeferredStreamsRescoreWhenFetched(t *testing.T) {
	db := openTestDB(t)
	provider := newFixture()
	provider.streams[1] = constantHRStreams(170, 3600)
	provider.streamErr[1] = fmt.Errorf("fetching streams: %w", &strava.APIError{StatusCode: 429})
	s := newSyncService(provider, db, 160)

	result, err := s.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, result.Errors, 1)

	// Scored from the summary average while streams are pending
	run, err := db.GetActivity(1)
	require.NoError(t, err)
	assert.False(t, run.StreamsSynced)
	assert.Equal(t, 88.0, *run.TSS)
	assert.Nil(t, run.NormalizedHR)

	delete(provider.streamErr, 1)
	_, err = s.SyncAll(context.Background(), nil)
	require.NoError(t, err)

	run, err = db.GetActivity(1)
	require.NoError(t, err)
	assert.True(t, run.StreamsSynced)
	require.NotNil(t, run.NormalizedHR)
	assert.Equal(t, 170.0, *run.NormalizedHR)
	assert.Equal(t, 113.0, *run.TSS) // IF 170/160, one hour
	assert.Equal(t, s.ScoreKey(), *run.ScoreKey)
}

func TestRescore_WhenThresholdsChange(t *testing.T) {
	db := openTestDB(t)
	_, err := newSyncService(newFixture(), db, 160).SyncAll(context.Background(), nil)
	require.NoError(t, err)

	// Same thresholds: nothing to do
	result, err := newSyncService(nil, db, 160).Rescore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.ActivitiesScored)

	// New LTHR rescored everything
	changed := newSyncService(nil, db, 150)
	result, err = changed.Rescore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.ActivitiesScored)

	run, err := db.GetActivity(1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *run.TSS)
	assert.Equal(t, changed.ScoreKey(), *run.ScoreKey)
}

func TestScoreFingerprint(t *testing.T) {
	base := config.AthleteConfig{MaxHR: 185, FTP: 250}.Thresholds()

	assert.Equal(t,
		ScoreFingerprint(base, nil),
		ScoreFingerprint(base, analysis.DefaultDurationRates()))

	otherFTP := config.AthleteConfig{MaxHR: 185, FTP: 260}.Thresholds()
	assert.NotEqual(t, ScoreFingerprint(base, nil), ScoreFingerprint(otherFTP, nil))

	rates := analysis.DefaultDurationRates()
	rates["run"] = 80
	assert.NotEqual(t, ScoreFingerprint(base, nil), ScoreFingerprint(base, rates))

	// resting HR does not feed the scorer
	withResting := config.AthleteConfig{MaxHR: 185, FTP: 250, RestingHR: 48}.Thresholds()
	assert.Equal(t, ScoreFingerprint(base, nil), ScoreFingerprint(withResting, nil))
}

func TestImportFIT_RejectsGarbage(t *testing.T) {
	s := newSyncService(nil, openTestDB(t), 160)
	_, err := s.ImportFIT(context.Background(), bytes.NewReader([]byte("nope")))
	require.Error(t, err)
}

func TestRecordRecovery(t *testing.T) {
	db := openTestDB(t)
	s := newSyncService(nil, db, 160)

	assert.ErrorIs(t, s.RecordRecovery(testNow, 120, ""), ErrInvalidRecoveryScore)
	assert.ErrorIs(t, s.RecordRecovery(testNow, -1, ""), ErrInvalidRecoveryScore)

	require.NoError(t, s.RecordRecovery(testNow, 72, ""))
	r, err := db.LatestRecoveryScore("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 72.0, r.Score)
	assert.Equal(t, "manual", r.Source)
}

func TestConvertActivity(t *testing.T) {
	a := convertActivity(strava.Activity{
		ID:                9,
		Type:              "TrailRun",
		AverageHeartrate:  floatPtr(0),
		PerceivedExertion: floatPtr(6.6),
	})

	assert.Equal(t, "TrailRun", a.SportType)
	assert.Equal(t, "run", a.Modality)
	assert.Equal(t, "completed", a.Status)
	assert.Equal(t, store.SourceStrava, a.Source)
	assert.Nil(t, a.AverageHeartrate)
	require.NotNil(t, a.PerceivedExertion)
	assert.Equal(t, 7, *a.PerceivedExertion)

	out := convertActivity(strava.Activity{PerceivedExertion: floatPtr(0)})
	assert.Nil(t, out.PerceivedExertion)
}

func TestSensorStreams_DropsImplausibleReadings(t *testing.T) {
	hr := func(v int) *int { return &v }
	points := []store.StreamPoint{
		{TimeOffset: 0, Heartrate: hr(140), Watts: hr(0)},
		{TimeOffset: 1, Heartrate: hr(0), Watts: hr(3000)},
		{TimeOffset: 2, Heartrate: hr(255)},
		{TimeOffset: 3, Heartrate: hr(145), Watts: hr(210)},
	}

	s := sensorStreams(points)
	assert.Equal(t, []float64{140, 145}, s.HeartRate.Samples)
	assert.Equal(t, []int{0, 3}, s.HeartRate.Offsets)
	assert.Equal(t, []float64{0, 210}, s.Power.Samples)
	assert.Equal(t, []int{0, 3}, s.Power.Offsets)
}

func TestConvertStreams_NullWatts(t *testing.T) {
	w := 180
	points := convertStreams(5, &strava.Streams{
		Time:  &strava.StreamData[int]{Data: []int{0, 1}},
		Watts: &strava.StreamData[*int]{Data: []*int{&w, nil}},
	})

	require.Len(t, points, 2)
	assert.Equal(t, 180, *points[0].Watts)
	assert.Nil(t, points[1].Watts)
	assert.Nil(t, points[0].Heartrate)
	assert.Nil(t, convertStreams(5, &strava.Streams{}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1:00:00", formatDuration(3600))
	assert.Equal(t, "5:07", formatDuration(307))
}
