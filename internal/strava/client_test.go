package strava

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClientWithHTTP(srv.Client(), srv.URL)
	c.rateLimiter.minInterval = 0
	return c
}

func TestGetActivities(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/athlete/activities", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "1704067200", r.URL.Query().Get("after"))

		w.Header().Set("X-RateLimit-Limit", "200,2000")
		w.Header().Set("X-RateLimit-Usage", "10,300")
		w.Write([]byte(`[{
			"id": 101,
			"athlete": {"id": 7},
			"name": "Lunch Ride",
			"type": "Ride",
			"sport_type": "GravelRide",
			"start_date": "2024-03-02T11:00:00Z",
			"start_date_local": "2024-03-02T12:00:00Z",
			"distance": 40123.5,
			"moving_time": 5400,
			"elapsed_time": 6000,
			"average_heartrate": 141.2,
			"average_watts": 187.4,
			"weighted_average_watts": 205,
			"device_watts": true,
			"has_heartrate": true
		}]`))
	})

	activities, err := c.GetActivities(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2, 100)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	a := activities[0]
	assert.Equal(t, int64(101), a.ID)
	assert.Equal(t, int64(7), a.Athlete.ID)
	assert.Equal(t, "GravelRide", a.EffectiveSportType())
	assert.Equal(t, 205.0, *a.WeightedAverageWatts)
	assert.True(t, a.DeviceWatts)
	assert.Nil(t, a.PerceivedExertion)
	assert.Nil(t, a.MaxHeartrate)

	short, daily := c.RateLimitStatus()
	assert.Equal(t, 190, short)
	assert.Equal(t, 1700, daily)
}

func TestGetActivityStreams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities/55/streams", r.URL.Path)
		assert.Equal(t, StreamKeys, r.URL.Query().Get("keys"))
		assert.Equal(t, "true", r.URL.Query().Get("key_by_type"))

		w.Write([]byte(`{
			"time": {"data": [0, 1, 2], "series_type": "time", "original_size": 3, "resolution": "high"},
			"heartrate": {"data": [120, 122, 125]},
			"watts": {"data": [200, null, 210]}
		}`))
	})

	streams, err := c.GetActivityStreams(context.Background(), 55)
	require.NoError(t, err)

	assert.Equal(t, 3, streams.Len())
	assert.True(t, streams.HasHeartrate())
	assert.True(t, streams.HasWatts())
	assert.Nil(t, streams.Watts.Data[1])
	assert.Equal(t, 210, *streams.Watts.Data[2])
	assert.Nil(t, streams.Distance)
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"nope"}`, tt.status)
		})

		_, err := c.GetActivityStreams(context.Background(), 1)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, tt.status, apiErr.StatusCode)
	}
}

func TestServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetActivities(context.Background(), time.Time{}, 1, 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "502")
}
