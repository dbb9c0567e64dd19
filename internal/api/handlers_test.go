package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainload/internal/analysis"
	"trainload/internal/service"
	"trainload/internal/store"
)

type fakeLoads struct {
	empty   bool
	windows []int
	limit   int
	offset  int
	err     error
}

func (f *fakeLoads) Timeline(days int) ([]service.TimelinePoint, error) {
	f.windows = append(f.windows, days)
	if days > service.MaxWindowDays {
		return nil, service.ErrInvalidWindow
	}
	if f.empty {
		return nil, nil
	}
	return []service.TimelinePoint{{Date: "2024-03-05", TSS: 80, ATL: 40.2, CTL: 35.1, TSB: -4.9}}, f.err
}

func (f *fakeLoads) History(from, to time.Time) ([]service.TimelinePoint, error) {
	if f.empty {
		return nil, nil
	}
	return []service.TimelinePoint{{Date: from.Format("2006-01-02")}, {Date: to.Format("2006-01-02")}}, nil
}

func (f *fakeLoads) Current() (*service.CurrentState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.CurrentState{
		Date:   "2024-03-05",
		TSB:    -12,
		Form:   analysis.FormStatus(-12),
		Alerts: []analysis.Alert{},
		Recovery: &service.RecoveryReading{
			Date: "2024-03-05", Score: 80, Recovery: analysis.RecoveryStatus(80),
		},
	}, nil
}

func (f *fakeLoads) Activities(limit, offset int) (*service.ActivityPage, error) {
	f.limit, f.offset = limit, offset
	return &service.ActivityPage{Total: 1, Limit: limit, Offset: offset, Activities: []service.ActivitySummary{{ID: 1, Name: "Run"}}}, nil
}

func (f *fakeLoads) ActivityDetail(id int64) (*service.ActivityDetail, error) {
	if id != 1 {
		return nil, store.ErrActivityNotFound
	}
	return &service.ActivityDetail{ActivitySummary: service.ActivitySummary{ID: 1, Name: "Run"}}, nil
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestLoad(t *testing.T) {
	loads := &fakeLoads{}
	h := NewHandler(loads, 42).Routes()

	rec := do(t, h, "/v1/load")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body loadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 42, body.Days)
	require.Len(t, body.Points, 1)
	assert.Equal(t, -4.9, body.Points[0].TSB)

	rec = do(t, h, "/v1/load?days=14")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{42, 14}, loads.windows)
}

func TestLoad_BadRequests(t *testing.T) {
	h := NewHandler(&fakeLoads{}, 90).Routes()

	for _, target := range []string{"/v1/load?days=abc", "/v1/load?days=5000"} {
		rec := do(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "invalid_request", decodeError(t, rec).Code, target)
	}
}

func TestHistory(t *testing.T) {
	h := NewHandler(&fakeLoads{}, 90).Routes()

	rec := do(t, h, "/v1/load/history?from=2024-03-01&to=2024-03-05")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"2024-03-01"`)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "/v1/load/history?from=2024-03-01").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "/v1/load/history?from=03/01/2024&to=2024-03-05").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "/v1/load/history?from=2024-03-05&to=2024-03-01").Code)
}

func TestLoad_EmptyHistory(t *testing.T) {
	h := NewHandler(&fakeLoads{empty: true}, 42).Routes()

	for _, target := range []string{"/v1/load", "/v1/load/history?from=2024-03-01&to=2024-03-05"} {
		rec := do(t, h, target)
		require.Equal(t, http.StatusOK, rec.Code, target)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []any{}, body["points"], target)
	}
}

func TestReadiness(t *testing.T) {
	h := NewHandler(&fakeLoads{}, 90).Routes()

	rec := do(t, h, "/v1/readiness")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	form := body["form"].(map[string]any)
	assert.Equal(t, "tired", form["level"])

	recovery := body["recovery"].(map[string]any)
	assert.Equal(t, "green", recovery["zone"])
	assert.Equal(t, true, recovery["cleared"])
	assert.Equal(t, []any{}, body["alerts"])
}

func TestReadiness_ServerError(t *testing.T) {
	h := NewHandler(&fakeLoads{err: errors.New("disk on fire")}, 90).Routes()

	rec := do(t, h, "/v1/readiness")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "server_error", detail.Code)
	assert.NotContains(t, detail.Message, "disk")
}

func TestActivities(t *testing.T) {
	loads := &fakeLoads{}
	h := NewHandler(loads, 90).Routes()

	rec := do(t, h, "/v1/activities?limit=5&offset=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, loads.limit)
	assert.Equal(t, 10, loads.offset)

	rec = do(t, h, "/v1/activities")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.DefaultActivitiesLimit, loads.limit)

	for _, target := range []string{"/v1/activities?limit=x", "/v1/activities?limit=0", "/v1/activities?offset=-1"} {
		assert.Equal(t, http.StatusBadRequest, do(t, h, target).Code, target)
	}
}

func TestActivityDetail(t *testing.T) {
	h := NewHandler(&fakeLoads{}, 90).Routes()

	rec := do(t, h, "/v1/activities/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Run"`)

	rec = do(t, h, "/v1/activities/2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "/v1/activities/abc").Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := NewHandler(&fakeLoads{}, 90).Routes()

	rec := do(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler(&fakeLoads{}, 90).Routes())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
