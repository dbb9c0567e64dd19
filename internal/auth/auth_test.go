package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"trainload/internal/store"
)

func TestExtractAthleteID(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]interface{}{
		"athlete": map[string]interface{}{"id": float64(4242)},
	})
	assert.Equal(t, int64(4242), ExtractAthleteID(tok))

	assert.Zero(t, ExtractAthleteID(&oauth2.Token{AccessToken: "a"}))
}

func TestTokenFromStore_RoundTrip(t *testing.T) {
	expiry := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := TokenFromStore(&store.Auth{AthleteID: 9, AccessToken: "acc", RefreshToken: "ref", ExpiresAt: expiry})

	assert.Equal(t, "acc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)

	got := (&AuthResult{Token: tok, AthleteID: 9}).StoreAuth()
	assert.Equal(t, &store.Auth{AthleteID: 9, AccessToken: "acc", RefreshToken: "ref", ExpiresAt: expiry}, got)
}

type recordingStore struct {
	access, refresh string
	expires         time.Time
}

func (s *recordingStore) UpdateTokens(a, r string, e time.Time) error {
	s.access, s.refresh, s.expires = a, r, e
	return nil
}

func TestTokenSource_ValidTokenIsReused(t *testing.T) {
	tok := &oauth2.Token{AccessToken: "current", Expiry: time.Now().Add(time.Hour)}
	ts := NewTokenSource(&oauth2.Config{}, tok, func(*oauth2.Token) error {
		t.Fatal("refresh should not be called")
		return nil
	})

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "current", got.AccessToken)
	assert.False(t, ts.IsExpired())
}

func TestTokenSource_RefreshesAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","refresh_token":"new-refresh","token_type":"Bearer","expires_in":21600}`))
	}))
	defer srv.Close()

	cfg := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}

	// inside the buffer, so still "valid" to oauth2 but due for refresh here
	old := &oauth2.Token{AccessToken: "stale", RefreshToken: "old-refresh", Expiry: time.Now().Add(30 * time.Second)}
	rec := &recordingStore{}
	ts := NewTokenSource(cfg, old, PersistTo(rec))
	assert.True(t, ts.IsExpired())

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
	assert.Equal(t, "fresh", rec.access)
	assert.Equal(t, "new-refresh", rec.refresh)
	assert.Equal(t, got, ts.CurrentToken())
	assert.False(t, ts.IsExpired())
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  error
		status   int
	}{
		{name: "success", query: "?state=s1&code=abc", wantCode: "abc", status: http.StatusOK},
		{name: "state mismatch", query: "?state=evil&code=abc", wantErr: ErrStateMismatch, status: http.StatusBadRequest},
		{name: "missing code", query: "?state=s1", wantErr: ErrNoCode, status: http.StatusBadRequest},
		{name: "denied", query: "?state=s1&error=access_denied", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeChan := make(chan string, 1)
			errChan := make(chan error, 1)
			h := callbackHandler("s1", codeChan, errChan)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, <-codeChan)
				return
			}
			err := <-errChan
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
