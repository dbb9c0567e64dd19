package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// expiryBuffer refreshes tokens this long before they actually expire
const expiryBuffer = 60 * time.Second

// TokenSource wraps oauth2.TokenSource with persistence
// It refreshes tokens near expiry and calls onRefresh with each new token
type TokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	now       func() time.Time
	mu        sync.Mutex
}

// NewTokenSource creates a new TokenSource that will refresh tokens as needed
// and call onRefresh to persist new tokens
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token) error) *TokenSource {
	return &TokenSource{
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
		now:       time.Now,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.expiringLocked() {
		return ts.token, nil
	}

	// Force a refresh even if oauth2 still considers the token valid
	stale := *ts.token
	stale.Expiry = ts.now().Add(-time.Second)

	newToken, err := ts.config.TokenSource(context.Background(), &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, fmt.Errorf("persisting refreshed token: %w", err)
		}
	}

	logrus.WithField("expires_at", newToken.Expiry.Format(time.RFC3339)).Debug("Refreshed Strava token")
	ts.token = newToken
	return newToken, nil
}

// IsExpired checks if the current token is expired or will expire within the buffer
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.expiringLocked()
}

func (ts *TokenSource) expiringLocked() bool {
	return ts.token.Expiry.Sub(ts.now()) <= expiryBuffer
}

// CurrentToken returns the current token without refreshing
func (ts *TokenSource) CurrentToken() *oauth2.Token {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.token
}
