package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default Strava limits: 100 requests per 15 minutes, 1000 per day
const (
	defaultShortLimit  = 100
	defaultDailyLimit  = 1000
	shortWindow        = 15 * time.Minute
	defaultMinInterval = 150 * time.Millisecond
)

// RateLimiter manages Strava API rate limits
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{
		now:         time.Now,
		shortLimit:  defaultShortLimit,
		dailyLimit:  defaultDailyLimit,
		minInterval: defaultMinInterval,
	}
	now := r.now()
	r.shortResetsAt = nextShortReset(now)
	r.dailyResetsAt = nextDailyReset(now)
	return r
}

// Strava's 15 minute windows start on the quarter hour, daily at midnight UTC
func nextShortReset(now time.Time) time.Time {
	return now.Truncate(shortWindow).Add(shortWindow)
}

func nextDailyReset(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserve()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// reserve takes a request slot and returns 0, or returns how long to wait
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !now.Before(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = nextShortReset(now)
	}
	if !now.Before(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = nextDailyReset(now)
	}

	if r.dailyUsage >= r.dailyLimit {
		return r.dailyResetsAt.Sub(now)
	}
	if r.shortUsage >= r.shortLimit {
		return r.shortResetsAt.Sub(now)
	}
	if elapsed := now.Sub(r.lastRequest); elapsed < r.minInterval {
		return r.minInterval - elapsed
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = now
	return 0
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}
