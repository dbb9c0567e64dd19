package service

import "time"

const (
	// HR validation thresholds
	MinValidHeartrate = 30
	MaxValidHeartrate = 240

	// Power validation threshold; spikes above this are sensor dropouts
	MaxValidWatts = 2500

	// Sync batch sizes
	ActivitiesPerPage = 100
	StreamsBatchSize  = 50

	// Pagination limits
	DefaultActivitiesLimit = 20
	MaxActivitiesLimit     = 200

	// Timeline window bounds (days)
	DefaultWindowDays = 90
	MinWindowDays     = 1
	MaxWindowDays     = 730

	// Timeline cache entries expire even without a history change so "today" rolls over
	TimelineCacheTTL = time.Hour

	// Seconds per minute for chart bucketing
	SecondsPerMinute = 60
)
