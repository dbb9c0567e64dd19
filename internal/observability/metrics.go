package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesScored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainload",
		Subsystem: "scoring",
		Name:      "activities_scored_total",
		Help:      "Activities scored, by the tier that produced the TSS.",
	}, []string{"tier"})
	syncErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainload",
		Subsystem: "sync",
		Name:      "errors_total",
		Help:      "Per-activity errors collected during sync, by phase.",
	}, []string{"phase"})
	loadComputeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trainload",
		Subsystem: "load",
		Name:      "compute_duration_seconds",
		Help:      "Time to rebuild a load timeline from the activity history.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	currentTSB = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainload",
		Subsystem: "load",
		Name:      "current_tsb",
		Help:      "Training stress balance for today.",
	})
)

func init() {
	prometheus.MustRegister(activitiesScored, syncErrors, loadComputeSeconds, currentTSB)
}

// RecordActivityScored counts one scored activity
func RecordActivityScored(tier string) {
	activitiesScored.WithLabelValues(tier).Inc()
}

// RecordSyncError counts one collected sync error
func RecordSyncError(phase string) {
	syncErrors.WithLabelValues(phase).Inc()
}

// ObserveLoadCompute records how long a timeline computation took
func ObserveLoadCompute(d time.Duration) {
	loadComputeSeconds.Observe(d.Seconds())
}

// SetCurrentTSB updates today's form gauge
func SetCurrentTSB(tsb float64) {
	currentTSB.Set(tsb)
}
