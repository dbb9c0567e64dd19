package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordActivityScored(t *testing.T) {
	before := testutil.ToFloat64(activitiesScored.WithLabelValues("power"))
	RecordActivityScored("power")
	RecordActivityScored("power")
	assert.Equal(t, before+2, testutil.ToFloat64(activitiesScored.WithLabelValues("power")))
}

func TestRecordSyncError(t *testing.T) {
	before := testutil.ToFloat64(syncErrors.WithLabelValues("streams"))
	RecordSyncError("streams")
	assert.Equal(t, before+1, testutil.ToFloat64(syncErrors.WithLabelValues("streams")))
}

func TestSetCurrentTSB(t *testing.T) {
	SetCurrentTSB(-12.5)
	assert.Equal(t, -12.5, testutil.ToFloat64(currentTSB))
}

func TestObserveLoadCompute(t *testing.T) {
	ObserveLoadCompute(3 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(loadComputeSeconds))
}
