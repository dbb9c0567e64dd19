package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatPoints(n int, ctl, tsb float64) []LoadPoint {
	points := make([]LoadPoint, n)
	for i := range points {
		points[i] = LoadPoint{Date: date(2024, 1, 1).AddDate(0, 0, i), CTL: ctl, TSB: tsb}
	}
	return points
}

func TestLoadAlerts(t *testing.T) {
	tests := []struct {
		name   string
		points []LoadPoint
		kinds  []string
	}{
		{
			name:   "no history",
			points: nil,
			kinds:  nil,
		},
		{
			name:   "balanced",
			points: flatPoints(14, 50, -5),
			kinds:  nil,
		},
		{
			name:   "overreaching",
			points: flatPoints(14, 50, -26),
			kinds:  []string{"overreaching"},
		},
		{
			name:   "boundary is not overreaching",
			points: flatPoints(14, 50, -25),
			kinds:  nil,
		},
		{
			name:   "detraining",
			points: flatPoints(14, 30, 26),
			kinds:  []string{"detraining"},
		},
		{
			name: "ramp rate",
			points: func() []LoadPoint {
				p := flatPoints(14, 40, -20)
				p[len(p)-1].CTL = 48.5
				return p
			}(),
			kinds: []string{"ramp_rate"},
		},
		{
			name: "ramp and overreaching",
			points: func() []LoadPoint {
				p := flatPoints(8, 40, -28)
				p[len(p)-1].CTL = 50
				return p
			}(),
			kinds: []string{"overreaching", "ramp_rate"},
		},
		{
			name: "ramp needs a full week",
			points: func() []LoadPoint {
				p := flatPoints(7, 40, 0)
				p[len(p)-1].CTL = 60
				return p
			}(),
			kinds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := LoadAlerts(tt.points)
			var kinds []string
			for _, a := range alerts {
				kinds = append(kinds, a.Kind)
				assert.NotEmpty(t, a.Message)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestLoadAlerts_Severity(t *testing.T) {
	alerts := LoadAlerts(flatPoints(3, 50, -40))
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)

	alerts = LoadAlerts(flatPoints(3, 10, 30))
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityInfo, alerts[0].Severity)
}
