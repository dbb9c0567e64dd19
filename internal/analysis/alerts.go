package analysis

import "fmt"

// Alert thresholds
const (
	OverreachingTSB = -25.0
	DetrainingTSB   = 25.0
	MaxWeeklyRamp   = 8.0 // CTL points per 7 days
	rampDays        = 7
)

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a coaching signal derived from the load timeline
type Alert struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// LoadAlerts inspects the latest point of a timeline (and the trailing week for
// the ramp rate) and returns any alerts, most severe first
func LoadAlerts(points []LoadPoint) []Alert {
	if len(points) == 0 {
		return nil
	}
	current := CurrentLoad(points)

	var alerts []Alert
	if current.TSB < OverreachingTSB {
		alerts = append(alerts, Alert{
			Kind:     "overreaching",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("Form is %.1f, below %.0f. Schedule recovery days.", current.TSB, OverreachingTSB),
		})
	}

	if len(points) > rampDays {
		ramp := current.CTL - points[len(points)-1-rampDays].CTL
		if ramp > MaxWeeklyRamp {
			alerts = append(alerts, Alert{
				Kind:     "ramp_rate",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Fitness rose %.1f in 7 days. Ramp above %.0f/week raises injury risk.", ramp, MaxWeeklyRamp),
			})
		}
	}

	if current.TSB > DetrainingTSB {
		alerts = append(alerts, Alert{
			Kind:     "detraining",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Form is %.1f. Extended rest is starting to cost fitness.", current.TSB),
		})
	}

	return alerts
}
