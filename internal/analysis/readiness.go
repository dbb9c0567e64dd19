package analysis

// FormLevel is the qualitative readiness bucket for a TSB value
type FormLevel string

const (
	FormVeryFresh FormLevel = "very_fresh"
	FormFresh     FormLevel = "fresh"
	FormOptimal   FormLevel = "optimal"
	FormTired     FormLevel = "tired"
	FormExhausted FormLevel = "exhausted"
)

// Readiness is a TSB classification with advisory text
type Readiness struct {
	Level  FormLevel `json:"level"`
	Label  string    `json:"label"`
	Advice string    `json:"advice"`
}

// FormStatus classifies a TSB value. Boundaries are strictly greater-than.
func FormStatus(tsb float64) Readiness {
	switch {
	case tsb > 25:
		return Readiness{FormVeryFresh, "Very fresh", "Well rested. Fitness may start to fade without load, good day to race or build."}
	case tsb > 5:
		return Readiness{FormFresh, "Fresh", "Ready for a hard session or race."}
	case tsb > -10:
		return Readiness{FormOptimal, "Optimal", "Productive training zone. Keep the plan."}
	case tsb > -30:
		return Readiness{FormTired, "Tired", "Fatigue is building. Favor easy or moderate sessions."}
	default:
		// also catches NaN
		return Readiness{FormExhausted, "Exhausted", "Rest recommended. High risk of overtraining."}
	}
}

// RecoveryZone is the traffic-light bucket of a wearable recovery score
type RecoveryZone string

const (
	RecoveryGreen  RecoveryZone = "green"
	RecoveryYellow RecoveryZone = "yellow"
	RecoveryRed    RecoveryZone = "red"
)

// Recovery is a recovery score classification. Cleared is advisory only.
type Recovery struct {
	Zone    RecoveryZone `json:"zone"`
	Label   string       `json:"label"`
	Cleared bool         `json:"cleared"`
	Advice  string       `json:"advice"`
}

// RecoveryStatus classifies a 0-100 recovery score
func RecoveryStatus(score float64) Recovery {
	switch {
	case score >= 67:
		return Recovery{RecoveryGreen, "Optimal", true, "Training cleared."}
	case score >= 34:
		return Recovery{RecoveryYellow, "Moderate", true, "Training cleared with caution. Keep intensity in check."}
	default:
		return Recovery{RecoveryRed, "Low", false, "Training not cleared. Prioritize rest and sleep."}
	}
}
