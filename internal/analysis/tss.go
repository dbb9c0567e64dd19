package analysis

import (
	"math"
	"strings"
)

// Modality is the coarse sport category used for scoring
type Modality string

const (
	ModalityRun      Modality = "run"
	ModalityBike     Modality = "bike"
	ModalitySwim     Modality = "swim"
	ModalityStrength Modality = "strength"
	ModalityOther    Modality = "other"
)

// Tier identifies which branch of the scoring chain produced a TSS value
type Tier string

const (
	TierPower           Tier = "power"
	TierRunHR           Tier = "run_hr"
	TierRunPace         Tier = "run_pace"
	TierSwimPace        Tier = "swim_pace"
	TierGenericHR       Tier = "generic_hr"
	TierPerceivedEffort Tier = "perceived_effort"
	TierDuration        Tier = "duration"
)

// Scoring defaults used when the athlete's thresholds are missing
const (
	DefaultFTP              = 250.0
	DefaultLTHR             = 132.0
	LTHRFromMaxHRRatio      = 0.7
	DefaultThresholdPace    = 5.5  // min/km
	ReferenceCSS            = 1.75 // min/100m
	GenericReferenceHR      = 200.0
	DefaultPerceivedEffort  = 0.6
	MinRunPaceDistance      = 300.0 // meters
	MinSwimPaceDistance     = 100.0 // meters
	MinPaceIntensityFactor  = 0.5
	MaxPaceIntensityFactor  = 1.5
	defaultDurationRateKey  = "default"
	trailRunDurationRateKey = "trail_run"
)

// PerceivedEffortIntensity maps a 1-10 effort rating to intensity per hour
var PerceivedEffortIntensity = map[int]float64{
	1: 0.2, 2: 0.3, 3: 0.4, 4: 0.5, 5: 0.6,
	6: 0.7, 7: 0.8, 8: 0.9, 9: 1.0, 10: 1.2,
}

// DurationRates is TSS per hour for activities with no usable intensity data.
// Keys are rate keys (see RateKey) plus "default".
type DurationRates map[string]float64

// DefaultDurationRates returns the built-in TSS/hour table
func DefaultDurationRates() DurationRates {
	return DurationRates{
		"run":                   90,
		trailRunDurationRateKey: 100,
		"bike":                  60,
		"swim":                  55,
		"strength":              40,
		defaultDurationRateKey:  45,
	}
}

// rate returns the TSS/hour for key, falling back to "default" and then the built-in table
func (r DurationRates) rate(key string) float64 {
	if v, ok := r[key]; ok && validThreshold(v) {
		return v
	}
	if v, ok := r[defaultDurationRateKey]; ok && validThreshold(v) {
		return v
	}
	builtin := DefaultDurationRates()
	if v, ok := builtin[key]; ok {
		return v
	}
	return builtin[defaultDurationRateKey]
}

// ActivityRecord holds the fields of a completed activity that feed the scorer.
// Nil pointers mean the provider did not report the value.
type ActivityRecord struct {
	DurationSeconds      float64
	Modality             Modality
	SportType            string // provider type, e.g. "TrailRun"
	DistanceMeters       *float64
	AverageHeartRate     *float64
	AveragePower         *float64
	WeightedAveragePower *float64
	PerceivedEffort      *int
}

// ActivityStreams are the optional raw sensor streams for an activity
type ActivityStreams struct {
	HeartRate SensorStream
	Power     SensorStream
}

// AthleteThresholds are per-athlete calibration values. All are optional;
// zero, negative or NaN values are treated as unset.
type AthleteThresholds struct {
	MaxHR                 *float64
	RestingHR             *float64
	LTHR                  *float64
	FTP                   *float64
	ThresholdPaceMinPerKm *float64
}

// Score is the result of scoring one activity
type Score struct {
	TSS             float64
	Tier            Tier
	IntensityFactor float64
	NormalizedHR    float64 // 0 when no HR stream
	NormalizedPower float64 // 0 when no power stream
}

// Scorer computes TSS with a configurable duration-only rate table
type Scorer struct {
	rates DurationRates
}

// NewScorer creates a Scorer. A nil table uses DefaultDurationRates.
func NewScorer(rates DurationRates) *Scorer {
	if len(rates) == 0 {
		rates = DefaultDurationRates()
	}
	return &Scorer{rates: rates}
}

// ScoreActivity scores an activity with the default duration table
func ScoreActivity(a ActivityRecord, th AthleteThresholds, streams ActivityStreams) Score {
	return NewScorer(nil).Score(a, th, streams)
}

// Score runs the tiered fallback chain. The first applicable tier wins:
// bike power, run HR, run pace, swim pace, generic HR, perceived effort, duration.
// It never fails; missing data only lowers the precision of the estimate.
func (s *Scorer) Score(a ActivityRecord, th AthleteThresholds, streams ActivityStreams) Score {
	hours := durationHours(a.DurationSeconds)

	var score Score
	if streams.HeartRate.Len() > 0 {
		score.NormalizedHR = NormalizeSensorStream(streams.HeartRate)
	}
	if streams.Power.Len() > 0 {
		score.NormalizedPower = NormalizeSensorStream(streams.Power)
	}

	power := firstPositive(score.NormalizedPower, value(a.WeightedAveragePower))
	hr := firstPositive(score.NormalizedHR, value(a.AverageHeartRate))
	distance := value(a.DistanceMeters)

	switch {
	case a.Modality == ModalityBike && power > 0:
		ftp := thresholdOr(th.FTP, DefaultFTP)
		score.Tier = TierPower
		score.IntensityFactor = power / ftp

	case a.Modality == ModalityRun && hr > 0:
		score.Tier = TierRunHR
		score.IntensityFactor = hr / lactateThreshold(th)

	case a.Modality == ModalityRun && distance > MinRunPaceDistance && hours > 0:
		actualPace := (hours * 60) / (distance / 1000)
		threshold := thresholdOr(th.ThresholdPaceMinPerKm, DefaultThresholdPace)
		score.Tier = TierRunPace
		score.IntensityFactor = clamp(threshold/actualPace, MinPaceIntensityFactor, MaxPaceIntensityFactor)

	case a.Modality == ModalitySwim && distance > MinSwimPaceDistance && hours > 0:
		pacePer100 := (hours * 60) / (distance / 100)
		score.Tier = TierSwimPace
		score.IntensityFactor = clamp(ReferenceCSS/pacePer100, MinPaceIntensityFactor, MaxPaceIntensityFactor)

	case hr > 0:
		score.Tier = TierGenericHR
		score.IntensityFactor = hr / GenericReferenceHR

	case a.PerceivedEffort != nil:
		intensity, ok := PerceivedEffortIntensity[*a.PerceivedEffort]
		if !ok {
			intensity = DefaultPerceivedEffort
		}
		score.Tier = TierPerceivedEffort
		score.IntensityFactor = intensity
		score.TSS = finiteTSS(hours * intensity * 100)
		return score

	default:
		score.Tier = TierDuration
		score.TSS = finiteTSS(hours * s.rates.rate(RateKey(a.Modality, a.SportType)))
		return score
	}

	score.TSS = finiteTSS(hours * score.IntensityFactor * score.IntensityFactor * 100)
	return score
}

// lactateThreshold picks LTHR, else 70% of max HR, else the fixed default
func lactateThreshold(th AthleteThresholds) float64 {
	if validThreshold(value(th.LTHR)) {
		return *th.LTHR
	}
	if maxHR := value(th.MaxHR); validThreshold(maxHR) {
		if lthr := math.Round(maxHR * LTHRFromMaxHRRatio); lthr > 0 {
			return lthr
		}
	}
	return DefaultLTHR
}

// ModalityFromSportType maps a provider sport type (Strava or FIT naming) to a Modality
func ModalityFromSportType(sportType string) Modality {
	switch normalizeSportType(sportType) {
	case "run", "trailrun", "virtualrun", "running", "treadmill":
		return ModalityRun
	case "ride", "virtualride", "gravelride", "mountainbikeride", "ebikeride",
		"emountainbikeride", "velomobile", "handcycle", "cycling", "bike":
		return ModalityBike
	case "swim", "swimming", "openwaterswim":
		return ModalitySwim
	case "weighttraining", "crossfit", "workout", "strength", "training", "hiit":
		return ModalityStrength
	default:
		return ModalityOther
	}
}

// RateKey returns the duration-table key for a modality and provider sport type
func RateKey(m Modality, sportType string) string {
	if m == ModalityRun && normalizeSportType(sportType) == "trailrun" {
		return trailRunDurationRateKey
	}
	switch m {
	case ModalityRun, ModalityBike, ModalitySwim, ModalityStrength:
		return string(m)
	default:
		return defaultDurationRateKey
	}
}

func normalizeSportType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(s)
}

func durationHours(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	return seconds / 3600
}

// finiteTSS rounds and guarantees a finite non-negative value
func finiteTSS(tss float64) float64 {
	if math.IsNaN(tss) || math.IsInf(tss, 0) || tss < 0 {
		return 0
	}
	return math.Round(tss)
}

func validThreshold(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func thresholdOr(p *float64, fallback float64) float64 {
	if v := value(p); validThreshold(v) {
		return v
	}
	return fallback
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if validThreshold(v) {
			return v
		}
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
