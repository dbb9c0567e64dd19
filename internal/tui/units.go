package tui

import (
	"fmt"

	"trainload/internal/config"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units formats distances and paces in the athlete's display units
type Units struct {
	distanceMeters float64
	distanceLabel  string
	paceMeters     float64
	paceLabel      string
}

// NewUnits resolves the display config once; anything but "mi" / "min/mi" is metric
func NewUnits(cfg config.DisplayConfig) Units {
	u := Units{
		distanceMeters: metersPerKm,
		distanceLabel:  "km",
		paceMeters:     metersPerKm,
		paceLabel:      "km",
	}
	if cfg.DistanceUnit == "mi" {
		u.distanceMeters, u.distanceLabel = metersPerMile, "mi"
	}
	if cfg.PaceUnit == "min/mi" {
		u.paceMeters, u.paceLabel = metersPerMile, "mi"
	}
	return u
}

// FormatDistance renders meters as "12.3 km", or "-" when there is no distance
func (u Units) FormatDistance(meters float64) string {
	if meters <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f %s", meters/u.distanceMeters, u.distanceLabel)
}

// FormatPaceWithUnit renders the average pace as "5:00/km"
func (u Units) FormatPaceWithUnit(seconds int, meters float64) string {
	if meters <= 0 || seconds <= 0 {
		return "-"
	}
	pace := int(float64(seconds) / (meters / u.paceMeters))
	return fmt.Sprintf("%d:%02d/%s", pace/60, pace%60, u.paceLabel)
}
