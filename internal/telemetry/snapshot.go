package telemetry

import "strconv"

// Snapshot is one telemetry sample from the simulator. Missing JSON fields
// decode to their zero value.
type Snapshot struct {
	Valid         bool    `json:"valid"`
	RPM           float64 `json:"rpm"`
	Speed         float64 `json:"speed"`
	Gear          float64 `json:"gear"`
	GearNeutral   float64 `json:"gear_neutral"`
	CruiseControl float64 `json:"cruise_control"`
}

// SpeedKPH returns the speed truncated to whole km/h.
func (s Snapshot) SpeedKPH() int {
	return int(s.Speed)
}

// GearLabel returns the gear relative to the neutral index:
// "N" in neutral, "2" for the second forward gear, "R1" for first reverse.
func (s Snapshot) GearLabel() string {
	return GearLabel(int(s.Gear), int(s.GearNeutral))
}

// Cruise returns the cruise control setting; zero means off.
func (s Snapshot) Cruise() int {
	return int(s.CruiseControl)
}

func GearLabel(gear, neutral int) string {
	switch {
	case gear == neutral:
		return "N"
	case gear > neutral:
		return strconv.Itoa(gear - neutral)
	default:
		return "R" + strconv.Itoa(neutral-gear)
	}
}

// CruiseLabel renders a non-zero cruise setting, "R<n>" when reversing.
func CruiseLabel(cc int) string {
	if cc < 0 {
		return "R" + strconv.Itoa(-cc)
	}
	return strconv.Itoa(cc)
}
