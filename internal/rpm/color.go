package rpm

import (
	"image/color"
	"math"
	"time"

	"github.com/samber/lo"
)

// DefaultMax replaces a non-positive configured maximum.
const DefaultMax = 3000.0

const epsilon = 1e-9

// Thresholds are percentages of Max. They are expected to be ordered
// pink <= blue <= flash but ColorFor does not rely on it.
type Thresholds struct {
	Max      float64
	PinkPct  float64
	BluePct  float64
	FlashPct float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Max:      DefaultMax,
		PinkPct:  60,
		BluePct:  90,
		FlashPct: 96,
	}
}

// Level is the urgency the cascade selected.
type Level int

const (
	Normal Level = iota
	Warning
	Shift
	Flashing
)

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Shift:
		return "shift"
	case Flashing:
		return "flashing"
	default:
		return "unknown"
	}
}

var (
	ColorNormal   = color.RGBA{R: 0xff, A: 0xff}
	ColorWarning  = color.RGBA{R: 0xff, B: 0xff, A: 0xff}
	ColorShift    = color.RGBA{G: 0xff, B: 0xff, A: 0xff}
	ColorFlash    = ColorShift
	ColorFlashDim = color.RGBA{G: 0x33, B: 0x33, A: 0xff}
	ColorDim      = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
)

// Ratio normalizes rpm against max into [0,1].
func Ratio(rpm, max float64) float64 {
	if max <= 0 {
		max = DefaultMax
	}
	return lo.Clamp(rpm/math.Max(max, epsilon), 0, 1)
}

// LevelFor evaluates the threshold cascade; the first match wins.
func LevelFor(ratio float64, t Thresholds) Level {
	switch {
	case ratio > t.FlashPct/100:
		return Flashing
	case ratio > t.BluePct/100:
		return Shift
	case ratio > t.PinkPct/100:
		return Warning
	default:
		return Normal
	}
}

// ColorFor maps ratio to the bar color. Past the flash threshold the color
// alternates every 50ms.
func ColorFor(ratio float64, t Thresholds, now time.Time) color.RGBA {
	switch LevelFor(ratio, t) {
	case Flashing:
		if FlashOn(now) {
			return ColorFlash
		}
		return ColorFlashDim
	case Shift:
		return ColorShift
	case Warning:
		return ColorWarning
	default:
		return ColorNormal
	}
}

const flashPeriod = 50 * time.Millisecond

// FlashOn reports the phase of the 10 Hz flash at now, i.e.
// floor(seconds*20) mod 2 == 1, computed on integer nanoseconds.
func FlashOn(now time.Time) bool {
	n := now.UnixNano()
	phase := n / int64(flashPeriod)
	if n < 0 && n%int64(flashPeriod) != 0 {
		phase--
	}
	return phase&1 == 1
}
