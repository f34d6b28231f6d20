package laptimer

import (
	"fmt"
	"math"
	"time"
)

// Placeholder is shown for a lap that never ran (zero duration).
const Placeholder = "--:--.---"

// Format renders d as MM:SS.mmm, truncated to the millisecond.
func Format(d time.Duration) string {
	if d == 0 {
		return Placeholder
	}
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}

// FormatSeconds is Format for a float seconds value such as the persisted best lap.
func FormatSeconds(s float64) string {
	return Format(FromSeconds(s))
}

// FromSeconds converts seconds to a Duration, rounded to the microsecond so
// that values like 65.123 do not truncate to 65.122.
func FromSeconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1e6)) * time.Microsecond
}

// Seconds returns d in seconds rounded to millisecond precision.
func Seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
