package overlay

import "math"

// Kind selects the overlay and with it the title and default placement.
type Kind int

const (
	KindHUD Kind = iota
	KindTimer
)

const (
	TitleHUD   = "Main HUD"
	TitleTimer = "Lap Timer"

	bottomMargin = 100
	timerOffsetX = 100
	timerOffsetY = 100
)

func (k Kind) String() string {
	switch k {
	case KindHUD:
		return "hud"
	case KindTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Title is the stable window title capture tools select the overlay by.
func (k Kind) Title() string {
	if k == KindTimer {
		return TitleTimer
	}
	return TitleHUD
}

type Point struct {
	X, Y int
}

type Size struct {
	W, H int
}

// Placement is the on-screen rectangle of an overlay.
type Placement struct {
	X, Y, Width, Height int
}

// Scaled converts a logical size to window pixels.
func Scaled(logical Size, scale float64) Size {
	return Size{
		W: int(math.Trunc(float64(logical.W) * scale)),
		H: int(math.Trunc(float64(logical.H) * scale)),
	}
}

// DefaultPosition places an overlay that has no saved position: the timer at
// a fixed offset, the HUD centered horizontally near the bottom edge.
func DefaultPosition(kind Kind, size, screen Size) Point {
	if kind == KindTimer {
		return Point{X: timerOffsetX, Y: timerOffsetY}
	}

	return Point{
		X: (screen.W - size.W) / 2,
		Y: screen.H - size.H - bottomMargin,
	}
}
