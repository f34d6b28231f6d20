package render

import (
	"image/color"
	"math"
	"strconv"
	"time"

	"codeberg.org/mutker/wthud/internal/input"
	"codeberg.org/mutker/wthud/internal/rpm"
	"codeberg.org/mutker/wthud/internal/telemetry"
)

const (
	HUDWidth  = 600
	HUDHeight = 300

	Segments = 60

	barX       = 50
	barWidth   = 500
	barY       = 70
	barArch    = 20
	barHeight  = 25
	segmentGap = 1.5

	pedalTop    = 50
	pedalHeight = 200
	brakeX      = 20
	throttleX   = 560
	pedalWidth  = 20
)

type HUDInput struct {
	Snapshot   telemetry.Snapshot
	Thresholds rpm.Thresholds
	Axes       input.Axes
	Scale      float64
	Now        time.Time
}

// scaler truncates like integer pixel math on the logical layout.
type scaler float64

func (s scaler) px(v float64) float64 {
	return math.Trunc(v * float64(s))
}

// RenderHUD draws the main overlay. It returns false for an invalid sample,
// in which case the caller keeps showing its previous frame.
func RenderHUD(in HUDInput) (*Frame, bool) {
	snap := in.Snapshot
	if !snap.Valid {
		return nil, false
	}

	s := scaler(in.Scale)
	f := newFrame(int(s.px(HUDWidth)), int(s.px(HUDHeight)))

	ratio := rpm.Ratio(snap.RPM, in.Thresholds.Max)
	barColor := rpm.ColorFor(ratio, in.Thresholds, in.Now)

	active := ActiveSegments(ratio)
	seg := s.px(barWidth) / Segments
	for i := 0; i < Segments; i++ {
		progress := float64(i) / Segments
		x := s.px(barX) + float64(i)*seg
		y := s.px(barY) - math.Sin(progress*math.Pi)*s.px(barArch)

		c := rpm.ColorDim
		if i < active {
			c = barColor
		}
		f.fill(x, y, seg-segmentGap, s.px(barHeight), c)
	}

	drawPedal(f, s, brakeX, in.Axes.Brake, colorBrake)
	drawPedal(f, s, throttleX, in.Axes.Throttle, colorWhite)

	f.text(s.px(240), s.px(150), strconv.Itoa(snap.SpeedKPH()), FontDisplay, s.px(70), AnchorEast, colorWhite)
	f.text(s.px(250), s.px(190), "km/h", FontLabel, s.px(16), AnchorWest, colorUnit)
	f.line(s.px(290), s.px(135), s.px(290), s.px(195), 2, colorWhite)
	f.text(s.px(340), s.px(150), snap.GearLabel(), FontDisplay, s.px(100), AnchorWest, colorWhite)
	f.text(s.px(550), s.px(105), strconv.Itoa(int(snap.RPM))+" rpm", FontMono, s.px(16), AnchorEast, barColor)

	if cc := snap.Cruise(); cc != 0 {
		x, y := s.px(460), s.px(145)
		w, h := s.px(50), s.px(40)
		f.fill(x, y, w, h, colorCruise)

		cx := x + w/2
		f.text(cx, y+s.px(15), telemetry.CruiseLabel(cc), FontDisplay, s.px(32), AnchorCenter, colorWhite)
		f.text(cx, y+s.px(32), "CC", FontLabel, s.px(12), AnchorCenter, colorWhite)
	}

	return f, true
}

// ActiveSegments is the number of lit bar segments for ratio.
func ActiveSegments(ratio float64) int {
	n := int(math.Floor(Segments * ratio))
	if n < 0 {
		return 0
	}
	if n > Segments {
		return Segments
	}
	return n
}

func drawPedal(f *Frame, s scaler, x, value float64, c color.RGBA) {
	top := s.px(pedalTop)
	height := s.px(pedalHeight)

	f.stroke(s.px(x), top, s.px(x+pedalWidth)-s.px(x), height, 2, colorOutline)

	fill := math.Trunc(value * height)
	if fill > 0 {
		f.fill(s.px(x+2), top+height-fill, s.px(x+pedalWidth-2)-s.px(x+2), fill, c)
	}
}
