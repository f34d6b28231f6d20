package render

import (
	"codeberg.org/mutker/wthud/internal/laptimer"
)

const (
	TimerWidth  = 300
	TimerHeight = 150

	idleTime = "00:00.000"
)

type TimerInput struct {
	Snapshot laptimer.Snapshot
	ShowBest bool
	Scale    float64
}

// RenderTimer draws the lap timer overlay. It always produces a frame.
func RenderTimer(in TimerInput) *Frame {
	s := scaler(in.Scale)
	f := newFrame(int(s.px(TimerWidth)), int(s.px(TimerHeight)))
	cx := float64(f.Width) / 2
	snap := in.Snapshot

	if in.ShowBest {
		f.text(cx, s.px(30), "BEST: "+laptimer.FormatSeconds(snap.BestLap), FontMono, s.px(24), AnchorCenter, colorBest)
	}

	display, c, status := idleTime, colorIdle, "READY"
	switch snap.State {
	case laptimer.Running:
		display, c, status = laptimer.Format(snap.Elapsed), colorWhite, "RUNNING"
		if snap.Elapsed == 0 {
			display = idleTime
		}
	case laptimer.Finished:
		display = laptimer.Format(snap.Final)
		if snap.NewRecord {
			c, status = colorRecord, "NEW RECORD"
		} else {
			c, status = colorWhite, "FINAL"
		}
	}

	f.text(cx, s.px(80), display, FontMono, s.px(48), AnchorCenter, c)

	if snap.Saved() {
		f.text(cx, s.px(130), "DATA SAVED", FontLabel, s.px(10), AnchorCenter, colorSaved)
	} else {
		f.text(cx, s.px(130), status, FontLabel, s.px(14), AnchorCenter, colorIdle)
	}

	return f
}
