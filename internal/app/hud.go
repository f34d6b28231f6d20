package app

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/wthud/internal/config"
	"codeberg.org/mutker/wthud/internal/input"
	"codeberg.org/mutker/wthud/internal/logger"
	"codeberg.org/mutker/wthud/internal/render"
	"codeberg.org/mutker/wthud/internal/rpm"
	"codeberg.org/mutker/wthud/internal/telemetry"
)

const (
	HUDInterval  = 16 * time.Millisecond
	FetchTimeout = 20 * time.Millisecond
)

// AxisReader is the part of the input dispatcher the HUD reads.
type AxisReader interface {
	Axes() input.Axes
}

// Publisher receives finished frames.
type Publisher interface {
	Publish(f *render.Frame)
}

// HUDView turns telemetry samples into HUD frames.
type HUDView struct {
	source     telemetry.Source
	axes       AxisReader
	out        Publisher
	thresholds atomic.Pointer[rpm.Thresholds]
	scale      float64
	timeout    time.Duration
	now        func() time.Time

	valid bool
	log   logger.Logger
}

func NewHUDView(source telemetry.Source, axes AxisReader, out Publisher, th rpm.Thresholds, scale float64) *HUDView {
	v := &HUDView{
		source:  source,
		axes:    axes,
		out:     out,
		scale:   scale,
		timeout: FetchTimeout,
		now:     time.Now,
		log:     logger.With("hud"),
	}
	v.SetThresholds(th)

	return v
}

// ThresholdsFrom maps config values to the color engine's thresholds.
func ThresholdsFrom(cfg *config.Config) rpm.Thresholds {
	return rpm.Thresholds{
		Max:      cfg.RPMMax,
		PinkPct:  cfg.ThresholdPink,
		BluePct:  cfg.ThresholdBlue,
		FlashPct: cfg.ThresholdFlash,
	}
}

// SetThresholds swaps the thresholds used from the next tick on.
func (v *HUDView) SetThresholds(th rpm.Thresholds) {
	v.thresholds.Store(&th)
}

// Tick fetches one sample and publishes a frame for it. A failed fetch or an
// invalid sample publishes nothing, so the previous frame stays up.
func (v *HUDView) Tick(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	snap, err := v.source.Fetch(ctx)
	if err != nil {
		snap = telemetry.Snapshot{}
	}
	v.noteValidity(snap.Valid, err)

	var axes input.Axes
	if v.axes != nil {
		axes = v.axes.Axes()
	}

	frame, ok := render.RenderHUD(render.HUDInput{
		Snapshot:   snap,
		Thresholds: *v.thresholds.Load(),
		Axes:       axes,
		Scale:      v.scale,
		Now:        v.now(),
	})
	if !ok {
		return false
	}

	v.out.Publish(frame)

	return true
}

// noteValidity logs only when the telemetry stream starts or stops.
func (v *HUDView) noteValidity(valid bool, err error) {
	if valid == v.valid {
		return
	}
	v.valid = valid

	if valid {
		v.log.Info().Msg("telemetry available")
		return
	}
	v.log.Debug().Err(err).Msg("telemetry lost, holding last frame")
}

// Loop ticks until ctx is canceled.
func (v *HUDView) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Tick(ctx)
		}
	}
}
