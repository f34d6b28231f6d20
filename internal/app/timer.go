package app

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/wthud/internal/config"
	"codeberg.org/mutker/wthud/internal/input"
	"codeberg.org/mutker/wthud/internal/laptimer"
	"codeberg.org/mutker/wthud/internal/logger"
	"codeberg.org/mutker/wthud/internal/render"
)

const TimerInterval = 33 * time.Millisecond

// Trigger is the binding surface of the input dispatcher.
type Trigger interface {
	BindTrigger(source input.Source, onFire func())
	UnbindTrigger()
}

// TimerView renders the lap timer on its own cadence.
type TimerView struct {
	timer    *laptimer.Timer
	out      Publisher
	showBest atomic.Bool
	scale    float64
}

func NewTimerView(timer *laptimer.Timer, out Publisher, showBest bool, scale float64) *TimerView {
	v := &TimerView{timer: timer, out: out, scale: scale}
	v.showBest.Store(showBest)
	return v
}

func (v *TimerView) SetShowBest(show bool) {
	v.showBest.Store(show)
}

// Tick advances the save acknowledgment and publishes a frame.
func (v *TimerView) Tick() {
	v.timer.Tick()
	v.out.Publish(render.RenderTimer(render.TimerInput{
		Snapshot: v.timer.Snapshot(),
		ShowBest: v.showBest.Load(),
		Scale:    v.scale,
	}))
}

func (v *TimerView) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	v.Tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Tick()
		}
	}
}

// SourceFor maps a configured hotkey to an input source.
func SourceFor(hk config.Hotkey) input.Source {
	if hk.Kind == config.HotkeyGamepad {
		return input.ButtonSource(hk.Button)
	}
	return input.KeySource(hk.Key)
}

// BindHotkey points the trigger at hk; each rising edge fires the timer.
func BindHotkey(t Trigger, hk config.Hotkey, timer *laptimer.Timer) {
	t.BindTrigger(SourceFor(hk), timer.Fire)
	logger.Info().Str("hotkey", hk.String()).Str("kind", hk.Kind.String()).Msg("Lap timer hotkey bound")
}

// timerReload applies config file edits to a running timer overlay. Values
// are only applied when they differ from the last ones seen in the file, so
// a reload caused by the sibling process does not clobber in-memory state.
type timerReload struct {
	view    *TimerView
	timer   *laptimer.Timer
	trigger Trigger

	lastBest   float64
	lastHotkey config.Hotkey
}

func newTimerReload(cfg *config.Config, view *TimerView, timer *laptimer.Timer, trigger Trigger) *timerReload {
	return &timerReload{
		view:       view,
		timer:      timer,
		trigger:    trigger,
		lastBest:   cfg.BestLap,
		lastHotkey: cfg.Hotkey(),
	}
}

func (r *timerReload) apply(next *config.Config) {
	r.view.SetShowBest(next.ShowBestLap)

	if next.BestLap != r.lastBest {
		r.lastBest = next.BestLap
		r.timer.SetBestLap(next.BestLap)
		logger.Info().Float64("best_lap", next.BestLap).Msg("Best lap updated from config")
	}

	if hk := next.Hotkey(); hk != r.lastHotkey {
		r.lastHotkey = hk
		BindHotkey(r.trigger, hk, r.timer)
	}
}
