package app

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/config"
	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/history"
	"codeberg.org/mutker/wthud/internal/input"
	"codeberg.org/mutker/wthud/internal/laptimer"
	"codeberg.org/mutker/wthud/internal/logger"
	"codeberg.org/mutker/wthud/internal/overlay"
	"codeberg.org/mutker/wthud/internal/pid"
	"codeberg.org/mutker/wthud/internal/render"
	"codeberg.org/mutker/wthud/internal/telemetry"
)

const statsTimeout = 2 * time.Second

// Run starts the overlay selected in cfg. It blocks until the overlay (or,
// for "all", every child process) has exited.
func Run(ctx context.Context, cfg *config.Config, args []string) error {
	switch cfg.Overlay {
	case config.OverlayHUD:
		return RunHUD(ctx, cfg)
	case config.OverlayTimer:
		return RunTimer(ctx, cfg)
	case config.OverlayAll:
		return Launch(ctx, args, config.OverlayHUD, config.OverlayTimer)
	default:
		return errors.New().WithData(ErrUnknownOverlay, cfg.Overlay)
	}
}

// ticks runs render loops and stops them as a group.
type ticks struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func startTicks(ctx context.Context, loops ...func(context.Context)) *ticks {
	ctx, cancel := context.WithCancel(ctx)
	t := &ticks{cancel: cancel}

	for _, loop := range loops {
		t.wg.Add(1)
		go func(loop func(context.Context)) {
			defer t.wg.Done()
			loop(ctx)
		}(loop)
	}

	return t
}

func (t *ticks) stop() {
	t.cancel()
	t.wg.Wait()
}

// closeOnDone closes the window when ctx ends, e.g. on SIGTERM.
func closeOnDone(ctx context.Context, win *overlay.Window) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			win.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func initialPosition(x, y int) *overlay.Point {
	if x == config.UnsetPosition && y == config.UnsetPosition {
		return nil
	}
	return &overlay.Point{X: x, Y: y}
}

func acquire(name string) (*pid.File, error) {
	guard := pid.New(name)
	if err := guard.Write(); err != nil {
		return nil, err
	}
	return guard, nil
}

func release(guard *pid.File) {
	if err := guard.Remove(); err != nil {
		logger.Warn().Err(err).Msg("Failed to remove PID file")
	}
}

// RunHUD runs the main HUD overlay in this process.
func RunHUD(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()
	log := logger.With("hud")

	guard, err := acquire(config.OverlayHUD)
	if err != nil {
		return err
	}
	defer release(guard)

	client, err := telemetry.NewClient(cfg.TelemetryURL, cfg.TelemetryTimeout)
	if err != nil {
		return errFactory.Wrap(ErrInitApp, err)
	}
	defer client.Close()

	win, err := overlay.NewWindow(overlay.Options{
		Kind:    overlay.KindHUD,
		Initial: initialPosition(cfg.HUDX, cfg.HUDY),
		Logical: overlay.Size{W: render.HUDWidth, H: render.HUDHeight},
		Scale:   cfg.UIScale,
	})
	if err != nil {
		return errFactory.Wrap(ErrInitApp, err)
	}

	dispatcher := input.NewDispatcher(input.JoystickOpener{}, nil)
	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go dispatcher.Run(pollCtx)

	view := NewHUDView(client, dispatcher, win, ThresholdsFrom(cfg), cfg.UIScale)
	view.timeout = cfg.TelemetryTimeout

	stopReload := watchConfig(cfg, log, func(next *config.Config) {
		view.SetThresholds(ThresholdsFrom(next))
		log.Info().Msg("Thresholds reloaded")
	})

	t := startTicks(ctx, func(ctx context.Context) { view.Loop(ctx, HUDInterval) })
	win.OnClose(stopReload)
	win.OnClose(t.stop)
	win.OnClose(dispatcher.Close)

	stopClose := closeOnDone(ctx, win)
	defer stopClose()

	log.Info().Str("url", cfg.TelemetryURL).Msg("HUD overlay running")

	runErr := win.Run()

	// Surfaces are gone; flush persistence.
	savePlacement(cfg, win, config.OverlayHUD, log)

	if runErr != nil {
		return errFactory.Wrap(ErrRenderLoop, runErr)
	}

	return nil
}

// RunTimer runs the lap timer overlay in this process.
func RunTimer(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()
	log := logger.With("timer")

	guard, err := acquire(config.OverlayTimer)
	if err != nil {
		return err
	}
	defer release(guard)

	hcfg := history.DefaultConfig()
	hcfg.CSVPath = cfg.HistoryFile
	hcfg.DBPath = cfg.LapDB

	recorder, err := history.NewRecorder(hcfg, logger.With("history"))
	if err != nil {
		return errFactory.Wrap(ErrInitApp, err)
	}
	logStats(recorder, log)

	timer := laptimer.New(cfg.BestLap, laptimer.WithRecorder(recorder))

	win, err := overlay.NewWindow(overlay.Options{
		Kind:    overlay.KindTimer,
		Initial: initialPosition(cfg.TimerX, cfg.TimerY),
		Logical: overlay.Size{W: render.TimerWidth, H: render.TimerHeight},
		Scale:   cfg.UIScale,
	})
	if err != nil {
		recorder.Close()
		return errFactory.Wrap(ErrInitApp, err)
	}

	dispatcher := input.NewDispatcher(input.JoystickOpener{}, input.NewGlobalKeyboard())
	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go dispatcher.Run(pollCtx)

	BindHotkey(dispatcher, cfg.Hotkey(), timer)

	view := NewTimerView(timer, win, cfg.ShowBestLap, cfg.UIScale)
	reload := newTimerReload(cfg, view, timer, dispatcher)
	stopReload := watchConfig(cfg, log, reload.apply)

	t := startTicks(ctx, func(ctx context.Context) { view.Loop(ctx, TimerInterval) })
	win.OnClose(stopReload)
	win.OnClose(t.stop)
	win.OnClose(dispatcher.Close)

	stopClose := closeOnDone(ctx, win)
	defer stopClose()

	log.Info().Str("session", timer.SessionID().String()).Msg("Lap timer overlay running")

	runErr := win.Run()

	if err := recorder.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to flush lap history")
	}
	savePlacement(cfg, win, config.OverlayTimer, log)
	if err := cfg.SaveBestLap(timer.BestLap()); err != nil {
		log.Error().Err(err).Msg("Failed to save best lap")
	}

	if runErr != nil {
		return errFactory.Wrap(ErrRenderLoop, runErr)
	}

	return nil
}

// watchConfig starts live reload; without it the overlay runs on the values
// it started with.
func watchConfig(cfg *config.Config, log logger.Logger, apply func(*config.Config)) func() {
	stop, err := cfg.Watch(apply)
	if err != nil {
		log.Warn().Err(err).Str("config", cfg.Path()).Msg("Live config reload unavailable")
		return func() {}
	}
	return stop
}

func savePlacement(cfg *config.Config, win *overlay.Window, name string, log logger.Logger) {
	pl, ok := win.Placement()
	if !ok {
		return
	}

	if err := cfg.SavePlacement(name, pl.X, pl.Y); err != nil {
		log.Error().Err(err).Msg("Failed to save overlay position")
		return
	}

	log.Debug().
		Int("x", pl.X).
		Int("y", pl.Y).
		Int("width", pl.Width).
		Int("height", pl.Height).
		Msg("Overlay position saved")
}

func logStats(recorder *history.Recorder, log logger.Logger) {
	repo := recorder.Repository()
	if repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	stats, err := repo.Stats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read lap statistics")
		return
	}

	ev := log.Info().
		Int("laps", stats.Laps).
		Int("sessions", stats.Sessions).
		Str("best", laptimer.Format(stats.Best))

	if recent, err := repo.Recent(ctx, 1); err == nil && len(recent) == 1 {
		ev = ev.Str("last", recent[0].Formatted).Time("last_at", recent[0].Timestamp)
	}

	ev.Msg("Lap history loaded")
}
