package overlay

import (
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/logger"
	"codeberg.org/mutker/wthud/internal/render"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const tps = 60

type Options struct {
	Kind    Kind
	Initial *Point // nil applies the default placement
	Logical Size
	Scale   float64
}

// Window hosts one overlay surface. It implements ebiten.Game; frames are
// produced elsewhere and handed over through Publish.
type Window struct {
	kind  Kind
	title string
	size  Size

	initial *Point
	pos     atomic.Pointer[Point]
	frame   atomic.Pointer[render.Frame]
	raster  *rasterizer
	drag    Drag

	realized  bool
	closeReq  atomic.Bool
	hooksOnce sync.Once
	hooksMu   sync.Mutex
	hooks     []func()

	log logger.Logger
}

func NewWindow(opts Options) (*Window, error) {
	errFactory := errors.New()

	if opts.Scale <= 0 {
		return nil, errFactory.WithData(ErrInvalidScale, opts.Scale)
	}

	raster, err := newRasterizer()
	if err != nil {
		return nil, err
	}

	w := &Window{
		kind:    opts.Kind,
		title:   opts.Kind.Title(),
		size:    Scaled(opts.Logical, opts.Scale),
		initial: opts.Initial,
		raster:  raster,
		log:     logger.With("overlay." + opts.Kind.String()),
	}
	if opts.Initial != nil {
		p := *opts.Initial
		w.pos.Store(&p)
	}

	return w, nil
}

func (w *Window) Kind() Kind {
	return w.kind
}

func (w *Window) Size() Size {
	return w.size
}

// Publish replaces the frame shown from the next draw on.
func (w *Window) Publish(f *render.Frame) {
	if f != nil {
		w.frame.Store(f)
	}
}

// Position returns the last known top-left corner, and false before the
// window has been placed.
func (w *Window) Position() (Point, bool) {
	p := w.pos.Load()
	if p == nil {
		return Point{}, false
	}
	return *p, true
}

// Placement is Position together with the window size.
func (w *Window) Placement() (Placement, bool) {
	p, ok := w.Position()
	if !ok {
		return Placement{}, false
	}
	return Placement{X: p.X, Y: p.Y, Width: w.size.W, Height: w.size.H}, true
}

// OnClose registers a hook run before the surface is torn down. Hooks run
// once, in registration order.
func (w *Window) OnClose(hook func()) {
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()

	w.hooks = append(w.hooks, hook)
}

// Close asks the window to shut down on its next update.
func (w *Window) Close() {
	w.closeReq.Store(true)
}

// Run opens the window and blocks until it is closed. It must be called from
// the main goroutine.
func (w *Window) Run() error {
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowSize(w.size.W, w.size.H)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetTPS(tps)
	if w.initial != nil {
		ebiten.SetWindowPosition(w.initial.X, w.initial.Y)
	}

	err := ebiten.RunGameWithOptions(w, &ebiten.RunGameOptions{
		ScreenTransparent: true,
	})

	// Runs the hooks if the loop ended without a regular close.
	w.runHooks()

	if err != nil && !errors.Is(err, ebiten.Termination) {
		return errors.New().Wrap(ErrWindowRun, err)
	}

	return nil
}

func (w *Window) runHooks() {
	w.hooksOnce.Do(func() {
		w.hooksMu.Lock()
		hooks := append([]func(){}, w.hooks...)
		w.hooksMu.Unlock()

		for _, hook := range hooks {
			hook()
		}
	})
}

func (w *Window) Update() error {
	if w.closeReq.Load() || ebiten.IsWindowBeingClosed() {
		w.log.Debug().Msg("closing")
		w.runHooks()
		return ebiten.Termination
	}

	if !w.realized {
		w.realize()
	}

	w.updateDrag()

	return nil
}

// realize runs once the native window exists.
func (w *Window) realize() {
	w.realized = true

	if w.initial == nil {
		mw, mh := ebiten.Monitor().Size()
		p := DefaultPosition(w.kind, w.size, Size{W: mw, H: mh})
		ebiten.SetWindowPosition(p.X, p.Y)
		w.pos.Store(&p)
	}

	if err := stripBorder(w.title); err != nil {
		w.log.Warn().Err(err).Msg("failed to remove window border")
	}

	w.log.Debug().Str("title", w.title).Msg("window realized")
}

func (w *Window) updateDrag() {
	cx, cy := ebiten.CursorPosition()
	cursor := Point{X: cx, Y: cy}

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		w.drag.Press(cursor)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		w.drag.Release()
	}

	wx, wy := ebiten.WindowPosition()
	current := Point{X: wx, Y: wy}

	if next, moved := w.drag.Move(current, cursor); moved {
		ebiten.SetWindowPosition(next.X, next.Y)
		current = next
	}

	w.pos.Store(&current)
}

func (w *Window) Draw(screen *ebiten.Image) {
	w.raster.draw(screen, w.frame.Load())
}

func (w *Window) Layout(_, _ int) (int, int) {
	return w.size.W, w.size.H
}
