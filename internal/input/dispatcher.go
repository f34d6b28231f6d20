package input

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/logger"
	"github.com/samber/lo"
)

const (
	DefaultPollInterval  = 10 * time.Millisecond
	DefaultRetryInterval = time.Second

	brakeAxis    = 4
	throttleAxis = 5
	maxButtons   = 32
)

// Axes is the pedal state from one completed poll iteration.
type Axes struct {
	Throttle  float64
	Brake     float64
	Connected bool
}

type binding struct {
	source Source
	onFire func()
	code   uint16
	armed  bool // false when the source can never fire (unknown key)
}

type Option func(*Dispatcher)

func WithPollInterval(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.pollInterval = d
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.retryInterval = d
		}
	}
}

// Dispatcher polls one gamepad and the global keyboard hook and turns
// presses of the bound source into rising-edge callbacks.
type Dispatcher struct {
	mu          sync.Mutex
	binding     *binding
	latch       bool
	axes        Axes
	buttonCount int

	opener DeviceOpener
	kb     KeyboardHook

	hookMu      sync.Mutex
	hookRunning bool
	hookDone    chan struct{}

	pollInterval  time.Duration
	retryInterval time.Duration

	stop      chan struct{}
	done      chan struct{}
	runOnce   sync.Once
	closeOnce sync.Once
	started   bool
	closed    bool

	log logger.Logger
}

// NewDispatcher creates a dispatcher. Either backend may be nil, in which
// case that kind of source never fires.
func NewDispatcher(opener DeviceOpener, kb KeyboardHook, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		opener:        opener,
		kb:            kb,
		pollInterval:  DefaultPollInterval,
		retryInterval: DefaultRetryInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		log:           logger.With("input"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// BindTrigger makes source the only active trigger, replacing any previous
// binding and clearing the edge latch. Sources that can never fire are
// accepted. After Close it does nothing.
func (d *Dispatcher) BindTrigger(source Source, onFire func()) {
	if d.isClosed() {
		d.log.Debug().Str("source", source.String()).Msg("dispatcher closed, trigger not bound")
		return
	}

	b := &binding{source: source, onFire: onFire, armed: true}

	if source.IsKey() {
		if d.kb == nil {
			b.armed = false
		} else if code, ok := d.kb.Resolve(source.Key()); ok {
			b.code = code
		} else {
			b.armed = false
			d.log.ErrorWithCode(errors.New().WithData(ErrUnknownKey, source.Key())).
				Msg("hotkey will never fire")
		}
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.binding = b
	d.latch = false
	count := d.buttonCount
	d.mu.Unlock()

	if source.IsButton() && d.axesSnapshot().Connected && source.Button() >= count {
		d.log.Warn().
			Int("button", source.Button()).
			Int("buttons", count).
			Msg("gamepad button out of range, hotkey will never fire")
	}

	if source.IsKey() && b.armed {
		d.startHook()
	} else {
		d.stopHook()
	}

	d.log.Info().Str("source", source.String()).Msg("trigger bound")
}

// UnbindTrigger removes the keyboard hook and clears the gamepad target.
func (d *Dispatcher) UnbindTrigger() {
	d.mu.Lock()
	d.binding = nil
	d.latch = false
	d.mu.Unlock()

	d.stopHook()
}

// Axes returns the pedal values of the last completed poll.
func (d *Dispatcher) Axes() Axes {
	return d.axesSnapshot()
}

func (d *Dispatcher) axesSnapshot() Axes {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.axes
}

// Run polls the gamepad until ctx is canceled or Close is called. It only
// returns once; later calls return immediately.
func (d *Dispatcher) Run(ctx context.Context) {
	first := false
	d.runOnce.Do(func() {
		first = true
		d.mu.Lock()
		d.started = true
		d.mu.Unlock()
	})
	if !first {
		return
	}
	defer close(d.done)

	if d.opener == nil {
		d.wait(ctx, -1)
		return
	}

	var dev Device
	defer func() {
		if dev != nil {
			dev.Close()
		}
		d.detach()
	}()

	for {
		if dev == nil {
			var err error
			dev, err = d.opener.Open()
			if err != nil {
				dev = nil
				if !d.wait(ctx, d.retryInterval) {
					return
				}
				continue
			}
			d.attach(dev)
		}

		if err := d.poll(dev); err != nil {
			d.log.Info().Err(err).Str("device", dev.Name()).Msg("gamepad disconnected")
			dev.Close()
			dev = nil
			d.detach()
			if !d.wait(ctx, d.retryInterval) {
				return
			}
			continue
		}

		if !d.wait(ctx, d.pollInterval) {
			return
		}
	}
}

// wait sleeps for dur (forever when negative) and reports whether polling
// should continue.
func (d *Dispatcher) wait(ctx context.Context, dur time.Duration) bool {
	var after <-chan time.Time
	if dur >= 0 {
		t := time.NewTimer(dur)
		defer t.Stop()
		after = t.C
	}

	select {
	case <-ctx.Done():
		return false
	case <-d.stop:
		return false
	case <-after:
		return true
	}
}

func (d *Dispatcher) attach(dev Device) {
	d.mu.Lock()
	d.buttonCount = dev.ButtonCount()
	d.latch = false
	d.mu.Unlock()

	d.log.Info().
		Str("device", dev.Name()).
		Int("axes", dev.AxisCount()).
		Int("buttons", dev.ButtonCount()).
		Msg("gamepad connected")
}

func (d *Dispatcher) detach() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.axes = Axes{}
	d.buttonCount = 0
	if d.binding != nil && d.binding.source.IsButton() {
		d.latch = false
	}
}

func (d *Dispatcher) poll(dev Device) error {
	reading, err := dev.Read()
	if err != nil {
		return err
	}

	axes := Axes{Connected: true}
	if dev.AxisCount() > throttleAxis && len(reading.Axes) > throttleAxis {
		axes.Brake = pedal(reading.Axes[brakeAxis])
		axes.Throttle = pedal(reading.Axes[throttleAxis])
	}

	d.mu.Lock()
	d.axes = axes
	fire := d.edgeLocked(d.buttonPressedLocked(reading.Buttons), sourceButton, 0)
	d.mu.Unlock()

	d.fire(fire)

	return nil
}

// pedal maps a [-1,1] axis to [0,1].
func pedal(v float64) float64 {
	return lo.Clamp((v+1)/2, 0, 1)
}

func (d *Dispatcher) buttonPressedLocked(buttons uint32) bool {
	b := d.binding
	if b == nil || !b.source.IsButton() {
		return false
	}

	idx := b.source.Button()
	if idx < 0 || idx >= d.buttonCount || idx >= maxButtons {
		return false
	}

	return buttons&(1<<uint(idx)) != 0
}

// edgeLocked updates the latch for the bound source and returns the callback
// to run on a released to pressed transition.
func (d *Dispatcher) edgeLocked(pressed bool, kind sourceKind, code uint16) func() {
	b := d.binding
	if b == nil || !b.armed || b.source.kind != kind {
		return nil
	}
	if kind == sourceKey && b.code != code {
		return nil
	}

	rising := pressed && !d.latch
	d.latch = pressed

	if rising {
		return b.onFire
	}
	return nil
}

func (d *Dispatcher) fire(onFire func()) {
	if onFire == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("panic", fmt.Sprint(r)).Msg("trigger callback panicked")
		}
	}()

	onFire()
}

func (d *Dispatcher) handleKey(ev KeyEvent) {
	d.mu.Lock()
	fire := d.edgeLocked(ev.Down, sourceKey, ev.Code)
	d.mu.Unlock()

	d.fire(fire)
}

func (d *Dispatcher) startHook() {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()

	if d.hookRunning || d.kb == nil || d.isClosed() {
		return
	}

	events, err := d.kb.Start()
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to start keyboard hook")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			d.handleKey(ev)
		}
	}()

	d.hookRunning = true
	d.hookDone = done
}

func (d *Dispatcher) stopHook() {
	d.hookMu.Lock()
	defer d.hookMu.Unlock()

	if !d.hookRunning {
		return
	}

	d.kb.Stop()
	<-d.hookDone
	d.hookRunning = false
	d.hookDone = nil
}

func (d *Dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}

// Close unbinds the trigger and stops polling. It is safe to call more than
// once.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		d.UnbindTrigger()
		close(d.stop)

		d.mu.Lock()
		started := d.started
		d.mu.Unlock()

		if started {
			<-d.done
		}
	})
}
