package laptimer

import (
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/logger"
	"github.com/google/uuid"
)

// SaveAckTicks is how many render ticks the save acknowledgment stays visible
// (about two seconds at the timer's 30 Hz cadence).
const SaveAckTicks = 60

type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the timer taken under its lock.
type Snapshot struct {
	State     State
	Start     time.Time
	Elapsed   time.Duration // live for Running, final for Finished
	Final     time.Duration
	NewRecord bool
	BestLap   float64
	SaveAck   int
}

// Saved reports whether the save acknowledgment is still displayed.
func (s Snapshot) Saved() bool {
	return s.SaveAck > 0
}

type Option func(*Timer)

func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

func WithRecorder(r Recorder) Option {
	return func(t *Timer) {
		if r != nil {
			t.recorder = r
		}
	}
}

func WithSessionID(id uuid.UUID) Option {
	return func(t *Timer) {
		t.session = id
	}
}

// Timer is the lap state machine. Fire is called from input goroutines while
// Snapshot and Tick are called from the render tick.
type Timer struct {
	mu sync.Mutex

	state     State
	start     time.Time
	final     time.Duration
	newRecord bool
	best      float64
	ack       int

	now      func() time.Time
	recorder Recorder
	session  uuid.UUID
	log      logger.Logger
}

func New(bestLap float64, opts ...Option) *Timer {
	t := &Timer{
		best:     bestLap,
		now:      time.Now,
		recorder: discard{},
		session:  uuid.New(),
		log:      logger.With("laptimer"),
	}
	if t.best < 0 {
		t.best = 0
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Fire advances the state machine by one trigger event.
func (t *Timer) Fire() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Idle, Finished:
		t.state = Running
		t.start = now
		t.final = 0
		t.newRecord = false
		t.ack = 0
		t.log.Debug().Msg("lap started")
	case Running:
		t.finish(now)
	}
}

func (t *Timer) finish(now time.Time) {
	final := now.Sub(t.start)
	if final < 0 {
		final = 0
	}
	secs := final.Seconds()

	t.state = Finished
	t.final = final
	t.newRecord = t.best == 0 || secs < t.best

	if t.newRecord {
		t.best = secs
	}

	t.recorder.Record(Record{
		ID:        uuid.New(),
		SessionID: t.session,
		Timestamp: now,
		Duration:  final,
		Formatted: Format(final),
		Seconds:   Seconds(final),
		NewRecord: t.newRecord,
	})

	t.ack = SaveAckTicks

	t.log.Info().
		Str("lap", Format(final)).
		Bool("new_record", t.newRecord).
		Msg("lap finished")
}

// Tick expires the save acknowledgment by one render tick.
func (t *Timer) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ack > 0 {
		t.ack--
	}
}

func (t *Timer) Snapshot() Snapshot {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		State:     t.state,
		Start:     t.start,
		Final:     t.final,
		NewRecord: t.newRecord,
		BestLap:   t.best,
		SaveAck:   t.ack,
	}

	switch t.state {
	case Running:
		snap.Elapsed = now.Sub(t.start)
		if snap.Elapsed < 0 {
			snap.Elapsed = 0
		}
	case Finished:
		snap.Elapsed = t.final
	}

	return snap
}

// BestLap returns the best lap in seconds, 0 when unset.
func (t *Timer) BestLap() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.best
}

// SetBestLap replaces the best lap, e.g. after the config file was edited.
func (t *Timer) SetBestLap(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.best = seconds
}

func (t *Timer) SessionID() uuid.UUID {
	return t.session
}
