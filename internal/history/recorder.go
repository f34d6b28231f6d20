package history

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/laptimer"
	"codeberg.org/mutker/wthud/internal/logger"
)

const appendTimeout = 5 * time.Second

// Recorder fans finished laps out to its sinks on a background goroutine so
// that the lap timer never waits on disk.
type Recorder struct {
	sinks []Sink
	repo  LapRepository
	log   logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan laptimer.Record
	done   chan struct{}
}

// NewRecorder builds the sinks enabled in cfg. A failing SQLite store is
// logged and skipped so that the CSV log keeps working.
func NewRecorder(cfg Config, log logger.Logger) (*Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	var (
		sinks []Sink
		repo  LapRepository
	)

	if cfg.CSVPath != "" {
		csvSink, err := NewCSVSink(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csvSink)
	}

	if cfg.DBPath != "" {
		r, err := NewRepository(cfg.DBPath, log)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.DBPath).Msg("Lap database unavailable, continuing without it")
		} else {
			repo = r
			sinks = append(sinks, r)
		}
	}

	if len(sinks) == 0 {
		log.Debug().Msg("Lap history disabled")
	}

	rec := NewRecorderWithSinks(cfg.QueueSize, log, sinks...)
	rec.repo = repo

	return rec, nil
}

func NewRecorderWithSinks(queueSize int, log logger.Logger, sinks ...Sink) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	r := &Recorder{
		sinks: sinks,
		log:   log,
		queue: make(chan laptimer.Record, queueSize),
		done:  make(chan struct{}),
	}

	go r.run()

	return r
}

// Record queues rec without blocking. Laps arriving after Close or while the
// queue is full are dropped and logged.
func (r *Recorder) Record(rec laptimer.Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.log.Warn().Str("lap", rec.Formatted).Msg("Recorder closed, lap not saved")
		return
	}

	select {
	case r.queue <- rec:
	default:
		r.log.Error().Str("lap", rec.Formatted).Msg("Lap history queue full, lap not saved")
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for rec := range r.queue {
		for _, sink := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
			err := sink.Append(ctx, rec)
			cancel()

			if err != nil {
				var coded errors.Error
				if errors.As(err, &coded) {
					r.log.ErrorWithCode(coded).Str("lap", rec.Formatted).Msg("Failed to save lap")
				} else {
					r.log.Error().Err(err).Str("lap", rec.Formatted).Msg("Failed to save lap")
				}
			}
		}
	}
}

// Repository returns the SQLite store, nil when it is disabled.
func (r *Recorder) Repository() LapRepository {
	return r.repo
}

// Close drains queued laps and closes every sink.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.New().Wrap(ErrStorageClose, errors.Join(errs...))
	}

	return nil
}
