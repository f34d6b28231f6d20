package history

import (
	"context"
	"time"

	"codeberg.org/mutker/wthud/internal/laptimer"
)

// Sink persists finished laps synchronously.
type Sink interface {
	Append(ctx context.Context, rec laptimer.Record) error
	Close() error
}

// LapRepository is a Sink that can also be queried.
type LapRepository interface {
	Sink
	Stats(ctx context.Context) (Stats, error)
	Recent(ctx context.Context, limit int) ([]laptimer.Record, error)
}

// Stats summarizes the stored laps.
type Stats struct {
	Laps     int
	Sessions int
	Best     time.Duration
	Last     time.Time
}
