package laptimer

import (
	"time"

	"github.com/google/uuid"
)

// Record is one finished lap as handed to persistence.
type Record struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Timestamp time.Time
	Duration  time.Duration
	Formatted string
	Seconds   float64
	NewRecord bool
}

// Recorder accepts finished laps. Record must not block the caller.
type Recorder interface {
	Record(rec Record)
}

type discard struct{}

func (discard) Record(Record) {}
