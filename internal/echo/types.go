// Package echo turns echo-line edges into distance samples.
// It has no I/O dependencies: edges and their timestamps are supplied by the
// caller, so the state machine can be driven directly from tests.
package echo

import (
	"errors"
	"time"

	"github.com/sweeney/rangefinder/internal/sample"
)

// SpeedOfSound is the canonical speed of sound in m/s used for all
// conversions (dry air, roughly 20 °C).
const SpeedOfSound = 340.29

// ErrTimingInversion is returned when a falling edge is not after its rising
// edge, e.g. after a clock wrap or a lost edge.
var ErrTimingInversion = errors.New("echo: fall timestamp not after rise")

// Timestamp is a monotonic point in time, as an offset from an arbitrary
// origin shared by all edges of one line.
type Timestamp time.Duration

// Edge is one transition of the echo line.
type Edge struct {
	Rising bool
	At     Timestamp
}

// EdgeState tracks whether a rise is waiting for its matching fall.
type EdgeState uint8

const (
	Idle EdgeState = iota
	AwaitingFall
)

func (s EdgeState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case AwaitingFall:
		return "AWAITING_FALL"
	}
	return "UNKNOWN"
}

// Sink receives completed samples. Push must not block.
type Sink interface {
	Push(s sample.Sample) bool
}

// Releaser is signalled once per completed echo cycle.
type Releaser interface {
	Release()
}

// Stats counts capture outcomes since startup.
type Stats struct {
	Completed uint64 // samples produced
	Spurious  uint64 // falls with no preceding rise
	Inverted  uint64 // falls not after their rise
	Abandoned uint64 // rises that replaced an unfinished cycle
	Dropped   uint64 // samples the sink refused
}
