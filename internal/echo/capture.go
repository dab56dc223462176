package echo

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/rangefinder/internal/sample"
)

// Capture is the edge-handler side of the pipeline.
//
// HandleEdge is the only method that touches the edge state and the rise
// timestamp, and it must not be called concurrently with itself. Results leave
// only through the Sink; the counters are atomic and safe to read anywhere.
type Capture struct {
	speed   float64
	sink    Sink
	release Releaser

	state EdgeState
	rise  Timestamp

	completed atomic.Uint64
	spurious  atomic.Uint64
	inverted  atomic.Uint64
	abandoned atomic.Uint64
	dropped   atomic.Uint64
}

// NewCapture creates a capture that converts pulse widths using speedOfSound
// (m/s) and pushes samples to sink. release may be nil.
func NewCapture(speedOfSound float64, sink Sink, release Releaser) *Capture {
	return &Capture{
		speed:   speedOfSound,
		sink:    sink,
		release: release,
	}
}

// HandleEdge processes one echo-line transition.
//
// A rise while a fall is still pending abandons the old cycle and restarts
// from the new rise. A fall while idle is ignored. A fall that is not after
// its rise is discarded. Nothing here blocks, allocates or logs.
func (c *Capture) HandleEdge(e Edge) {
	if e.Rising {
		if c.state == AwaitingFall {
			c.abandoned.Add(1)
		}
		c.rise = e.At
		c.state = AwaitingFall
		return
	}

	if c.state != AwaitingFall {
		c.spurious.Add(1)
		return
	}
	c.state = Idle

	width, err := PulseWidth(c.rise, e.At)
	if err != nil {
		c.inverted.Add(1)
		return
	}

	s := sample.Sample{
		Meters:     Distance(width, c.speed),
		PulseWidth: width,
		At:         time.Duration(e.At),
	}
	if !c.sink.Push(s) {
		c.dropped.Add(1)
	}
	c.completed.Add(1)

	if c.release != nil {
		c.release.Release()
	}
}

// State returns the current edge state. Only call it from the goroutine that
// calls HandleEdge.
func (c *Capture) State() EdgeState {
	return c.state
}

// Stats returns a snapshot of the capture counters.
func (c *Capture) Stats() Stats {
	return Stats{
		Completed: c.completed.Load(),
		Spurious:  c.spurious.Load(),
		Inverted:  c.inverted.Load(),
		Abandoned: c.abandoned.Load(),
		Dropped:   c.dropped.Load(),
	}
}

// PulseWidth returns fall - rise, or ErrTimingInversion if fall is not
// strictly after rise.
func PulseWidth(rise, fall Timestamp) (time.Duration, error) {
	if fall <= rise {
		return 0, ErrTimingInversion
	}
	return time.Duration(fall - rise), nil
}

// Distance converts a round-trip pulse width to a one-way distance in meters.
func Distance(width time.Duration, speedOfSound float64) float64 {
	return width.Seconds() * speedOfSound / 2
}
