// Package status provides a thread-safe status tracker for the rangefinder
// daemon. It is written by the display consumer and the heartbeat, and read
// by the heartbeat log and print-state mode.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rangefinder/internal/echo"
	"github.com/sweeney/rangefinder/internal/pacer"
	"github.com/sweeney/rangefinder/internal/sample"
)

// Config contains daemon configuration for display.
type Config struct {
	TriggerPin    int
	EchoPin       int
	SpeedOfSound  float64
	IntervalMs    int64
	EchoTimeoutMs int64
	QueueCapacity int
	Scale         float64
	Simulated     bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Last         sample.Sample
	HasSample    bool
	LastRender   time.Time
	Rendered     uint64
	RenderErrors uint64
	Capture      echo.Stats
	Pacer        pacer.Stats
	Dropped      uint64
	StartTime    time.Time
	Now          time.Time
	Config       Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordRender notes that s was drawn at t. A non-nil err means the frame
// did not reach the panel.
func (t *Tracker) RecordRender(s sample.Sample, at time.Time, err error) {
	t.mu.Lock()
	t.snap.Last = s
	t.snap.HasSample = true
	t.snap.LastRender = at
	t.snap.Rendered++
	if err != nil {
		t.snap.RenderErrors++
	}
	t.mu.Unlock()
}

// SetCounters stores the latest pipeline counters.
func (t *Tracker) SetCounters(capture echo.Stats, pacer pacer.Stats, dropped uint64) {
	t.mu.Lock()
	t.snap.Capture = capture
	t.snap.Pacer = pacer
	t.snap.Dropped = dropped
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
