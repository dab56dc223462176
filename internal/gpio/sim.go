package gpio

import (
	"math"
	"sync"
	"time"
)

// defaultEchoLead is how long an HC-SR04 takes to raise the echo line after
// the trigger falls (eight 40 kHz cycles plus settling).
const defaultEchoLead = 250 * time.Microsecond

// EchoSimulator answers trigger pulses on a FakeBoard the way an ultrasonic
// module would: each trigger falling edge produces a rising and falling edge
// on the echo pin, spaced by the round-trip time for the current distance.
type EchoSimulator struct {
	board      *FakeBoard
	triggerPin int
	echoPin    int
	speed      float64
	clock      func() time.Duration

	mu       sync.Mutex
	distance float64
	dropFall bool
	high     bool
}

// NewEchoSimulator hooks into board's writes. clock supplies the timestamp of
// the trigger falling edge; nil uses time since the simulator was created.
func NewEchoSimulator(board *FakeBoard, triggerPin, echoPin int, speedOfSound, distance float64, clock func() time.Duration) *EchoSimulator {
	if clock == nil {
		start := time.Now()
		clock = func() time.Duration { return time.Since(start) }
	}
	s := &EchoSimulator{
		board:      board,
		triggerPin: triggerPin,
		echoPin:    echoPin,
		speed:      speedOfSound,
		clock:      clock,
		distance:   distance,
	}
	board.mu.Lock()
	board.OnWrite = s.onWrite
	board.mu.Unlock()
	return s
}

// SetDistance changes the simulated target distance in meters. A distance
// <= 0 means no echo at all.
func (s *EchoSimulator) SetDistance(m float64) {
	s.mu.Lock()
	s.distance = m
	s.mu.Unlock()
}

// SetDropFall makes the echo line rise but never fall, as when the module
// loses the reflection.
func (s *EchoSimulator) SetDropFall(drop bool) {
	s.mu.Lock()
	s.dropFall = drop
	s.mu.Unlock()
}

func (s *EchoSimulator) onWrite(pin int, level Level) {
	if pin != s.triggerPin {
		return
	}

	s.mu.Lock()
	wasHigh := s.high
	s.high = level == High
	distance := s.distance
	dropFall := s.dropFall
	s.mu.Unlock()

	if !wasHigh || level != Low || distance <= 0 {
		return
	}

	riseAt := s.clock() + defaultEchoLead
	roundTrip := time.Duration(math.Round(2 * distance / s.speed * float64(time.Second)))
	s.board.Emit(s.echoPin, true, riseAt)
	if !dropFall {
		s.board.Emit(s.echoPin, false, riseAt+roundTrip)
	}
}
