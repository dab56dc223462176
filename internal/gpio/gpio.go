// Package gpio provides trigger output and echo edge interrupts with hardware
// abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"time"
)

// Direction selects whether a pin is an input or output.
type Direction uint8

const (
	Input Direction = iota
	Output
)

// Level is a logical pin level.
type Level uint8

const (
	Low Level = iota
	High
)

// EdgeMask selects which transitions raise an edge interrupt.
type EdgeMask uint8

const (
	RisingEdge EdgeMask = 1 << iota
	FallingEdge

	BothEdges = RisingEdge | FallingEdge
)

// Edge is a single transition reported by an edge interrupt.
type Edge struct {
	Pin    int
	Rising bool
	// Time is a monotonic timestamp from an arbitrary origin. Only
	// differences between edges of the same pin are meaningful.
	Time time.Duration
}

// EdgeHandler is called for every enabled transition. Calls for one pin are
// serialized; the handler must return quickly and must not block.
type EdgeHandler func(Edge)

// Board is the GPIO surface the rangefinder needs.
type Board interface {
	// Configure claims pin in the given direction. Outputs start low.
	Configure(pin int, dir Direction) error

	// Write drives an output pin.
	Write(pin int, level Level) error

	// RegisterEdgeInterrupt delivers edges matching mask on an input pin
	// to handler.
	RegisterEdgeInterrupt(pin int, mask EdgeMask, handler EdgeHandler) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultTriggerPin = 4
	DefaultEchoPin    = 18
)

// DefaultPulseWidth is the trigger high time required by HC-SR04 modules.
const DefaultPulseWidth = 10 * time.Microsecond

// Trigger pulses an output pin on a Board.
type Trigger struct {
	Board Board
	Pin   int

	// Sleep waits for the pulse width; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Pulse drives the pin high for width and then low again.
func (t Trigger) Pulse(width time.Duration) error {
	if err := t.Board.Write(t.Pin, High); err != nil {
		return fmt.Errorf("trigger pin %d high: %w", t.Pin, err)
	}
	sleep := t.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(width)
	if err := t.Board.Write(t.Pin, Low); err != nil {
		return fmt.Errorf("trigger pin %d low: %w", t.Pin, err)
	}
	return nil
}
