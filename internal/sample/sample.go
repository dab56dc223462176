// Package sample carries distance measurements from the edge handler to the
// display consumer.
package sample

import "time"

// Sample is one completed echo measurement. It is passed by value.
type Sample struct {
	// Meters is the one-way distance to the target.
	Meters float64
	// PulseWidth is how long the echo line stayed high.
	PulseWidth time.Duration
	// At is the falling-edge timestamp, as an offset on the edge clock.
	At time.Duration
}
