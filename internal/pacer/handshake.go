package pacer

import (
	"context"
	"time"
)

// Handshake is a binary signal from the echo side back to the pacer.
// Release never blocks and may be called from an edge handler; repeated
// releases before a Wait collapse into one.
type Handshake struct {
	c chan struct{}
}

// NewHandshake returns an unreleased handshake.
func NewHandshake() *Handshake {
	return &Handshake{c: make(chan struct{}, 1)}
}

// Release signals that the current echo cycle is complete.
func (h *Handshake) Release() {
	select {
	case h.c <- struct{}{}:
	default:
	}
}

// Reset discards a pending release left over from an earlier cycle.
func (h *Handshake) Reset() {
	select {
	case <-h.c:
	default:
	}
}

// Wait blocks until a release, timeout, or ctx cancellation. It reports
// whether a release was received.
func (h *Handshake) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.c:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
