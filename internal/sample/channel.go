package sample

import (
	"context"
	"fmt"
	"sync/atomic"
)

// DefaultCapacity absorbs a few frames of consumer jitter.
const DefaultCapacity = 5

// Channel is a bounded FIFO of samples.
//
// Push is meant for the edge handler: it never blocks and never allocates.
// When the channel is full the oldest queued sample is evicted so the consumer
// always sees the freshest measurements. Push assumes a single producer.
type Channel struct {
	c       chan Sample
	dropped atomic.Uint64
}

// NewChannel creates a channel holding up to capacity samples.
func NewChannel(capacity int) (*Channel, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("sample channel capacity must be >= 1, got %d", capacity)
	}
	return &Channel{c: make(chan Sample, capacity)}, nil
}

// Push enqueues s, evicting the oldest sample if the channel is full.
// It reports whether s was queued; with a single producer it always is.
//
// A Pop that lands between the failed send and the eviction frees a slot
// that Push does not see, so one extra sample is evicted. It is still counted
// in Dropped, so every pushed sample is either popped, queued or dropped.
func (ch *Channel) Push(s Sample) bool {
	select {
	case ch.c <- s:
		return true
	default:
	}

	// Full: evict the oldest (head is next to be received).
	select {
	case <-ch.c:
		ch.dropped.Add(1)
	default:
	}

	select {
	case ch.c <- s:
		return true
	default:
		ch.dropped.Add(1)
		return false
	}
}

// Pop blocks until a sample is available or ctx is done.
func (ch *Channel) Pop(ctx context.Context) (Sample, error) {
	select {
	case s := <-ch.c:
		return s, nil
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	}
}

// TryPop returns the next sample without blocking.
func (ch *Channel) TryPop() (Sample, bool) {
	select {
	case s := <-ch.c:
		return s, true
	default:
		return Sample{}, false
	}
}

// Len returns the number of queued samples.
func (ch *Channel) Len() int {
	return len(ch.c)
}

// Cap returns the channel capacity.
func (ch *Channel) Cap() int {
	return cap(ch.c)
}

// Dropped returns how many samples were discarded because the channel was full.
func (ch *Channel) Dropped() uint64 {
	return ch.dropped.Load()
}
