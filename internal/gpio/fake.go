package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// FakeBoard is a test double that records writes and lets tests inject edges.
type FakeBoard struct {
	mu sync.Mutex

	// Dirs records each configured pin's direction.
	Dirs map[int]Direction

	// Writes records every Write call in order.
	Writes []WriteRecord

	// WriteError, if set, will be returned by Write.
	WriteError error

	// ConfigureError, if set, will be returned by Configure.
	ConfigureError error

	// Closed tracks if Close was called.
	Closed bool

	// OnWrite, if set, is called after every successful Write, outside the lock.
	OnWrite func(pin int, level Level)

	handlers map[int]EdgeHandler
	masks    map[int]EdgeMask
	emitMu   sync.Mutex
}

// WriteRecord is a recorded output change.
type WriteRecord struct {
	Pin   int
	Level Level
}

// NewFakeBoard creates an empty FakeBoard.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{
		Dirs:     make(map[int]Direction),
		handlers: make(map[int]EdgeHandler),
		masks:    make(map[int]EdgeMask),
	}
}

// Configure records the pin direction.
func (f *FakeBoard) Configure(pin int, dir Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Dirs[pin] = dir
	return nil
}

// Write records the level. The pin must be configured as an output.
func (f *FakeBoard) Write(pin int, level Level) error {
	f.mu.Lock()
	if f.WriteError != nil {
		err := f.WriteError
		f.mu.Unlock()
		return err
	}
	if dir, ok := f.Dirs[pin]; !ok || dir != Output {
		f.mu.Unlock()
		return fmt.Errorf("gpio: pin %d is not an output", pin)
	}
	f.Writes = append(f.Writes, WriteRecord{Pin: pin, Level: level})
	hook := f.OnWrite
	f.mu.Unlock()

	if hook != nil {
		hook(pin, level)
	}
	return nil
}

// RegisterEdgeInterrupt stores handler for pin. The pin must be an input.
func (f *FakeBoard) RegisterEdgeInterrupt(pin int, mask EdgeMask, handler EdgeHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dir, ok := f.Dirs[pin]; !ok || dir != Input {
		return fmt.Errorf("gpio: pin %d is not an input", pin)
	}
	if handler == nil {
		return errors.New("gpio: nil edge handler")
	}
	f.handlers[pin] = handler
	f.masks[pin] = mask
	return nil
}

// Emit delivers an edge to the registered handler, as the edge interrupt
// would. Edges not selected by the registered mask are filtered out.
// It reports whether the handler was called. Emits are serialized.
func (f *FakeBoard) Emit(pin int, rising bool, at time.Duration) bool {
	f.mu.Lock()
	h := f.handlers[pin]
	mask := f.masks[pin]
	f.mu.Unlock()

	if h == nil {
		return false
	}
	if rising && mask&RisingEdge == 0 || !rising && mask&FallingEdge == 0 {
		return false
	}

	f.emitMu.Lock()
	defer f.emitMu.Unlock()
	h(Edge{Pin: pin, Rising: rising, Time: at})
	return true
}

// WritesSnapshot returns a copy of the recorded writes.
func (f *FakeBoard) WritesSnapshot() []WriteRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WriteRecord, len(f.Writes))
	copy(out, f.Writes)
	return out
}

// Close marks the board as closed and drops all handlers.
func (f *FakeBoard) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	f.handlers = make(map[int]EdgeHandler)
	return nil
}

// Reset clears recorded writes and errors.
func (f *FakeBoard) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = nil
	f.WriteError = nil
	f.ConfigureError = nil
	f.Closed = false
}
