//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "rangefinder"

// RealBoard drives actual hardware using the Linux GPIO character device.
// Edge timestamps come from the kernel's monotonic event clock.
type RealBoard struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
	dirs  map[int]Direction
}

// NewRealBoard opens the named GPIO chip (e.g. "gpiochip0").
func NewRealBoard(chipName string) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealBoard{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
		dirs:  make(map[int]Direction),
	}, nil
}

// Configure requests pin as an output (driven low) or as an input with
// pull-down. Reconfiguring an already requested pin replaces its request.
func (b *RealBoard) Configure(pin int, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.lines[pin]; ok {
		var err error
		if dir == Output {
			err = l.Reconfigure(gpiocdev.AsOutput(0))
		} else {
			err = l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown)
		}
		if err != nil {
			return fmt.Errorf("reconfigure pin %d: %w", pin, err)
		}
		b.dirs[pin] = dir
		return nil
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if dir == Output {
		opts = []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	}
	l, err := b.chip.RequestLine(pin, opts...)
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	b.lines[pin] = l
	b.dirs[pin] = dir
	return nil
}

// Write sets an output pin level.
func (b *RealBoard) Write(pin int, level Level) error {
	b.mu.Lock()
	l, ok := b.lines[pin]
	dir := b.dirs[pin]
	b.mu.Unlock()

	if !ok || dir != Output {
		return fmt.Errorf("pin %d is not configured as output", pin)
	}
	if err := l.SetValue(int(level)); err != nil {
		return fmt.Errorf("write pin %d: %w", pin, err)
	}
	return nil
}

// RegisterEdgeInterrupt re-requests an input pin with edge detection and
// delivers each kernel edge event to handler. gpiocdev serializes handler
// calls for a line on its own goroutine.
func (b *RealBoard) RegisterEdgeInterrupt(pin int, mask EdgeMask, handler EdgeHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir, ok := b.dirs[pin]; !ok || dir != Input {
		return fmt.Errorf("pin %d is not configured as input", pin)
	}

	var edges gpiocdev.LineReqOption
	switch mask {
	case RisingEdge:
		edges = gpiocdev.WithRisingEdge
	case FallingEdge:
		edges = gpiocdev.WithFallingEdge
	case BothEdges:
		edges = gpiocdev.WithBothEdges
	default:
		return fmt.Errorf("pin %d: invalid edge mask %#x", pin, mask)
	}

	// The event handler can only be set when the line is requested.
	if l, ok := b.lines[pin]; ok {
		delete(b.lines, pin)
		if err := l.Close(); err != nil {
			return fmt.Errorf("release pin %d for edge events: %w", pin, err)
		}
	}

	l, err := b.chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		edges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler(Edge{
				Pin:    evt.Offset,
				Rising: evt.Type == gpiocdev.LineEventRisingEdge,
				Time:   evt.Timestamp,
			})
		}),
	)
	if err != nil {
		return fmt.Errorf("request edge events on pin %d: %w", pin, err)
	}
	b.lines[pin] = l
	return nil
}

// Close releases GPIO resources.
// Outputs are driven low and returned to input with pull-down before closing,
// so the sensor is never left triggered.
func (b *RealBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for pin, l := range b.lines {
		if b.dirs[pin] == Output {
			if err := l.SetValue(0); err != nil {
				errs = append(errs, fmt.Errorf("drive pin %d low: %w", pin, err))
			}
			if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
				errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
			}
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	b.lines = make(map[int]*gpiocdev.Line)

	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
