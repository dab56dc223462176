//go:build !linux

package gpio

import "errors"

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(chipName string) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Configure is not implemented on non-Linux platforms.
func (b *RealBoard) Configure(pin int, dir Direction) error {
	return errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (b *RealBoard) Write(pin int, level Level) error {
	return errors.New("gpio: not supported")
}

// RegisterEdgeInterrupt is not implemented on non-Linux platforms.
func (b *RealBoard) RegisterEdgeInterrupt(pin int, mask EdgeMask, handler EdgeHandler) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
