// Package pacer fires the rangefinder trigger on a fixed cadence.
//
// With a Handshake the pacer re-arms only after the echo side releases it or
// the echo timeout expires, so consecutive pings never overlap. Without one it
// free-runs at the configured interval.
package pacer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// MinInterval leaves room for the previous echo and the module's dead time.
const MinInterval = 60 * time.Millisecond

// Trigger starts one measurement by pulsing the trigger line.
type Trigger interface {
	Pulse(width time.Duration) error
}

// Config controls pacing.
type Config struct {
	// Interval is the pause between the end of one cycle and the next trigger.
	Interval time.Duration
	// PulseWidth is the trigger high time.
	PulseWidth time.Duration
	// EchoTimeout bounds the wait for the handshake release.
	EchoTimeout time.Duration
}

// DefaultConfig returns the HC-SR04 defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    100 * time.Millisecond,
		PulseWidth:  10 * time.Microsecond,
		EchoTimeout: 40 * time.Millisecond,
	}
}

// Validate checks the config for values that would overlap echoes.
func (c Config) Validate() error {
	if c.Interval < MinInterval {
		return fmt.Errorf("pacer interval %v is below minimum %v", c.Interval, MinInterval)
	}
	if c.PulseWidth <= 0 {
		return fmt.Errorf("pacer pulse width must be positive, got %v", c.PulseWidth)
	}
	if c.EchoTimeout <= 0 {
		return fmt.Errorf("pacer echo timeout must be positive, got %v", c.EchoTimeout)
	}
	return nil
}

// Stats counts pacer activity since startup.
type Stats struct {
	Cycles        uint64
	Missed        uint64 // handshake not released within EchoTimeout
	TriggerErrors uint64
}

// Pacer periodically pulses the trigger.
type Pacer struct {
	trigger Trigger
	hs      *Handshake
	cfg     Config
	log     *zap.Logger

	cycles        atomic.Uint64
	missed        atomic.Uint64
	triggerErrors atomic.Uint64
}

// New creates a Pacer. hs may be nil for free-running mode.
func New(trigger Trigger, hs *Handshake, cfg Config, log *zap.Logger) *Pacer {
	return &Pacer{
		trigger: trigger,
		hs:      hs,
		cfg:     cfg,
		log:     log,
	}
}

// Run triggers cycles until ctx is cancelled and returns ctx.Err().
func (p *Pacer) Run(ctx context.Context) error {
	p.log.Info("pacer started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Duration("echo_timeout", p.cfg.EchoTimeout),
		zap.Bool("handshake", p.hs != nil))

	for {
		if err := p.Cycle(ctx); err != nil {
			return err
		}
		if err := sleep(ctx, p.cfg.Interval); err != nil {
			return err
		}
	}
}

// Cycle fires one trigger pulse and, in handshake mode, waits for the echo
// side to release. Only cancellation is returned as an error; trigger
// failures and missed echoes are counted and logged.
func (p *Pacer) Cycle(ctx context.Context) error {
	if p.hs != nil {
		p.hs.Reset()
	}

	p.cycles.Add(1)
	if err := p.trigger.Pulse(p.cfg.PulseWidth); err != nil {
		p.triggerErrors.Add(1)
		p.log.Warn("trigger pulse failed", zap.Error(err))
		return ctx.Err()
	}

	if p.hs == nil {
		return nil
	}

	released, err := p.hs.Wait(ctx, p.cfg.EchoTimeout)
	if err != nil {
		return err
	}
	if !released {
		p.missed.Add(1)
		p.log.Debug("no echo within timeout", zap.Duration("timeout", p.cfg.EchoTimeout))
	}
	return nil
}

// Stats returns a snapshot of the pacer counters.
func (p *Pacer) Stats() Stats {
	return Stats{
		Cycles:        p.cycles.Load(),
		Missed:        p.missed.Load(),
		TriggerErrors: p.triggerErrors.Load(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
