// Package readout is the display consumer: it waits for distance samples and
// draws each one as a number and a proportional bar.
package readout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/rangefinder/internal/sample"
	"github.com/sweeney/rangefinder/internal/status"
)

// DefaultScale maps 1 cm of distance to 0.64 px of bar, so a 128 px panel
// fills at 2 m.
const DefaultScale = 0.64

// Layout rows, in pixels from the top of the panel.
const (
	labelRow = 0
	valueRow = 10
	barRow   = 20
)

// Source yields samples. Pop blocks until one is available.
type Source interface {
	Pop(ctx context.Context) (sample.Sample, error)
}

// Surface is the drawing target.
type Surface interface {
	Clear()
	DrawText(x, y int16, scale int, s string)
	DrawLine(x0, y0, x1, y1 int16)
	Flush() error
	Width() int16
}

// Config controls rendering.
type Config struct {
	// Scale is bar pixels per centimeter.
	Scale float64
	// Label is drawn above the value.
	Label string
}

// DefaultConfig returns the layout used on a 128×32 panel.
func DefaultConfig() Config {
	return Config{
		Scale: DefaultScale,
		Label: "Distance:",
	}
}

// Consumer renders samples from a Source onto a Surface.
type Consumer struct {
	src     Source
	surf    Surface
	cfg     Config
	tracker *status.Tracker
	log     *zap.Logger
	now     func() time.Time
}

// New creates a Consumer. tracker may be nil.
func New(src Source, surf Surface, cfg Config, tracker *status.Tracker, log *zap.Logger) *Consumer {
	return &Consumer{
		src:     src,
		surf:    surf,
		cfg:     cfg,
		tracker: tracker,
		log:     log,
		now:     time.Now,
	}
}

// Run renders every sample until ctx is cancelled, then returns ctx.Err().
// Waiting for a sample has no timeout: if the sensor never answers, the
// display keeps its last frame.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		s, err := c.src.Pop(ctx)
		if err != nil {
			return err
		}
		c.Render(s)
	}
}

// Render draws one sample and flushes it. Flush failures are logged and
// returned; the next sample simply tries again.
//
// The bar runs from x=0 to x=bar inclusive, so a bar length of 63 lights 64
// pixels. A full-scale bar ends on the last column.
func (c *Consumer) Render(s sample.Sample) error {
	text := FormatDistance(s.Meters)
	bar := BarLength(s.Meters, c.cfg.Scale, int(c.surf.Width()))

	c.surf.Clear()
	c.surf.DrawText(0, labelRow, 1, c.cfg.Label)
	c.surf.DrawText(0, valueRow, 1, text)
	if bar > 0 {
		c.surf.DrawLine(0, barRow, int16(min(bar, int(c.surf.Width())-1)), barRow)
	}
	err := c.surf.Flush()

	if c.tracker != nil {
		c.tracker.RecordRender(s, c.now(), err)
	}
	if err != nil {
		c.log.Warn("display flush failed", zap.Error(err))
		return err
	}

	c.log.Debug("distance",
		zap.Float64("meters", s.Meters),
		zap.Duration("pulse_width", s.PulseWidth),
		zap.Int("bar_px", bar))
	return nil
}

// FormatDistance renders meters with two decimals and the unit.
func FormatDistance(m float64) string {
	return fmt.Sprintf("%.2f m", m)
}

// BarLength converts a distance to a bar length in pixels:
// meters*100*scale truncated, clamped to [0, width].
func BarLength(meters, scale float64, width int) int {
	px := meters * 100 * scale
	if !(px > 0) {
		return 0
	}
	if px >= float64(width) {
		return width
	}
	return int(px)
}
