// Package config holds the rangefinder's build-time and command-line settings.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/sweeney/rangefinder/internal/display"
	"github.com/sweeney/rangefinder/internal/echo"
	"github.com/sweeney/rangefinder/internal/gpio"
	"github.com/sweeney/rangefinder/internal/pacer"
	"github.com/sweeney/rangefinder/internal/readout"
	"github.com/sweeney/rangefinder/internal/sample"
)

// Config is the full daemon configuration.
type Config struct {
	Chip       string
	TriggerPin int
	EchoPin    int

	SpeedOfSound float64
	Interval     time.Duration
	PulseWidth   time.Duration
	EchoTimeout  time.Duration

	QueueCapacity int

	Scale  float64
	Width  int
	Height int
	I2CBus string

	Heartbeat time.Duration
	LogLevel  string
	LogFormat string

	// Simulate, when > 0, replaces the GPIO chip and OLED with an
	// in-process sensor at this distance (m) and a text panel on stdout.
	Simulate float64
}

// Defaults returns the configuration for an HC-SR04 on BCM 4/18 and a
// 128×32 SSD1306.
func Defaults() Config {
	pc := pacer.DefaultConfig()
	return Config{
		Chip:          "gpiochip0",
		TriggerPin:    gpio.DefaultTriggerPin,
		EchoPin:       gpio.DefaultEchoPin,
		SpeedOfSound:  echo.SpeedOfSound,
		Interval:      pc.Interval,
		PulseWidth:    pc.PulseWidth,
		EchoTimeout:   pc.EchoTimeout,
		QueueCapacity: sample.DefaultCapacity,
		Scale:         readout.DefaultScale,
		Width:         display.DefaultWidth,
		Height:        display.DefaultHeight,
		Heartbeat:     15 * time.Minute,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// RegisterFlags binds every field to a flag on fs, using the current values
// as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Chip, "chip", c.Chip, "GPIO chip name")
	fs.IntVar(&c.TriggerPin, "trigger-pin", c.TriggerPin, "BCM pin number for the sensor trigger")
	fs.IntVar(&c.EchoPin, "echo-pin", c.EchoPin, "BCM pin number for the sensor echo")
	fs.Float64Var(&c.SpeedOfSound, "speed-of-sound", c.SpeedOfSound, "Speed of sound in m/s")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "Pause between measurement cycles (>= 60ms)")
	fs.DurationVar(&c.PulseWidth, "pulse", c.PulseWidth, "Trigger pulse width")
	fs.DurationVar(&c.EchoTimeout, "echo-timeout", c.EchoTimeout, "Longest wait for an echo before the next trigger")
	fs.IntVar(&c.QueueCapacity, "queue", c.QueueCapacity, "Distance queue capacity")
	fs.Float64Var(&c.Scale, "scale", c.Scale, "Bar length in pixels per centimeter")
	fs.IntVar(&c.Width, "width", c.Width, "Display width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "Display height in pixels")
	fs.StringVar(&c.I2CBus, "i2c", c.I2CBus, `I2C bus for the display ("" for the first available)`)
	fs.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "Heartbeat log interval (0 to disable)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: console or json")
	fs.Float64Var(&c.Simulate, "simulate", c.Simulate, "Run without hardware against a simulated target at this distance in meters (0 = hardware)")
}

// Pacer returns the pacer settings.
func (c Config) Pacer() pacer.Config {
	return pacer.Config{
		Interval:    c.Interval,
		PulseWidth:  c.PulseWidth,
		EchoTimeout: c.EchoTimeout,
	}
}

// Readout returns the display consumer settings.
func (c Config) Readout() readout.Config {
	rc := readout.DefaultConfig()
	rc.Scale = c.Scale
	return rc
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.TriggerPin < 0 || c.EchoPin < 0 {
		errs = append(errs, fmt.Errorf("pins must be non-negative (trigger=%d echo=%d)", c.TriggerPin, c.EchoPin))
	}
	if c.TriggerPin == c.EchoPin {
		errs = append(errs, fmt.Errorf("trigger and echo must be different pins, both are %d", c.TriggerPin))
	}
	if c.SpeedOfSound <= 0 {
		errs = append(errs, fmt.Errorf("speed of sound must be positive, got %v", c.SpeedOfSound))
	}
	if err := c.Pacer().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("queue capacity must be >= 1, got %d", c.QueueCapacity))
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %v", c.Scale))
	}
	if c.Width < 1 || c.Height < 1 || c.Width > 1<<12 || c.Height > 1<<12 {
		errs = append(errs, fmt.Errorf("invalid display size %dx%d", c.Width, c.Height))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat))
	}
	if c.Simulate < 0 {
		errs = append(errs, fmt.Errorf("simulate distance must not be negative, got %v", c.Simulate))
	}
	return errors.Join(errs...)
}
