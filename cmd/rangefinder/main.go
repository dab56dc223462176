// Command rangefinder measures distance with an ultrasonic sensor and shows it
// on a small OLED.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/rangefinder/internal/config"
	"github.com/sweeney/rangefinder/internal/display"
	"github.com/sweeney/rangefinder/internal/echo"
	"github.com/sweeney/rangefinder/internal/gpio"
	"github.com/sweeney/rangefinder/internal/logger"
	"github.com/sweeney/rangefinder/internal/pacer"
	"github.com/sweeney/rangefinder/internal/readout"
	"github.com/sweeney/rangefinder/internal/sample"
	"github.com/sweeney/rangefinder/internal/status"
)

func main() {
	cfg := config.Defaults()
	cfg.RegisterFlags(flag.CommandLine)
	printState := flag.Bool("print-state", false, "Take one measurement, print status as JSON and exit")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "rangefinder")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *printState, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, printState bool, log *zap.Logger) error {
	board, panel, closeHW, err := openHardware(cfg, log)
	if err != nil {
		return err
	}
	defer closeHW()

	p, err := buildPipeline(board, panel, cfg, log)
	if err != nil {
		return err
	}

	if printState {
		return p.printOnce(ctx, os.Stdout)
	}

	log.Info("started",
		zap.Int("trigger_pin", cfg.TriggerPin),
		zap.Int("echo_pin", cfg.EchoPin),
		zap.Float64("speed_of_sound", cfg.SpeedOfSound),
		zap.Duration("interval", cfg.Interval),
		zap.Int("queue", cfg.QueueCapacity),
		zap.Bool("simulated", cfg.Simulate > 0))

	return p.run(ctx, cfg.Heartbeat)
}

// openHardware returns the GPIO board and display panel, either real devices
// or, in simulate mode, a fake board with a simulated sensor and a text panel
// on stdout.
func openHardware(cfg config.Config, log *zap.Logger) (gpio.Board, display.Panel, func(), error) {
	if cfg.Simulate > 0 {
		board := gpio.NewFakeBoard()
		gpio.NewEchoSimulator(board, cfg.TriggerPin, cfg.EchoPin, cfg.SpeedOfSound, cfg.Simulate, nil)
		log.Info("simulating sensor", zap.Float64("distance_m", cfg.Simulate))
		return board, display.NewTextPanel(os.Stdout), func() { board.Close() }, nil
	}

	board, err := gpio.NewRealBoard(cfg.Chip)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init gpio: %w", err)
	}
	panel, err := display.OpenSSD1306(cfg.I2CBus, cfg.Width, cfg.Height)
	if err != nil {
		board.Close()
		return nil, nil, nil, fmt.Errorf("init display: %w", err)
	}

	closeHW := func() {
		if err := panel.Close(); err != nil {
			log.Warn("close display", zap.Error(err))
		}
		if err := board.Close(); err != nil {
			log.Warn("close gpio", zap.Error(err))
		}
	}
	return board, panel, closeHW, nil
}

// pipeline is the wired measurement chain:
// pacer -> trigger pin -> echo edges -> capture -> queue -> readout -> panel.
type pipeline struct {
	queue    *sample.Channel
	capture  *echo.Capture
	pacer    *pacer.Pacer
	consumer *readout.Consumer
	tracker  *status.Tracker
	log      *zap.Logger
}

func buildPipeline(board gpio.Board, panel display.Panel, cfg config.Config, log *zap.Logger) (*pipeline, error) {
	queue, err := sample.NewChannel(cfg.QueueCapacity)
	if err != nil {
		return nil, err
	}

	hs := pacer.NewHandshake()
	capture := echo.NewCapture(cfg.SpeedOfSound, queue, hs)

	if err := board.Configure(cfg.TriggerPin, gpio.Output); err != nil {
		return nil, fmt.Errorf("configure trigger: %w", err)
	}
	if err := board.Configure(cfg.EchoPin, gpio.Input); err != nil {
		return nil, fmt.Errorf("configure echo: %w", err)
	}
	err = board.RegisterEdgeInterrupt(cfg.EchoPin, gpio.BothEdges, func(e gpio.Edge) {
		capture.HandleEdge(echo.Edge{Rising: e.Rising, At: echo.Timestamp(e.Time)})
	})
	if err != nil {
		return nil, fmt.Errorf("register echo interrupt: %w", err)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		TriggerPin:    cfg.TriggerPin,
		EchoPin:       cfg.EchoPin,
		SpeedOfSound:  cfg.SpeedOfSound,
		IntervalMs:    cfg.Interval.Milliseconds(),
		EchoTimeoutMs: cfg.EchoTimeout.Milliseconds(),
		QueueCapacity: cfg.QueueCapacity,
		Scale:         cfg.Scale,
		Simulated:     cfg.Simulate > 0,
	})

	trigger := gpio.Trigger{Board: board, Pin: cfg.TriggerPin}
	fb := display.NewFramebuffer(cfg.Width, cfg.Height, panel)

	return &pipeline{
		queue:    queue,
		capture:  capture,
		pacer:    pacer.New(trigger, hs, cfg.Pacer(), log.Named("pacer")),
		consumer: readout.New(queue, fb, cfg.Readout(), tracker, log.Named("readout")),
		tracker:  tracker,
		log:      log,
	}, nil
}

// run drives the pacer, the display consumer and the heartbeat until ctx is
// cancelled. Cancellation is a clean shutdown.
func (p *pipeline) run(ctx context.Context, heartbeat time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.pacer.Run(gctx) })
	g.Go(func() error { return p.consumer.Run(gctx) })
	if heartbeat > 0 {
		g.Go(func() error { return p.heartbeat(gctx, heartbeat) })
	}

	err := g.Wait()
	p.refresh()
	p.logStatus("shutdown")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *pipeline) heartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.refresh()
			p.logStatus("heartbeat")
		}
	}
}

// refresh copies the pipeline counters into the tracker.
func (p *pipeline) refresh() {
	p.tracker.SetCounters(p.capture.Stats(), p.pacer.Stats(), p.queue.Dropped())
}

func (p *pipeline) logStatus(msg string) {
	snap := p.tracker.Snapshot()
	fields := []zap.Field{
		zap.Duration("uptime", snap.Uptime().Truncate(time.Second)),
		zap.Uint64("triggers", snap.Pacer.Cycles),
		zap.Uint64("samples", snap.Capture.Completed),
		zap.Uint64("rendered", snap.Rendered),
		zap.Uint64("missed", snap.Pacer.Missed),
		zap.Uint64("spurious", snap.Capture.Spurious),
		zap.Uint64("inverted", snap.Capture.Inverted),
		zap.Uint64("restarted", snap.Capture.Abandoned),
		zap.Uint64("dropped", snap.Dropped+snap.Capture.Dropped),
	}
	if snap.HasSample {
		fields = append(fields, zap.String("last", readout.FormatDistance(snap.Last.Meters)))
	}
	p.log.Info(msg, fields...)
}

// printOnce runs a single measurement cycle, renders the result if there is
// one, and writes the status JSON to w.
func (p *pipeline) printOnce(ctx context.Context, w io.Writer) error {
	if err := p.pacer.Cycle(ctx); err != nil {
		return err
	}
	if s, ok := p.queue.TryPop(); ok {
		// A failed flush shows up as render_errors in the output.
		_ = p.consumer.Render(s)
	} else {
		p.log.Warn("no echo received")
	}

	p.refresh()
	if _, err := fmt.Fprintf(w, "%s\n", status.FormatStatus(p.tracker.Snapshot())); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}
