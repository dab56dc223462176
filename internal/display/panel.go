package display

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/devices/ssd1306"
	"periph.io/x/periph/devices/ssd1306/image1bit"
	"periph.io/x/periph/host"
)

// SSD1306 is an OLED panel on an I2C bus.
type SSD1306 struct {
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// OpenSSD1306 initialises the host drivers, opens the named I2C bus ("" for
// the first available) and attaches a width×height SSD1306.
func OpenSSD1306(busName string, width, height int) (*SSD1306, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: width, H: height})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init ssd1306: %w", err)
	}
	return &SSD1306{bus: bus, dev: dev}, nil
}

// Draw sends a frame to the panel.
func (p *SSD1306) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	return p.dev.Draw(r, src, sp)
}

// Close blanks the panel and releases the bus.
func (p *SSD1306) Close() error {
	var errs []error
	if err := p.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt ssd1306: %w", err))
	}
	if err := p.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// TextPanel prints each frame as text, one character per pixel. It stands in
// for the OLED when running without hardware.
type TextPanel struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextPanel writes frames to w.
func NewTextPanel(w io.Writer) *TextPanel {
	return &TextPanel{w: w}
}

// Draw renders the r region of src.
func (p *TextPanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bw := bufio.NewWriter(p.w)
	border := make([]byte, r.Dx()+2)
	for i := range border {
		border[i] = '-'
	}
	border[0], border[len(border)-1] = '+', '+'

	bw.Write(border)
	bw.WriteByte('\n')
	for y := 0; y < r.Dy(); y++ {
		bw.WriteByte('|')
		for x := 0; x < r.Dx(); x++ {
			if lit(src.At(sp.X+x, sp.Y+y)) {
				bw.WriteByte('#')
			} else {
				bw.WriteByte(' ')
			}
		}
		bw.WriteString("|\n")
	}
	bw.Write(border)
	bw.WriteByte('\n')
	return bw.Flush()
}

// FakePanel records frames for test assertions.
type FakePanel struct {
	mu sync.Mutex

	// Frames contains a copy of every frame drawn.
	Frames []*image1bit.VerticalLSB

	// DrawError, if set, will be returned by Draw.
	DrawError error
}

// NewFakePanel creates a FakePanel for testing.
func NewFakePanel() *FakePanel {
	return &FakePanel{}
}

// Draw copies the frame.
func (f *FakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DrawError != nil {
		return f.DrawError
	}
	frame := image1bit.NewVerticalLSB(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			frame.SetBit(x, y, image1bit.Bit(lit(src.At(sp.X+x, sp.Y+y))))
		}
	}
	f.Frames = append(f.Frames, frame)
	return nil
}

// FrameCount returns the number of frames drawn so far.
func (f *FakePanel) FrameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Frames)
}

// Last returns the most recent frame, or nil.
func (f *FakePanel) Last() *image1bit.VerticalLSB {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

func lit(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r|g|b != 0
}
