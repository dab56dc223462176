// Package display renders to a small monochrome panel.
//
// Drawing happens in a 1-bit Framebuffer; Flush pushes the whole buffer to a
// Panel (an SSD1306 over I2C, a text dump, or a fake in tests).
package display

import (
	"image"
	"image/color"

	"periph.io/x/periph/devices/ssd1306/image1bit"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Default panel geometry.
const (
	DefaultWidth  = 128
	DefaultHeight = 32
)

// fontAscent is the distance from the top of a text cell to the baseline
// tinyfont draws on.
const fontAscent = 8

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Panel is a physical (or simulated) display that accepts whole frames.
// periph's ssd1306.Dev satisfies it.
type Panel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Framebuffer is a 1-bit drawing surface. It is not safe for concurrent use.
type Framebuffer struct {
	img   *image1bit.VerticalLSB
	w, h  int16
	font  tinyfont.Fonter
	panel Panel
}

var _ drivers.Displayer = (*Framebuffer)(nil)

// NewFramebuffer creates a cleared width×height buffer that flushes to panel.
// panel may be nil, in which case Flush is a no-op.
func NewFramebuffer(width, height int, panel Panel) *Framebuffer {
	return &Framebuffer{
		img:   image1bit.NewVerticalLSB(image.Rect(0, 0, width, height)),
		w:     int16(width),
		h:     int16(height),
		font:  &proggy.TinySZ8pt7b,
		panel: panel,
	}
}

// Size implements drivers.Displayer.
func (fb *Framebuffer) Size() (x, y int16) {
	return fb.w, fb.h
}

// SetPixel implements drivers.Displayer. Any non-black colour lights the pixel.
// Out-of-range coordinates are ignored.
func (fb *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= fb.w || y >= fb.h {
		return
	}
	fb.img.SetBit(int(x), int(y), image1bit.Bit(c.R|c.G|c.B != 0))
}

// Display implements drivers.Displayer.
func (fb *Framebuffer) Display() error {
	return fb.Flush()
}

// Width returns the buffer width in pixels.
func (fb *Framebuffer) Width() int16 {
	return fb.w
}

// Pixel reports whether (x, y) is lit.
func (fb *Framebuffer) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= int(fb.w) || y >= int(fb.h) {
		return false
	}
	return bool(fb.img.BitAt(x, y))
}

// Image returns the backing image. It is overwritten by later drawing.
func (fb *Framebuffer) Image() image.Image {
	return fb.img
}

// Clear turns every pixel off.
func (fb *Framebuffer) Clear() {
	clear(fb.img.Pix)
}

// DrawText draws s with its top-left corner at (x, y), each font pixel
// enlarged to a scale×scale block. Text running off the buffer is clipped.
func (fb *Framebuffer) DrawText(x, y int16, scale int, s string) {
	if scale < 1 {
		scale = 1
	}
	var d drivers.Displayer = fb
	if scale > 1 {
		d = &scaled{fb: fb, ox: x, oy: y, s: int16(scale)}
	}
	tinyfont.WriteLine(d, fb.font, x, y+fontAscent, s, white)
}

// DrawLine draws a one-pixel line between the two points inclusive,
// clipped to the buffer.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int16) {
	tinydraw.Line(fb, x0, y0, x1, y1, white)
}

// Flush sends the buffer to the panel.
func (fb *Framebuffer) Flush() error {
	if fb.panel == nil {
		return nil
	}
	return fb.panel.Draw(fb.img.Bounds(), fb.img, image.Point{})
}

// scaled maps font pixels onto scale×scale blocks anchored at (ox, oy).
type scaled struct {
	fb     *Framebuffer
	ox, oy int16
	s      int16
}

func (d *scaled) Size() (x, y int16) { return d.fb.Size() }

func (d *scaled) SetPixel(x, y int16, c color.RGBA) {
	bx := d.ox + (x-d.ox)*d.s
	by := d.oy + (y-d.oy)*d.s
	for j := int16(0); j < d.s; j++ {
		for i := int16(0); i < d.s; i++ {
			d.fb.SetPixel(bx+i, by+j, c)
		}
	}
}

func (d *scaled) Display() error { return d.fb.Display() }
