package display

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func litCount(fb *Framebuffer, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if fb.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

func TestFramebufferSize(t *testing.T) {
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	w, h := fb.Size()
	assert.Equal(t, int16(128), w)
	assert.Equal(t, int16(32), h)
	assert.Equal(t, int16(128), fb.Width())
	assert.Zero(t, litCount(fb, fb.Image().Bounds()))
}

func TestFramebufferHorizontalLine(t *testing.T) {
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	fb.DrawLine(0, 20, 63, 20)

	for x := 0; x <= 63; x++ {
		assert.True(t, fb.Pixel(x, 20), "x=%d", x)
	}
	assert.False(t, fb.Pixel(64, 20))
	assert.Equal(t, 64, litCount(fb, fb.Image().Bounds()))
}

func TestFramebufferDiagonalLine(t *testing.T) {
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	fb.DrawLine(5, 5, 0, 0)

	for i := 0; i <= 5; i++ {
		assert.True(t, fb.Pixel(i, i), "i=%d", i)
	}
	assert.Equal(t, 6, litCount(fb, fb.Image().Bounds()))
}

func TestFramebufferLineClipped(t *testing.T) {
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	fb.DrawLine(100, 10, 300, 10)

	assert.Equal(t, 28, litCount(fb, fb.Image().Bounds()))
	assert.True(t, fb.Pixel(127, 10))
}

func TestFramebufferClear(t *testing.T) {
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	fb.DrawLine(0, 0, 127, 31)
	require.NotZero(t, litCount(fb, fb.Image().Bounds()))

	fb.Clear()
	assert.Zero(t, litCount(fb, fb.Image().Bounds()))
}

func TestFramebufferDrawText(t *testing.T) {
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	fb.DrawText(0, 10, 1, "0.99 m")

	// Glyphs sit on the baseline, clear of the bar row below.
	assert.NotZero(t, litCount(fb, image.Rect(0, 0, 64, 20)))
	assert.Zero(t, litCount(fb, image.Rect(0, 20, 128, 32)))
	assert.Zero(t, litCount(fb, image.Rect(64, 0, 128, 32)))
}

func TestFramebufferDrawTextScaled(t *testing.T) {
	one := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	one.DrawText(0, 0, 1, "8")
	two := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	two.DrawText(0, 0, 2, "8")

	n1 := litCount(one, one.Image().Bounds())
	n2 := litCount(two, two.Image().Bounds())
	require.NotZero(t, n1)
	assert.Equal(t, 4*n1, n2)
}

func TestFramebufferFlush(t *testing.T) {
	panel := NewFakePanel()
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, panel)
	fb.DrawLine(0, 20, 9, 20)

	require.NoError(t, fb.Flush())
	require.Equal(t, 1, panel.FrameCount())

	frame := panel.Last()
	assert.Equal(t, image.Rect(0, 0, 128, 32), frame.Bounds())
	assert.True(t, bool(frame.BitAt(9, 20)))
	assert.False(t, bool(frame.BitAt(10, 20)))

	// Later drawing does not alter the recorded frame.
	fb.Clear()
	assert.True(t, bool(frame.BitAt(9, 20)))
}

func TestFramebufferFlushError(t *testing.T) {
	panel := NewFakePanel()
	panel.DrawError = errors.New("i2c nack")
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, panel)

	assert.ErrorIs(t, fb.Flush(), panel.DrawError)
	assert.Zero(t, panel.FrameCount())
}

func TestFramebufferNilPanel(t *testing.T) {
	fb := NewFramebuffer(DefaultWidth, DefaultHeight, nil)
	assert.NoError(t, fb.Flush())
	assert.NoError(t, fb.Display())
}

func TestTextPanel(t *testing.T) {
	var buf bytes.Buffer
	fb := NewFramebuffer(4, 2, NewTextPanel(&buf))
	fb.DrawLine(0, 1, 2, 1)

	require.NoError(t, fb.Flush())
	want := strings.Join([]string{
		"+----+",
		"|    |",
		"|### |",
		"+----+",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}
