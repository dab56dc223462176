package echo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/rangefinder/internal/sample"
)

// recordingSink collects pushed samples; Full makes it refuse them.
type recordingSink struct {
	Samples []sample.Sample
	Full    bool
}

func (r *recordingSink) Push(s sample.Sample) bool {
	if r.Full {
		return false
	}
	r.Samples = append(r.Samples, s)
	return true
}

type countingReleaser struct {
	n int
}

func (c *countingReleaser) Release() { c.n++ }

func us(n int64) Timestamp {
	return Timestamp(time.Duration(n) * time.Microsecond)
}

func rise(at Timestamp) Edge { return Edge{Rising: true, At: at} }
func fall(at Timestamp) Edge { return Edge{Rising: false, At: at} }

func TestDistanceFormula(t *testing.T) {
	cases := []struct {
		width time.Duration
		want  float64
	}{
		{58 * time.Microsecond, 0.000058 * SpeedOfSound / 2},
		{5800 * time.Microsecond, 0.0058 * SpeedOfSound / 2},
		{23529 * time.Microsecond, 0.023529 * SpeedOfSound / 2},
		{time.Nanosecond, 1e-9 * SpeedOfSound / 2},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Distance(tc.width, SpeedOfSound), 1e-12, "width %v", tc.width)
	}
}

func TestCaptureValidCycle(t *testing.T) {
	sink := &recordingSink{}
	rel := &countingReleaser{}
	c := NewCapture(SpeedOfSound, sink, rel)

	c.HandleEdge(rise(us(0)))
	assert.Equal(t, AwaitingFall, c.State())

	c.HandleEdge(fall(us(5800)))
	assert.Equal(t, Idle, c.State())

	require.Len(t, sink.Samples, 1)
	s := sink.Samples[0]
	assert.InDelta(t, 0.9868, s.Meters, 1e-4)
	assert.InDelta(t, 0.0058*340.29/2, s.Meters, 1e-12)
	assert.Equal(t, 5800*time.Microsecond, s.PulseWidth)
	assert.Equal(t, 5800*time.Microsecond, s.At)
	assert.Equal(t, 1, rel.n)
	assert.Equal(t, Stats{Completed: 1}, c.Stats())
}

func TestCaptureFallNotAfterRiseDiscarded(t *testing.T) {
	for _, fallAt := range []Timestamp{us(1000), us(999), 0} {
		sink := &recordingSink{}
		rel := &countingReleaser{}
		c := NewCapture(SpeedOfSound, sink, rel)

		c.HandleEdge(rise(us(1000)))
		c.HandleEdge(fall(fallAt))

		assert.Empty(t, sink.Samples, "fall at %v", time.Duration(fallAt))
		assert.Equal(t, Idle, c.State())
		assert.Equal(t, uint64(1), c.Stats().Inverted)
		assert.Zero(t, rel.n)
	}
}

func TestCaptureSpuriousFallIgnored(t *testing.T) {
	sink := &recordingSink{}
	c := NewCapture(SpeedOfSound, sink, nil)

	c.HandleEdge(fall(us(500)))

	assert.Empty(t, sink.Samples)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, uint64(1), c.Stats().Spurious)

	// A second fall after a completed cycle is also spurious.
	c.HandleEdge(rise(us(1000)))
	c.HandleEdge(fall(us(2000)))
	c.HandleEdge(fall(us(3000)))
	assert.Len(t, sink.Samples, 1)
	assert.Equal(t, uint64(2), c.Stats().Spurious)
}

func TestCaptureRepeatedRiseUsesNewest(t *testing.T) {
	sink := &recordingSink{}
	c := NewCapture(SpeedOfSound, sink, nil)

	c.HandleEdge(rise(us(0)))
	c.HandleEdge(rise(us(10000)))
	assert.Equal(t, AwaitingFall, c.State())

	c.HandleEdge(fall(us(12000)))

	require.Len(t, sink.Samples, 1)
	assert.Equal(t, 2000*time.Microsecond, sink.Samples[0].PulseWidth)
	assert.InDelta(t, Distance(2*time.Millisecond, SpeedOfSound), sink.Samples[0].Meters, 1e-12)
	assert.Equal(t, uint64(1), c.Stats().Abandoned)
}

func TestCaptureMissedEchoRecovers(t *testing.T) {
	sink := &recordingSink{}
	c := NewCapture(SpeedOfSound, sink, nil)

	// Cycle 1: rise, no fall ever arrives.
	c.HandleEdge(rise(us(0)))
	assert.Empty(t, sink.Samples)

	// Cycle 2: a full valid echo.
	c.HandleEdge(rise(us(100000)))
	c.HandleEdge(fall(us(105800)))

	require.Len(t, sink.Samples, 1)
	assert.InDelta(t, 0.0058*SpeedOfSound/2, sink.Samples[0].Meters, 1e-12)
	assert.Equal(t, Idle, c.State())
}

func TestCaptureSinkFullDoesNotBlock(t *testing.T) {
	sink := &recordingSink{Full: true}
	rel := &countingReleaser{}
	c := NewCapture(SpeedOfSound, sink, rel)

	c.HandleEdge(rise(us(0)))
	c.HandleEdge(fall(us(100)))

	assert.Empty(t, sink.Samples)
	assert.Equal(t, Stats{Completed: 1, Dropped: 1}, c.Stats())
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1, rel.n)
}

func TestCaptureWithChannel(t *testing.T) {
	ch, err := sample.NewChannel(2)
	require.NoError(t, err)
	c := NewCapture(SpeedOfSound, ch, nil)

	for i := int64(0); i < 4; i++ {
		base := i * 100000
		c.HandleEdge(rise(us(base)))
		c.HandleEdge(fall(us(base + 1000*(i+1))))
	}

	// Drop-oldest: only the last two cycles remain.
	assert.Equal(t, uint64(2), ch.Dropped())
	s, ok := ch.TryPop()
	require.True(t, ok)
	assert.Equal(t, 3*time.Millisecond, s.PulseWidth)
	s, ok = ch.TryPop()
	require.True(t, ok)
	assert.Equal(t, 4*time.Millisecond, s.PulseWidth)
}

func TestPulseWidth(t *testing.T) {
	w, err := PulseWidth(us(10), us(20))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Microsecond, w)

	_, err = PulseWidth(us(20), us(20))
	assert.ErrorIs(t, err, ErrTimingInversion)

	_, err = PulseWidth(us(20), us(10))
	assert.ErrorIs(t, err, ErrTimingInversion)
}

func TestEdgeStateString(t *testing.T) {
	assert.Equal(t, "IDLE", Idle.String())
	assert.Equal(t, "AWAITING_FALL", AwaitingFall.String())
	assert.Equal(t, "UNKNOWN", EdgeState(9).String())
}
