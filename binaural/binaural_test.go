package binaural

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-stretch/internal/testutil"
)

func TestParameters_BeatAt(t *testing.T) {
	p := Parameters{StartHz: 2, EndHz: 10}
	assert.InDelta(t, 2.0, p.BeatAt(0), 0)
	assert.InDelta(t, 6.0, p.BeatAt(50), 1e-12)
	assert.InDelta(t, 10.0, p.BeatAt(100), 0)
	assert.InDelta(t, 10.0, p.BeatAt(250), 0, "position is clamped")
}

func TestMixer_DisabledIsPassthrough(t *testing.T) {
	m, err := New(44100, DefaultParameters())
	require.NoError(t, err)

	l := testutil.Sine(440, 44100, 512, 0.5)
	r := testutil.Sine(660, 44100, 512, 0.5)
	wantL := append([]float64(nil), l...)
	wantR := append([]float64(nil), r...)

	m.Process(l, r, 512, 10)
	assert.Equal(t, wantL, l)
	assert.Equal(t, wantR, r)

	m.Params.Enabled = true
	m.Params.StartHz, m.Params.EndHz = 0, 0
	m.Process(l, r, 512, 10)
	assert.Equal(t, wantL, l, "zero beat frequency leaves the signal alone")
}

func TestMixer_ShiftsChannelsApart(t *testing.T) {
	const sr = 48000.0
	const frames = 48000

	m, err := New(sr, Parameters{Enabled: true, Mode: LeftRight, StartHz: 20, EndHz: 20})
	require.NoError(t, err)
	assert.InDelta(t, sr, m.SampleRate(), 0)

	l := testutil.Sine(1000, sr, frames, 0.5)
	r := testutil.Sine(1000, sr, frames, 0.5)
	m.Process(l, r, frames, 0)

	testutil.AssertNoNaNOrInf(t, l)
	testutil.AssertNoNaNOrInf(t, r)

	// Skip the Hilbert filter warm-up, then compare against the ideal
	// 1010 Hz / 990 Hz tones.
	tail := frames / 2
	assert.Greater(t, correlation(l[tail:], 1010, sr, tail), 0.9)
	assert.Greater(t, correlation(r[tail:], 990, sr, tail), 0.9)
	assert.InDelta(t, 0.5/math.Sqrt2, testutil.RMS(l[tail:]), 0.05)
}

func TestMixer_MonoBlend(t *testing.T) {
	m, err := New(44100, Parameters{Enabled: true, Mono: 1, StartHz: 8, EndHz: 8})
	require.NoError(t, err)

	l := testutil.Sine(500, 44100, 4096, 0.5)
	r := make([]float64, 4096)
	m.Process(l, r, 4096, 0)

	// With a full mono blend both channels carry the same source.
	assert.InDelta(t, testutil.RMS(l[2048:]), testutil.RMS(r[2048:]), 0.02)
}

// correlation returns the normalized peak correlation of s against a
// sine/cosine pair at freq, started at sample offset.
func correlation(s []float64, freq, sr float64, offset int) float64 {
	var cs, sn, energy float64
	for i, v := range s {
		ph := 2 * math.Pi * freq * float64(i+offset) / sr
		cs += v * math.Cos(ph)
		sn += v * math.Sin(ph)
		energy += v * v
	}
	return math.Sqrt(cs*cs+sn*sn) / math.Sqrt(energy*float64(len(s))/2)
}
