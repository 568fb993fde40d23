package main

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-stretch/internal/session"
	"github.com/tphakala/go-audio-stretch/internal/testutil"
	"github.com/tphakala/go-audio-stretch/preset"
)

func openPlayer(t *testing.T) *session.Session {
	t.Helper()
	frames := 8000
	path := testutil.WriteWAV(t, "in.wav", 8000, [][]float64{
		testutil.Sine(220, 8000, frames, 0.5),
		testutil.Sine(330, 8000, frames, 0.5),
	})
	s, err := session.Open(session.Options{Input: path, MaxBlockFrames: 128, Adjust: func(p *preset.Preset) {
		p.Rate = 2
		p.FFTSize = 1024
	}})
	require.NoError(t, err)
	s.Engine.Prepare(8000)
	return s
}

func decodeFloats(p []byte) []float64 {
	out := make([]float64, len(p)/bytesPerFloat32)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(p[i*bytesPerFloat32:])))
	}
	return out
}

func TestEngineReader_FillsWholeFrames(t *testing.T) {
	s := openPlayer(t)
	r := newEngineReader(s.Engine, 128)

	// 300 stereo frames plus 5 stray bytes, in three render blocks.
	p := make([]byte, 300*8+5)
	for i := range p {
		p[i] = 0xff
	}

	var all []float64
	for range 20 {
		n, err := r.Read(p)
		require.NoError(t, err)
		require.Equal(t, len(p), n)
		assert.Equal(t, []byte{0, 0, 0, 0, 0}, p[300*8:], "partial frame is zeroed")
		all = append(all, decodeFloats(p[:300*8])...)
	}

	testutil.AssertNoNaNOrInf(t, all)
	testutil.AssertNotSilent(t, all)
}

func TestEngineReader_MatchesRenderBlock(t *testing.T) {
	a, b := openPlayer(t), openPlayer(t)
	r := newEngineReader(a.Engine, 64)

	p := make([]byte, 64*8)
	out := [][]float64{make([]float64, 64), make([]float64, 64)}
	for range 10 {
		_, err := r.Read(p)
		require.NoError(t, err)
		b.Engine.RenderBlock(out, 64)

		got := decodeFloats(p)
		for i := range 64 {
			assert.InDelta(t, out[0][i], got[2*i], 1e-6)
			assert.InDelta(t, out[1][i], got[2*i+1], 1e-6)
		}
	}
}

func TestController_Keys(t *testing.T) {
	s := openPlayer(t)
	c := controller{eng: s.Engine}
	e := s.Engine

	msg, quit := c.handle(' ')
	assert.False(t, quit)
	assert.Equal(t, "pause on", msg)
	assert.True(t, e.IsPaused())
	c.handle(' ')
	assert.False(t, e.IsPaused())

	msg, _ = c.handle('f')
	assert.Equal(t, "freeze on", msg)
	assert.True(t, e.IsFreezing())

	msg, _ = c.handle('d')
	assert.Equal(t, "dry preview on", msg)
	assert.True(t, e.IsPreviewingDry())

	c.handle('+')
	assert.InDelta(t, 3.0, e.Rate(), 1e-12)
	c.handle('-')
	c.handle('-')
	assert.InDelta(t, 4.0/3, e.Rate(), 1e-12)

	msg, _ = c.handle('l')
	assert.Equal(t, "loop on", msg)
	assert.True(t, e.IsLoopingEnabled())

	msg, quit = c.handle('x')
	assert.Empty(t, msg)
	assert.False(t, quit)

	for _, key := range []byte{'q', ctrlC, escape} {
		_, quit = c.handle(key)
		assert.True(t, quit)
	}
}

func TestController_FFTSizeSteps(t *testing.T) {
	s := openPlayer(t)
	c := controller{eng: s.Engine}
	out := [][]float64{make([]float64, 128), make([]float64, 128)}
	s.Engine.RenderBlock(out, 128)

	msg, _ := c.handle(']')
	assert.Equal(t, "FFT size 2048", msg)
	assert.True(t, s.Engine.IsPriming(), "a live change crossfades")
	assert.Contains(t, status(s.Engine), "crossfading")

	require.NoError(t, s.Engine.SetFFTSize(minFFTSize, true))
	msg, _ = c.handle('[')
	assert.Equal(t, "FFT size stays 128", msg)
	assert.Equal(t, minFFTSize, s.Engine.FFTSize())
}

func TestStatus(t *testing.T) {
	s := openPlayer(t)
	assert.Equal(t, "  0.0%  2x  FFT 1024", status(s.Engine))

	s.Engine.SetPaused(true)
	s.Engine.SetLoopingEnabled(true)
	line := status(s.Engine)
	assert.Contains(t, line, "paused")
	assert.Contains(t, line, "loop")
	assert.NotContains(t, line, "frozen")
}
