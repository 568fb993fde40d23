package stretch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// levelBySize gives every FFT size its own constant output level so the
// blend between two sizes is visible in the output.
func levelBySize(bufsize int) float64 {
	switch bufsize {
	case 64:
		return 0.2
	case 128:
		return 0.6
	default:
		return -0.2
	}
}

// renderFrames renders n blocks and returns channel 0 concatenated.
func renderFrames(e *Engine, blocks int) []float64 {
	out := newOut(1, testBlock)
	var all []float64
	for range blocks {
		e.RenderBlock(out, testBlock)
		all = append(all, out[0]...)
	}
	return all
}

func TestCrossfade_RequestStates(t *testing.T) {
	x := newCrossfade(2, 16)

	assert.False(t, x.request(64, 64), "same size is a no-op")
	assert.Equal(t, xfadeIdle, x.state)

	require.True(t, x.request(128, 64))
	assert.Equal(t, xfadePriming, x.state)
	assert.Equal(t, 128, x.requested)

	// While priming the target can still change or be cancelled.
	require.True(t, x.request(256, 64))
	assert.Equal(t, 256, x.requested)
	require.True(t, x.request(64, 64))
	assert.Equal(t, xfadeIdle, x.state)

	x.request(128, 64)
	x.state = xfadeBlending
	require.True(t, x.request(256, 128))
	assert.Equal(t, xfadeBlending, x.state, "a running blend is never restarted")
	assert.Equal(t, 256, x.deferred)
	assert.False(t, x.request(256, 128))

	for range 15 {
		assert.False(t, x.advance())
	}
	assert.True(t, x.advance())
	assert.Equal(t, xfadeIdle, x.state)
	assert.Equal(t, 1, x.completed)

	require.True(t, x.takeDeferred(128))
	assert.Equal(t, xfadePriming, x.state)
	assert.Equal(t, 256, x.requested)
	assert.Zero(t, x.deferred)
}

func TestCrossfade_Blend(t *testing.T) {
	x := newCrossfade(1, 4)
	x.capture([]float64{1, 1, 1, 1}, 1)
	x.state = xfadeBlending

	var got []float64
	for range 4 {
		got = append(got, x.blend(0, 0))
		x.advance()
	}
	assert.Equal(t, []float64{1, 0.75, 0.5, 0.25}, got)
}

func TestEngine_LiveFFTChangeCrossfades(t *testing.T) {
	e, _, _ := newTestEngine(t, 1, 64, levelBySize)
	before := renderFrames(e, 2)
	for _, v := range before {
		require.InDelta(t, 0.2, v, 1e-12)
	}

	require.NoError(t, e.SetFFTSize(128, false))
	assert.True(t, e.IsPriming())
	assert.Equal(t, 64, e.FFTSize(), "the old size plays until the next block")

	blend := renderFrames(e, 1)
	assert.True(t, e.IsBlending())
	assert.Equal(t, 128, e.FFTSize())

	blend = append(blend, renderFrames(e, 3)...)
	assert.False(t, e.IsBlending())
	assert.False(t, e.IsPriming())
	assert.Equal(t, int64(1), e.CrossfadesCompleted())

	// Linear ramp from the old level to the new one over exactly 256 frames.
	require.Len(t, blend, 256)
	maxStep := 0.4/256 + 1e-12
	prev := before[len(before)-1]
	for k, v := range blend {
		assert.InDelta(t, 0.2+0.4*float64(k)/256, v, 1e-12, "frame %d", k)
		assert.LessOrEqual(t, math.Abs(v-prev), maxStep)
		prev = v
	}

	after := renderFrames(e, 1)
	for _, v := range after {
		assert.InDelta(t, 0.6, v, 1e-12)
	}
}

func TestEngine_FFTChangeDuringBlendIsDeferred(t *testing.T) {
	e, _, _ := newTestEngine(t, 1, 64, levelBySize)
	renderFrames(e, 1)

	require.NoError(t, e.SetFFTSize(128, false))
	renderFrames(e, 1)
	require.True(t, e.IsBlending())

	require.NoError(t, e.SetFFTSize(256, false))
	require.NoError(t, e.SetFFTSize(512, false))
	assert.True(t, e.IsBlending(), "the running blend continues")
	assert.Equal(t, 128, e.FFTSize())

	renderFrames(e, 3)
	assert.Equal(t, int64(1), e.CrossfadesCompleted())
	assert.True(t, e.IsPriming(), "the last deferred size starts after the blend")

	renderFrames(e, 4)
	assert.Equal(t, int64(2), e.CrossfadesCompleted())
	assert.Equal(t, 512, e.FFTSize())
	assert.False(t, e.IsBlending())
}

func TestEngine_FFTChangeCancelledWhilePriming(t *testing.T) {
	e, _, _ := newTestEngine(t, 1, 64, levelBySize)
	renderFrames(e, 1)

	require.NoError(t, e.SetFFTSize(128, false))
	require.NoError(t, e.SetFFTSize(64, false))
	assert.False(t, e.IsPriming())

	for _, v := range renderFrames(e, 2) {
		assert.InDelta(t, 0.2, v, 1e-12)
	}
	assert.Zero(t, e.CrossfadesCompleted())
}

func TestEngine_ForcedFFTChangeIsImmediate(t *testing.T) {
	e, _, _ := newTestEngine(t, 1, 64, levelBySize)
	renderFrames(e, 1)

	before := e.ParamChangeCount()
	require.NoError(t, e.SetFFTSize(128, true))
	assert.Equal(t, 128, e.FFTSize())
	assert.False(t, e.IsPriming())
	assert.Equal(t, before+1, e.ParamChangeCount())

	for _, v := range renderFrames(e, 1) {
		assert.InDelta(t, 0.6, v, 1e-12)
	}
}

func TestEngine_FFTChangeBeforeStreaming(t *testing.T) {
	in := newFakeInput(testRate, 1000, 0)
	e, err := New(in, DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, e.SetFFTSize(1024, false))
	assert.Equal(t, 1024, e.FFTSize())
	assert.False(t, e.IsPriming())

	require.ErrorIs(t, e.SetFFTSize(8, false), ErrInvalidFFTSize)
}

func TestApplyGainRamp(t *testing.T) {
	out := [][]float64{{1, 1, 1, 1}, {2, 2, 2, 2}}
	applyGainRamp(out, 4, 1, 0)

	assert.Equal(t, []float64{1, 0.75, 0.5, 0.25}, out[0])
	assert.Equal(t, []float64{2, 1.5, 1, 0.5}, out[1])

	clearBlock(out, 2)
	assert.Equal(t, []float64{0, 0, 0.5, 0.25}, out[0])
}
