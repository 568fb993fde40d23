package stretch_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stretch "github.com/tphakala/go-audio-stretch"
	"github.com/tphakala/go-audio-stretch/internal/testutil"
	"github.com/tphakala/go-audio-stretch/source"
)

const (
	e2eInputRate  = 44100
	e2eOutputRate = 48000.0
	e2eBlock      = 512
)

func newStereoEngine(t *testing.T, seconds float64, fft int) *stretch.Engine {
	t.Helper()

	frames := int(seconds * e2eInputRate)
	src := source.New()
	src.SetBuffer([][]float64{
		testutil.Sine(220, e2eInputRate, frames, 0.5),
		testutil.Noise(7, frames, 0.25),
	}, e2eInputRate, frames)

	cfg := stretch.DefaultConfig()
	cfg.FFTSize = fft
	cfg.MaxBlockFrames = e2eBlock
	eng, err := stretch.New(src, cfg)
	require.NoError(t, err)
	eng.Prepare(e2eOutputRate)
	return eng
}

func render(eng *stretch.Engine, out [][]float64, blocks int, each func()) {
	for range blocks {
		eng.RenderBlock(out, e2eBlock)
		if each != nil {
			each()
		}
	}
}

func TestEngineEndToEnd_Streams(t *testing.T) {
	eng := newStereoEngine(t, 10, 4096)
	out := [][]float64{make([]float64, e2eBlock), make([]float64, e2eBlock)}

	require.NotPanics(t, func() { eng.RenderBlock(out, e2eBlock) })
	assert.Positive(t, eng.DiskReadSampleCount(), "first block runs the fill loop")

	var positions []float64
	var all []float64
	render(eng, out, 40, func() {
		positions = append(positions, eng.InfilePositionPercent())
		all = append(all, out[0]...)
		all = append(all, out[1]...)
	})

	testutil.AssertMonotonic(t, positions)
	testutil.AssertNoNaNOrInf(t, all)
	testutil.AssertNotSilent(t, all)
	assert.Less(t, testutil.Peak(all), 4.0)
	assert.True(t, eng.IsResampling())
	assert.False(t, eng.HasReachedEnd())
}

func TestEngineEndToEnd_LiveFFTChange(t *testing.T) {
	eng := newStereoEngine(t, 10, 4096)
	out := [][]float64{make([]float64, e2eBlock), make([]float64, e2eBlock)}
	render(eng, out, 8, nil)

	require.NoError(t, eng.SetFFTSize(8192, false))
	assert.True(t, eng.IsPriming())

	render(eng, out, 1, nil)
	assert.True(t, eng.IsBlending())
	assert.Equal(t, 8192, eng.FFTSize())

	var all []float64
	render(eng, out, stretch.CrossfadeFrames/e2eBlock, func() {
		all = append(all, out[0]...)
	})
	assert.False(t, eng.IsBlending())
	assert.False(t, eng.IsPriming())
	assert.Equal(t, int64(1), eng.CrossfadesCompleted())
	testutil.AssertNoNaNOrInf(t, all)
}

func TestEngineEndToEnd_ReachesEnd(t *testing.T) {
	eng := newStereoEngine(t, 0.5, 1024)
	out := [][]float64{make([]float64, e2eBlock), make([]float64, e2eBlock)}

	maxBlocks := int(10*e2eOutputRate) / e2eBlock
	blocks := 0
	for !eng.HasReachedEnd() && blocks < maxBlocks {
		eng.RenderBlock(out, e2eBlock)
		blocks++
	}
	assert.True(t, eng.HasReachedEnd())
	assert.True(t, eng.Input().HasEnded())
}

func TestEngineEndToEnd_LoopLimit(t *testing.T) {
	eng := newStereoEngine(t, 0.25, 1024)
	eng.SetLoopingEnabled(true)
	eng.SetMaxLoops(2)
	out := [][]float64{make([]float64, e2eBlock), make([]float64, e2eBlock)}

	maxBlocks := int(5*e2eOutputRate) / e2eBlock
	for range maxBlocks {
		if eng.HasReachedEnd() {
			break
		}
		eng.RenderBlock(out, e2eBlock)
	}
	assert.True(t, eng.HasReachedEnd())
	assert.Equal(t, 3, eng.Input().LoopCount())
}

func TestEngineEndToEnd_PlayRangeStartsInside(t *testing.T) {
	for _, frames := range []int{100, 441000} {
		for _, start := range []float64{0.29, 0.57, 0.58, 0.294} {
			t.Run(fmt.Sprintf("%d@%g", frames, start), func(t *testing.T) {
				src := source.New()
				src.SetBuffer([][]float64{testutil.Sine(220, e2eInputRate, frames, 0.5)}, e2eInputRate, frames)
				eng, err := stretch.New(src, stretch.DefaultConfig())
				require.NoError(t, err)

				r := stretch.Range{Start: start, End: 0.9}
				require.True(t, eng.SetPlayRange(r, true))
				pos := eng.InfilePositionPercent()
				assert.GreaterOrEqual(t, pos, r.Start)
				assert.Less(t, pos, r.End)

				// Already inside: setting the same range again keeps the position
				require.True(t, eng.SetPlayRange(r, true))
				assert.Equal(t, pos, eng.InfilePositionPercent())
			})
		}
	}
}
