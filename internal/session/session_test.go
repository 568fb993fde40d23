package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stretch "github.com/tphakala/go-audio-stretch"
	"github.com/tphakala/go-audio-stretch/internal/testutil"
	"github.com/tphakala/go-audio-stretch/preset"
	"github.com/tphakala/go-audio-stretch/spectral"
)

func writeInput(t *testing.T, channels int) string {
	t.Helper()
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = testutil.Sine(440*float64(ch+1), 22050, 22050, 0.5)
	}
	return testutil.WriteWAV(t, "in.wav", 22050, data)
}

func TestOpen_Defaults(t *testing.T) {
	path := writeInput(t, 1)

	s, err := Open(Options{Input: path})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Engine.Channels(), "one stretcher per input channel")
	assert.Equal(t, path, s.Engine.AudioFile())
	assert.InDelta(t, 22050.0, s.Engine.InfileSampleRate(), 0)
	assert.InDelta(t, 1.0, s.Engine.InfileLengthSeconds(), 1e-9)
	assert.Equal(t, stretch.DefaultConfig().FFTSize, s.Engine.FFTSize())
	assert.Equal(t, 16, s.Format.BitDepth)
}

func TestOpen_PresetThenAdjust(t *testing.T) {
	path := writeInput(t, 2)

	p := preset.Default(stretch.DefaultConfig())
	p.Rate = 4
	p.FFTSize = 2048
	p.Window = spectral.WindowBlackman
	p.MainVolumeDB = -6
	presetPath := filepath.Join(t.TempDir(), "slow.yaml")
	require.NoError(t, preset.Save(presetPath, p))

	s, err := Open(Options{
		Input:      path,
		PresetPath: presetPath,
		Adjust:     func(p *preset.Preset) { p.Rate = 8 },
	})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Engine.Channels())
	assert.InDelta(t, 8.0, s.Engine.Rate(), 0, "Adjust wins over the preset file")
	assert.Equal(t, 2048, s.Engine.FFTSize())
	assert.Equal(t, spectral.WindowBlackman, s.Engine.FFTWindowType())
	assert.InDelta(t, -6.0, s.Engine.MainVolumeDB(), 0)
}

func TestOpen_StateBlobRoundTrip(t *testing.T) {
	path := writeInput(t, 2)

	first, err := Open(Options{Input: path, Adjust: func(p *preset.Preset) {
		p.Rate = 3
		p.Looping = true
		p.PlayRange = stretch.Range{Start: 0.25, End: 0.75}
	}})
	require.NoError(t, err)

	state, err := first.Capture()
	require.NoError(t, err)

	second, err := Open(Options{Input: path, State: state})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, second.Engine.Rate(), 0)
	assert.True(t, second.Engine.IsLoopingEnabled())
	assert.Equal(t, stretch.Range{Start: 0.25, End: 0.75}, second.Engine.PlayRange())
}

func TestOpen_Errors(t *testing.T) {
	path := writeInput(t, 1)

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{
			name: "missing input",
			opts: Options{Input: filepath.Join(t.TempDir(), "missing.wav")},
		},
		{
			name: "missing preset",
			opts: Options{Input: path, PresetPath: filepath.Join(t.TempDir(), "missing.yaml")},
		},
		{
			name: "bad state",
			opts: Options{Input: path, State: "%%%"},
			want: preset.ErrInvalidPreset,
		},
		{
			name: "adjusted out of range",
			opts: Options{Input: path, Adjust: func(p *preset.Preset) { p.Rate = 0 }},
			want: preset.ErrInvalidPreset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.opts)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestOpen_Renders(t *testing.T) {
	s, err := Open(Options{Input: writeInput(t, 2), MaxBlockFrames: 256, Adjust: func(p *preset.Preset) {
		p.FFTSize = 1024
	}})
	require.NoError(t, err)
	s.Engine.Prepare(22050)

	out := [][]float64{make([]float64, 256), make([]float64, 256)}
	var all []float64
	for range 40 {
		s.Engine.RenderBlock(out, 256)
		all = append(all, out[0]...)
	}
	testutil.AssertNoNaNOrInf(t, all)
	testutil.AssertNotSilent(t, all)
}
