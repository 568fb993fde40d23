package testutil

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// Sine returns frames samples of a unit-amplitude sine at freq Hz.
func Sine(freq, sampleRate float64, frames int, amplitude float64) []float64 {
	out := make([]float64, frames)
	w := 2 * math.Pi * freq / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(w*float64(i))
	}
	return out
}

// Noise returns deterministic white noise in [-amplitude, amplitude].
func Noise(seed uint64, frames int, amplitude float64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, frames)
	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}
	return out
}

// Peak returns the largest absolute sample value.
func Peak(s []float64) float64 {
	var p float64
	for _, v := range s {
		p = max(p, math.Abs(v))
	}
	return p
}

// RMS returns the root mean square of s.
func RMS(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(s)))
}

// WriteWAV encodes planar channels as a 16-bit PCM file in a temporary
// directory and returns its path.
func WriteWAV(t *testing.T, name string, sampleRate int, channels [][]float64) string {
	t.Helper()
	require.NotEmpty(t, channels)

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	frames := len(channels[0])
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: len(channels), SampleRate: sampleRate},
		Data:           make([]int, frames*len(channels)),
		SourceBitDepth: 16,
	}
	for ch, data := range channels {
		for i, v := range data {
			v = max(-1, min(1, v))
			buf.Data[i*len(channels)+ch] = int(math.Round(v * 32767))
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, len(channels), 1)
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	return path
}
