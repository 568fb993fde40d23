// Package binaural implements the binaural-beat mixer applied to the first
// two output channels after each synthesis block.
package binaural

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"
)

// StereoMode selects which channel is shifted up.
type StereoMode int

const (
	// LeftRight shifts the left channel up and the right channel down.
	LeftRight StereoMode = iota
	// RightLeft shifts the right channel up and the left channel down.
	RightLeft
)

// Parameters configure the mixer. The beat frequency glides linearly from
// StartHz at the start of the input to EndHz at its end.
type Parameters struct {
	Enabled bool       `yaml:"enabled"`
	Mode    StereoMode `yaml:"mode"`
	// Mono blends both channels toward their average before shifting, in [0,1].
	Mono    float64 `yaml:"mono"`
	StartHz float64 `yaml:"start_hz"`
	EndHz   float64 `yaml:"end_hz"`
}

// DefaultParameters returns a disabled mixer with a 4 Hz beat.
func DefaultParameters() Parameters {
	return Parameters{Mode: LeftRight, Mono: 0.5, StartHz: 4, EndHz: 4}
}

// BeatAt returns the beat frequency at input position positionPercent in
// [0,100].
func (p Parameters) BeatAt(positionPercent float64) float64 {
	t := max(0, min(1, positionPercent/100))
	return p.StartHz + (p.EndHz-p.StartHz)*t
}

// Mixer applies Parameters to a stereo pair of blocks in place.
type Mixer struct {
	Params Parameters

	sampleRate float64
	left       *modulation.FrequencyShifter
	right      *modulation.FrequencyShifter
}

// New creates a mixer for the given sample rate.
func New(sampleRate float64, p Parameters) (*Mixer, error) {
	left, err := modulation.NewFrequencyShifter(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create left shifter: %w", err)
	}
	right, err := modulation.NewFrequencyShifter(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create right shifter: %w", err)
	}

	return &Mixer{Params: p, sampleRate: sampleRate, left: left, right: right}, nil
}

// SetParameters replaces the mixer parameters.
func (m *Mixer) SetParameters(p Parameters) { m.Params = p }

// SampleRate returns the rate the mixer was created with.
func (m *Mixer) SampleRate() float64 { return m.sampleRate }

// Reset clears the shifter state.
func (m *Mixer) Reset() {
	m.left.Reset()
	m.right.Reset()
}

// Process mixes n frames of l and r in place. positionPercent is the input
// position in [0,100] used to pick the beat frequency.
func (m *Mixer) Process(l, r []float64, n int, positionPercent float64) {
	p := m.Params
	n = min(n, len(l), len(r))

	beat := p.BeatAt(positionPercent)
	if !p.Enabled || !(beat > 0) || n == 0 {
		return
	}

	if mono := max(0, min(1, p.Mono)); mono > 0 {
		for i := range n {
			avg := 0.5 * (l[i] + r[i])
			l[i] = l[i]*(1-mono) + avg*mono
			r[i] = r[i]*(1-mono) + avg*mono
		}
	}

	// SetShiftHz only rejects non-positive or non-finite shifts.
	_ = m.left.SetShiftHz(beat / 2)
	_ = m.right.SetShiftHz(beat / 2)

	for i := range n {
		lu, ld := m.left.ProcessSample(l[i])
		ru, rd := m.right.ProcessSample(r[i])

		switch p.Mode {
		case RightLeft:
			l[i], r[i] = ld*math.Sqrt2, ru*math.Sqrt2
		default:
			l[i], r[i] = lu*math.Sqrt2, rd*math.Sqrt2
		}
	}
}
