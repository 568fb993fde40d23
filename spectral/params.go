// Package spectral holds the spectral-processing parameters shared by the
// engine and its channel stretchers, and the reference paulstretch channel
// stretcher itself.
package spectral

// HarmonicsParams keeps only a comb of harmonics of a base frequency.
type HarmonicsParams struct {
	Count     int     `yaml:"count"`
	Freq      float64 `yaml:"freq_hz"`
	Bandwidth float64 `yaml:"bandwidth_cents"`
	Gauss     bool    `yaml:"gauss"`
}

// PitchShiftParams shifts the spectrum by a ratio expressed in cents.
type PitchShiftParams struct {
	Cents float64 `yaml:"cents"`
}

// FreqShiftParams moves every bin by a fixed number of Hz.
type FreqShiftParams struct {
	Hz float64 `yaml:"hz"`
}

// OctaveParams are the levels of the ratio mix. Each level scales a copy of
// the spectrum pitch-shifted by the ratio in the field name.
type OctaveParams struct {
	Om2 float64 `yaml:"x0_25"`
	Om1 float64 `yaml:"x0_5"`
	O0  float64 `yaml:"x1"`
	O1  float64 `yaml:"x2"`
	O15 float64 `yaml:"x3"`
	O2  float64 `yaml:"x4"`
}

// FilterParams is a band-pass (or band-stop) brick-wall filter with an
// optional high-frequency damping slope.
type FilterParams struct {
	Low   float64 `yaml:"low_hz"`
	High  float64 `yaml:"high_hz"`
	HDamp float64 `yaml:"hdamp"`
	Stop  bool    `yaml:"stop"`
}

// SpreadParams smooths the log spectrum to widen partials.
type SpreadParams struct {
	Bandwidth float64 `yaml:"bandwidth"`
}

// TonalVsNoiseParams subtracts (preserve > 0) or keeps (preserve < 0) the
// smoothed spectral floor.
type TonalVsNoiseParams struct {
	Preserve  float64 `yaml:"preserve"`
	Bandwidth float64 `yaml:"bandwidth"`
}

// CompressorParams flattens the overall spectral level.
type CompressorParams struct {
	Power float64 `yaml:"power"`
}

// ProcessParameters holds the values of every spectral stage. It is a plain
// value type: two snapshots are equal exactly when == says so, which is how
// the engine suppresses redundant updates. Whether a stage runs at all is
// decided by the ProcessOrder, not by these values.
type ProcessParameters struct {
	Harmonics    HarmonicsParams    `yaml:"harmonics"`
	PitchShift   PitchShiftParams   `yaml:"pitch_shift"`
	FreqShift    FreqShiftParams    `yaml:"freq_shift"`
	Octave       OctaveParams       `yaml:"octave"`
	Filter       FilterParams       `yaml:"filter"`
	Spread       SpreadParams       `yaml:"spread"`
	TonalVsNoise TonalVsNoiseParams `yaml:"tonal_vs_noise"`
	Compressor   CompressorParams   `yaml:"compressor"`
}

// DefaultProcessParameters returns neutral settings: every stage that is
// enabled by default leaves a plain signal close to unchanged.
func DefaultProcessParameters() ProcessParameters {
	return ProcessParameters{
		Harmonics:    HarmonicsParams{Count: 10, Freq: 440, Bandwidth: 25},
		Octave:       OctaveParams{O0: 1},
		Filter:       FilterParams{Low: 0, High: 22000},
		Spread:       SpreadParams{Bandwidth: 0.3},
		TonalVsNoise: TonalVsNoiseParams{Preserve: 0.5, Bandwidth: 0.9},
	}
}
