package spectral

import (
	"fmt"
	"slices"
	"strings"
)

// SpectrumProcessType identifies one spectral stage.
type SpectrumProcessType int

const (
	Harmonics SpectrumProcessType = iota
	TonalVsNoise
	FreqShift
	PitchShift
	RatioMix
	Spread
	Filter
	Compressor
	FreeFilter

	numProcessTypes
)

var processTypeNames = [numProcessTypes]string{
	Harmonics:    "harmonics",
	TonalVsNoise: "tonal_vs_noise",
	FreqShift:    "freq_shift",
	PitchShift:   "pitch_shift",
	RatioMix:     "ratio_mix",
	Spread:       "spread",
	Filter:       "filter",
	Compressor:   "compressor",
	FreeFilter:   "free_filter",
}

func (t SpectrumProcessType) String() string {
	if t < 0 || t >= numProcessTypes {
		return fmt.Sprintf("SpectrumProcessType(%d)", int(t))
	}
	return processTypeNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t SpectrumProcessType) MarshalText() ([]byte, error) {
	if t < 0 || t >= numProcessTypes {
		return nil, fmt.Errorf("unknown spectrum process type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SpectrumProcessType) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range processTypeNames {
		if n == name {
			*t = SpectrumProcessType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown spectrum process type %q", name)
}

// SpectrumProcess is one stage of the process order.
type SpectrumProcess struct {
	Type    SpectrumProcessType `yaml:"type"`
	Enabled bool                `yaml:"enabled"`
}

// ProcessOrder is the ordered list of spectral stages. A published order is
// never modified in place: the engine hands the same slice to every
// stretcher and swaps in a new one to change it.
type ProcessOrder []SpectrumProcess

// NumOrderPresets is the number of built-in stage orderings.
const NumOrderPresets = 3

var orderPresets = [NumOrderPresets][numProcessTypes]SpectrumProcessType{
	{Harmonics, PitchShift, FreqShift, Spread, TonalVsNoise, Filter, FreeFilter, RatioMix, Compressor},
	{PitchShift, Harmonics, FreqShift, Spread, TonalVsNoise, Filter, FreeFilter, RatioMix, Compressor},
	{RatioMix, PitchShift, Harmonics, FreqShift, Spread, TonalVsNoise, Filter, FreeFilter, Compressor},
}

var defaultEnabled = [numProcessTypes]bool{
	FreqShift:  true,
	PitchShift: true,
	RatioMix:   true,
	Filter:     true,
	Compressor: true,
}

// DefaultProcessOrder returns preset 0 with the default stage enables.
func DefaultProcessOrder() ProcessOrder {
	order := make(ProcessOrder, 0, numProcessTypes)
	for _, t := range orderPresets[0] {
		order = append(order, SpectrumProcess{Type: t, Enabled: defaultEnabled[t]})
	}
	return order
}

// WithPreset returns a copy of o rearranged into preset id. Enable flags
// travel with their stage. Stages missing from o use their default enable.
func (o ProcessOrder) WithPreset(id int) (ProcessOrder, error) {
	if id < 0 || id >= NumOrderPresets {
		return nil, fmt.Errorf("spectral order preset %d out of range [0,%d)", id, NumOrderPresets)
	}

	out := make(ProcessOrder, 0, numProcessTypes)
	for _, t := range orderPresets[id] {
		on := defaultEnabled[t]
		if i := o.index(t); i >= 0 {
			on = o[i].Enabled
		}
		out = append(out, SpectrumProcess{Type: t, Enabled: on})
	}
	return out, nil
}

// WithEnabled returns a copy of o with stage t switched on or off.
func (o ProcessOrder) WithEnabled(t SpectrumProcessType, enabled bool) ProcessOrder {
	out := slices.Clone(o)
	if i := out.index(t); i >= 0 {
		out[i].Enabled = enabled
	}
	return out
}

// IsEnabled reports whether stage t is present and enabled.
func (o ProcessOrder) IsEnabled(t SpectrumProcessType) bool {
	i := o.index(t)
	return i >= 0 && o[i].Enabled
}

// Equal reports whether two orders list the same stages with the same flags.
func (o ProcessOrder) Equal(other ProcessOrder) bool {
	return slices.Equal(o, other)
}

// Validate checks that every stage appears exactly once.
func (o ProcessOrder) Validate() error {
	var seen [numProcessTypes]bool
	for _, p := range o {
		if p.Type < 0 || p.Type >= numProcessTypes {
			return fmt.Errorf("unknown spectrum process type %d", int(p.Type))
		}
		if seen[p.Type] {
			return fmt.Errorf("spectrum process %s listed twice", p.Type)
		}
		seen[p.Type] = true
	}
	if len(o) != int(numProcessTypes) {
		return fmt.Errorf("process order has %d stages, want %d", len(o), numProcessTypes)
	}
	return nil
}

func (o ProcessOrder) index(t SpectrumProcessType) int {
	return slices.IndexFunc(o, func(p SpectrumProcess) bool { return p.Type == t })
}
