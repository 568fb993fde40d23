package stretch

import (
	"github.com/tphakala/go-audio-stretch/binaural"
	"github.com/tphakala/go-audio-stretch/spectral"
)

// Range is a normalized [Start, End) interval of the input.
type Range struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// FullRange covers the whole input.
var FullRange = Range{Start: 0, End: 1}

// Length returns End - Start.
func (r Range) Length() float64 { return r.End - r.Start }

// IsEmpty reports whether the range has no length.
func (r Range) IsEmpty() bool { return r.End <= r.Start }

// Contains reports whether Start <= x < End.
func (r Range) Contains(x float64) bool { return x >= r.Start && x < r.End }

// Clamp limits both ends to [0,1].
func (r Range) Clamp() Range {
	return Range{Start: max(0, min(1, r.Start)), End: max(0, min(1, r.End))}
}

// SourceInfo describes the decoded input.
type SourceInfo struct {
	SampleRate float64
	Frames     int64
	Channels   int
}

// InputSource is the audio the engine stretches. Implementations decode a
// file or wrap a caller-provided buffer and handle range looping.
//
// The engine calls every method while holding its lock, except the
// position, info and accounting getters used by its lock-free queries,
// which must therefore be safe for concurrent use.
type InputSource interface {
	// Open loads a file, replacing the current input.
	Open(path string) error
	// SetBuffer uses planar in-memory audio as the input.
	SetBuffer(channels [][]float64, sampleRate float64, frames int)

	// Info returns the current input format. Frames is 0 when nothing is
	// loaded.
	Info() SourceInfo

	// ReadNextBlock fills frames frames of every dst channel, wrapping at
	// the active range end when looping and zero-padding past it when not.
	// Output channels beyond the source channel count repeat the last source
	// channel. It returns frames.
	ReadNextBlock(dst [][]float64, frames int) int
	// Skip advances the read position by frames frames.
	Skip(frames int)
	// Seek moves to the normalized position pos. resetFilters drops any
	// loop crossfade state.
	Seek(pos float64, resetFilters bool)

	SetActiveRange(r Range)
	ActiveRange() Range
	SetLoopEnabled(on bool)
	IsLooping() bool
	// LoopCount is the number of times playback wrapped from the range end
	// back to its start.
	LoopCount() int
	// SetXFadeSeconds sets the crossfade applied at the loop seam.
	SetXFadeSeconds(s float64)

	// CurrentPosition returns the read position in frames.
	CurrentPosition() int64
	// DiskReadSampleCount returns the number of frames read by the last
	// ReadNextBlock call.
	DiskReadSampleCount() int64
	// CachedRangesNormalized returns the part of the file held in memory
	// and the active loop range.
	CachedRangesNormalized() (Range, Range)
	// HasEnded reports whether the read position passed the active range
	// end while not looping.
	HasEnded() bool
}

// ChannelStretcher is one channel's spectral time-stretch processor. See
// spectral.Stretcher for the reference implementation.
type ChannelStretcher interface {
	Process(in []float64, frames int) float64
	FillInputFrames() int
	RequiredInputFrames(positionPercent float64) int
	OutputBufferSize() int
	Output() []float64
	SkipFrames() int
	HereIsOnset(onset float64)

	SetBufferSize(n int)
	SetSampleRate(sr float64)
	SetRatio(r float64)
	SetFreezing(on bool)
	IsFreezing() bool
	SetOnsetSensitivity(x float64)
	SetWindowType(w spectral.WindowType)
	SetParameters(p spectral.ProcessParameters)
	SetProcessOrder(o spectral.ProcessOrder)
	SetFreeFilterEnvelope(env *spectral.Envelope)
}

// StretcherFactory creates the stretcher for one channel slot.
type StretcherFactory func(cfg spectral.Config) ChannelStretcher

// BinauralMixer processes the first two channels after every synthesis
// block.
type BinauralMixer interface {
	Process(l, r []float64, n int, positionPercent float64)
	SetParameters(p binaural.Parameters)
}

// MixerFactory creates a BinauralMixer for the input sample rate.
type MixerFactory func(sampleRate float64, p binaural.Parameters) (BinauralMixer, error)

func newSpectralStretcher(cfg spectral.Config) ChannelStretcher {
	return spectral.New(cfg)
}

func newBinauralMixer(sampleRate float64, p binaural.Parameters) (BinauralMixer, error) {
	m, err := binaural.New(sampleRate, p)
	if err != nil {
		return nil, err
	}
	return m, nil
}
