// Package resample implements the streaming sample-rate converter used between
// the synthesis ring buffer (or the raw input in dry preview) and the output
// device.
//
// The converter follows a pull model: the caller asks how many input frames
// are needed to produce an exact number of output frames, fills the returned
// scratch slice, then asks for the output. Interpolation is 4-point cubic
// Hermite; the frames around the read position survive across calls until
// Reset.
package resample

import "math"

// Hermite interpolation constants.
// Formula: y = ((a*x + b)*x + c)*x + d
const (
	hermiteCoeff0_5 = 0.5
	hermiteCoeff1_5 = 1.5
	hermiteCoeff2_5 = 2.5

	// Frames kept before the read position for the 4-point window.
	historyFrames = 1
	// Frames needed after the integer read position.
	lookaheadFrames = 2
)

// Resampler converts interleaved multi-channel audio between two rates.
// It is not safe for concurrent use.
type Resampler struct {
	inRate  float64
	outRate float64
	step    float64 // input frames advanced per output frame

	channels int
	buf      []float64 // interleaved input frames, history first
	frames   int       // valid frames in buf
	pending  int       // frames handed out by Prepare and not yet committed
	pos      float64   // read position in frames relative to buf start
}

// New creates a resampler for the given channel count and rates.
func New(channels int, inRate, outRate float64) *Resampler {
	r := &Resampler{channels: max(channels, 1)}
	r.SetRates(inRate, outRate)
	r.ensure(historyFrames + lookaheadFrames + 1)
	r.Reset()
	return r
}

// SetRates changes the conversion ratio. The filter history is kept; the new
// ratio applies from the next Prepare call.
func (r *Resampler) SetRates(inRate, outRate float64) {
	if inRate <= 0 || outRate <= 0 {
		inRate, outRate = 1, 1
	}
	r.inRate = inRate
	r.outRate = outRate
	r.step = inRate / outRate
}

// Rates returns the configured input and output rates.
func (r *Resampler) Rates() (inRate, outRate float64) {
	return r.inRate, r.outRate
}

// Ratio returns output rate / input rate.
func (r *Resampler) Ratio() float64 {
	return 1 / r.step
}

// Reset clears the filter history. It must be called after a seek or any
// other discontinuity in the input stream.
func (r *Resampler) Reset() {
	r.frames = historyFrames
	r.pending = 0
	r.pos = historyFrames
	clear(r.buf[:min(len(r.buf), historyFrames*r.channels)])
}

// Reserve grows internal storage so that Prepare calls producing up to
// maxOutFrames frames do not allocate.
func (r *Resampler) Reserve(channels, maxOutFrames int) {
	if channels != r.channels {
		r.setChannels(channels)
	}
	r.ensure(r.framesFor(maxOutFrames) + historyFrames + lookaheadFrames + 1)
}

// Prepare returns the number of input frames required to produce outFrames
// output frames, and the interleaved scratch slice the caller must fill with
// exactly that many frames before calling ResampleOut.
func (r *Resampler) Prepare(outFrames, channels int) (int, []float64) {
	if channels != r.channels {
		r.setChannels(channels)
	}

	needed := 0
	if outFrames > 0 {
		last := r.pos + float64(outFrames-1)*r.step
		needed = max(0, int(math.Floor(last))+lookaheadFrames+1-r.frames)
	}

	r.ensure(r.frames + needed)
	r.pending = needed

	start := r.frames * r.channels
	return needed, r.buf[start : start+needed*r.channels]
}

// ResampleOut commits inFrames frames written into the slice returned by
// Prepare and writes outFrames interleaved frames into out. It returns the
// number of frames produced. Missing input (inFrames smaller than requested)
// is treated as silence.
func (r *Resampler) ResampleOut(out []float64, inFrames, outFrames, channels int) int {
	if channels != r.channels || outFrames <= 0 {
		return 0
	}

	inFrames = min(max(inFrames, 0), r.pending)
	if inFrames < r.pending {
		start := (r.frames + inFrames) * channels
		clear(r.buf[start : (r.frames+r.pending)*channels])
	}
	r.frames += r.pending
	r.pending = 0

	outFrames = min(outFrames, len(out)/channels)
	for i := range outFrames {
		idx := int(r.pos)
		x := r.pos - float64(idx)
		for ch := range channels {
			out[i*channels+ch] = r.interpolate(idx, ch, x)
		}
		r.pos += r.step
	}

	r.discardConsumed()

	return outFrames
}

// interpolate performs cubic Hermite interpolation between frame idx and
// idx+1 of channel ch.
func (r *Resampler) interpolate(idx, ch int, x float64) float64 {
	y0 := r.sample(idx-1, ch) // oldest
	y1 := r.sample(idx, ch)
	y2 := r.sample(idx+1, ch)
	y3 := r.sample(idx+2, ch) // newest

	if x == 0 {
		return y1
	}

	coefA := -hermiteCoeff0_5*y0 + hermiteCoeff1_5*y1 - hermiteCoeff1_5*y2 + hermiteCoeff0_5*y3
	coefB := y0 - hermiteCoeff2_5*y1 + 2*y2 - hermiteCoeff0_5*y3
	coefC := -hermiteCoeff0_5*y0 + hermiteCoeff0_5*y2
	coefD := y1

	return ((coefA*x+coefB)*x+coefC)*x + coefD
}

func (r *Resampler) sample(frame, ch int) float64 {
	if frame < 0 || frame >= r.frames {
		return 0
	}
	return r.buf[frame*r.channels+ch]
}

// discardConsumed drops frames that can no longer be part of an
// interpolation window, keeping the history frame in front of pos.
func (r *Resampler) discardConsumed() {
	drop := min(int(r.pos)-historyFrames, r.frames)
	if drop <= 0 {
		return
	}

	copy(r.buf, r.buf[drop*r.channels:r.frames*r.channels])
	r.frames -= drop
	r.pos -= float64(drop)
}

// setChannels switches the interleaving layout and drops all history.
func (r *Resampler) setChannels(channels int) {
	r.channels = max(channels, 1)
	r.buf = nil
	r.ensure(historyFrames + lookaheadFrames + 1)
	r.Reset()
}

func (r *Resampler) framesFor(outFrames int) int {
	return int(math.Ceil(float64(outFrames)*r.step)) + 1
}

func (r *Resampler) ensure(frames int) {
	need := frames * r.channels
	if need <= len(r.buf) {
		return
	}

	grown := make([]float64, need)
	copy(grown, r.buf)
	r.buf = grown
}
