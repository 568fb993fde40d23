package spectral

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-audio-stretch/internal/simdops"
)

const (
	// hinvSqrt2 is (1 + 1/sqrt(2)) / 2, the amplitude-modulation correction
	// for two overlapping windowed output buffers.
	hinvSqrt2 = 0.853553390593
	ampFactor = 2.0

	onsetThresholdLow = 1e-3
	onsetBandHz       = 500.0
	onsetFloor        = 1e-5
)

// Config describes a new Stretcher.
type Config struct {
	Ratio      float64
	BufferSize int
	Window     WindowType
	Channel    int
	SampleRate float64
}

// Stretcher is a single-channel paulstretch processor.
//
// Every call to Process consumes zero, one or two input blocks of
// BufferSize frames and produces one output block of BufferSize frames. The
// time axis is driven by the stretch ratio: the caller asks
// RequiredInputFrames how much new input the next call wants and SkipFrames
// how much input to jump over.
//
// A Stretcher is not safe for concurrent use.
type Stretcher struct {
	channel    int
	sampleRate float64
	ratio      float64
	bufsize    int
	window     WindowType
	onsetSens  float64
	params     ProcessParameters
	order      ProcessOrder
	envelope   *Envelope
	freezing   bool

	remained     float64
	onsetCredit  float64
	skip         int
	requireNew   bool
	positionPerc float64

	veryOld, old, cur []float64
	outBuf, oldOut    []float64

	win      []float64
	fft      *fourier.FFT
	smp      []float64
	coeffs   []complex128
	freq     []float64
	anaFreq  []float64
	anaOld   []float64
	scratch  [4][]float64
	rng      *rand.Rand
	ops      *simdops.Ops[float64]
	seedBase uint64
}

// New creates a Stretcher. Zero or negative fields fall back to usable
// defaults: ratio 1, 4096 frames, 44.1 kHz.
func New(cfg Config) *Stretcher {
	s := &Stretcher{
		channel:    cfg.Channel,
		sampleRate: cfg.SampleRate,
		ratio:      cfg.Ratio,
		window:     cfg.Window,
		params:     DefaultProcessParameters(),
		order:      DefaultProcessOrder(),
		ops:        simdops.For[float64](),
		seedBase:   uint64(cfg.Channel) + 1,
	}
	if s.sampleRate <= 0 {
		s.sampleRate = 44100
	}
	if s.ratio <= 0 {
		s.ratio = 1
	}
	if !s.window.Valid() {
		s.window = DefaultWindow
	}

	size := cfg.BufferSize
	if size <= 0 {
		size = 4096
	}
	s.SetBufferSize(size)

	return s
}

// SetBufferSize changes the block size. All history is dropped.
func (s *Stretcher) SetBufferSize(n int) {
	n = max(n, 8)
	if n != s.bufsize {
		s.bufsize = n
		s.veryOld = make([]float64, n)
		s.old = make([]float64, n)
		s.cur = make([]float64, n)
		s.outBuf = make([]float64, n)
		s.oldOut = make([]float64, 2*n)
		s.smp = make([]float64, 2*n)
		s.coeffs = make([]complex128, n+1)
		s.freq = make([]float64, n)
		s.anaFreq = make([]float64, n)
		s.anaOld = make([]float64, n)
		for i := range s.scratch {
			s.scratch[i] = make([]float64, n)
		}
		s.fft = fourier.NewFFT(2 * n)
		s.win = s.window.coefficients(2 * n)
	}
	s.resetState()
}

func (s *Stretcher) resetState() {
	clear(s.veryOld)
	clear(s.old)
	clear(s.cur)
	clear(s.outBuf)
	clear(s.oldOut)
	clear(s.anaFreq)
	clear(s.anaOld)
	s.remained = 0
	s.onsetCredit = 0
	s.skip = 0
	s.requireNew = false
	s.rng = rand.New(rand.NewPCG(s.seedBase, 0x7061756c))
}

// SetSampleRate sets the input sample rate used to place frequencies.
func (s *Stretcher) SetSampleRate(sr float64) {
	if sr > 0 {
		s.sampleRate = sr
	}
}

// SetRatio sets the stretch ratio (output duration / input duration).
func (s *Stretcher) SetRatio(r float64) {
	if r > 0 {
		s.ratio = r
	}
}

// SetWindowType changes the analysis window.
func (s *Stretcher) SetWindowType(w WindowType) {
	if !w.Valid() || w == s.window {
		return
	}
	s.window = w
	s.win = w.coefficients(2 * s.bufsize)
}

// SetOnsetSensitivity sets onset detection sensitivity in [0,1]; 0 disables it.
func (s *Stretcher) SetOnsetSensitivity(x float64) {
	s.onsetSens = max(0, min(1, x))
}

// SetParameters replaces the stage parameters.
func (s *Stretcher) SetParameters(p ProcessParameters) { s.params = p }

// SetProcessOrder replaces the stage order. The slice is kept, not copied.
func (s *Stretcher) SetProcessOrder(o ProcessOrder) { s.order = o }

// SetFreeFilterEnvelope sets the shared FreeFilter curve.
func (s *Stretcher) SetFreeFilterEnvelope(env *Envelope) { s.envelope = env }

// SetFreezing holds (true) or releases (false) the current input position.
func (s *Stretcher) SetFreezing(on bool) { s.freezing = on }

// IsFreezing reports the freeze flag.
func (s *Stretcher) IsFreezing() bool { return s.freezing }

// BufferSize returns the current block size.
func (s *Stretcher) BufferSize() int { return s.bufsize }

// OutputBufferSize is the number of frames in Output after each Process.
func (s *Stretcher) OutputBufferSize() int { return s.bufsize }

// Output returns the last produced block. The slice is owned by the
// Stretcher and may be modified in place by the caller until the next call
// to Process.
func (s *Stretcher) Output() []float64 { return s.outBuf }

// FillInputFrames is the input the very first Process call after a reset
// wants: two blocks, so the analysis history starts full.
func (s *Stretcher) FillInputFrames() int { return 2 * s.bufsize }

// RequiredInputFrames returns how many new frames the next Process call
// wants: a full block when the time axis has moved past the current one,
// otherwise none. positionPercent is the input position in [0,100].
func (s *Stretcher) RequiredInputFrames(positionPercent float64) int {
	if s.freezing {
		return 0
	}
	s.positionPerc = positionPercent
	if s.requireNew {
		return s.bufsize
	}
	return 0
}

// SkipFrames returns and clears the number of input frames to jump over
// before the next read.
func (s *Stretcher) SkipFrames() int {
	n := s.skip
	s.skip = 0
	return n
}

// HereIsOnset is called with the maximum onset strength of all channels so
// that every channel takes the same timing decision.
func (s *Stretcher) HereIsOnset(onset float64) {
	if s.freezing {
		return
	}
	if onset > 0.5 {
		s.requireNew = true
		s.onsetCredit += 1 - s.remained
		s.remained = 0
		s.skip = 0
	}
}

// Process consumes frames samples of in, renders one output block and
// returns the local onset strength in [0,1].
func (s *Stretcher) Process(in []float64, frames int) float64 {
	n := s.bufsize
	frames = min(frames, len(in))

	onset := 0.0
	if frames > 0 {
		blocks := 1
		if frames >= 2*n {
			blocks = 2
		}
		for b := range blocks {
			s.pushBlock(in[b*n:min(frames, (b+1)*n)])
		}
		if s.onsetSens > onsetThresholdLow {
			onset = s.detectOnset()
		}
	}

	s.synthesize()
	s.advance()

	return onset
}

// pushBlock shifts the input history by one block, analyzing the new block
// against the previous one for onset detection. A short block is zero-padded.
func (s *Stretcher) pushBlock(block []float64) {
	n := s.bufsize

	copy(s.anaOld, s.anaFreq)
	copy(s.smp[:n], s.cur)
	copy(s.smp[n:], block)
	clear(s.smp[n+len(block):])
	s.magnitudes(s.anaFreq)

	s.veryOld, s.old, s.cur = s.old, s.cur, s.veryOld
	copy(s.cur, block)
	clear(s.cur[len(block):])
}

// detectOnset measures positive spectral flux in bands of onsetBandHz
// relative to the previous analysis.
func (s *Stretcher) detectOnset() float64 {
	n := s.bufsize
	band := 1 + int(float64(n)*onsetBandHz/(s.sampleRate*0.5))

	var flux, inc float64
	incOld := onsetFloor
	next := 0
	for i := range n {
		inc += s.anaFreq[i] - s.anaOld[i]
		incOld += s.anaOld[i]
		if i >= next {
			next += band
			if inc > 0 {
				flux += inc / incOld
			}
			inc = 0
			incOld = onsetFloor
		}
	}

	strength := math.Pow(20, math.Pow(1-s.onsetSens, 1.5)) - 1
	low := strength * 0.75
	if flux <= low {
		return 0
	}
	return min(1, (flux-low)/(strength-low+onsetFloor))
}

// synthesize builds the output block from the analysis window positioned
// remained blocks into the history.
func (s *Stretcher) synthesize() {
	n := s.bufsize

	start := min(int(math.Floor(s.remained*float64(n))), n-1)
	copy(s.smp, s.veryOld[start:])
	copy(s.smp[n-start:], s.old)
	copy(s.smp[2*n-start:], s.cur[:start])

	s.magnitudes(s.freq)
	s.processSpectrum()
	s.resynthesize()

	tmp := math.Pi / float64(n)
	for i := range n {
		a := 0.5 + 0.5*math.Cos(float64(i)*tmp)
		out := s.smp[i+n]*(1-a) + s.oldOut[i]*a
		s.outBuf[i] = out * (hinvSqrt2 - (1-hinvSqrt2)*math.Cos(float64(i)*2*tmp)) * ampFactor
	}
	copy(s.oldOut, s.smp)
}

// advance moves the time axis by one output block.
func (s *Stretcher) advance() {
	if s.freezing {
		return
	}

	r := 1 / s.ratio
	if s.onsetCredit > 0 {
		credit := 0.5 * r
		s.onsetCredit = max(0, s.onsetCredit-credit)
		r -= credit
	}

	s.remained += r
	if s.remained >= 1 {
		whole := math.Floor(s.remained)
		s.skip = int(whole-1) * s.bufsize
		s.remained -= whole
		s.requireNew = true
	} else {
		s.requireNew = false
	}
}

// magnitudes windows s.smp and writes the magnitude spectrum to dst.
func (s *Stretcher) magnitudes(dst []float64) {
	for i, w := range s.win {
		s.smp[i] *= w
	}
	s.fft.Coefficients(s.coeffs, s.smp)
	for i := range dst {
		c := s.coeffs[i]
		dst[i] = math.Hypot(real(c), imag(c))
	}
}

// resynthesize turns s.freq into a time signal in s.smp with random phases.
func (s *Stretcher) resynthesize() {
	n := s.bufsize
	s.coeffs[0] = 0
	s.coeffs[n] = 0
	for i := 1; i < n; i++ {
		sin, cos := math.Sincos(s.rng.Float64() * 2 * math.Pi)
		s.coeffs[i] = complex(s.freq[i]*cos, s.freq[i]*sin)
	}
	s.fft.Sequence(s.smp, s.coeffs)
	s.ops.Scale(s.smp, s.smp, 1/float64(2*n))
}

func (s *Stretcher) processSpectrum() {
	in := s.scratch[0]
	for _, stage := range s.order {
		if !stage.Enabled {
			continue
		}
		copy(in, s.freq)
		s.runStage(stage.Type, in, s.freq)
	}
}

func (s *Stretcher) runStage(t SpectrumProcessType, in, out []float64) {
	p := &s.params
	tmp1, tmp2, tmp3 := s.scratch[1], s.scratch[2], s.scratch[3]

	switch t {
	case Harmonics:
		harmonics(p.Harmonics, in, out, tmp1, s.sampleRate)
	case TonalVsNoise:
		tonalVsNoise(p.TonalVsNoise, in, out, tmp1, tmp2, s.sampleRate)
	case FreqShift:
		freqShift(in, out, p.FreqShift.Hz, s.sampleRate)
	case PitchShift:
		pitchShift(in, out, math.Pow(2, p.PitchShift.Cents/1200))
	case RatioMix:
		ratioMix(p.Octave, in, out, tmp1, tmp2)
	case Spread:
		spread(in, out, tmp3, s.sampleRate, p.Spread.Bandwidth)
	case Filter:
		filter(p.Filter, in, out, s.sampleRate)
	case Compressor:
		compressor(p.Compressor, in, out, s.ops)
	case FreeFilter:
		freeFilter(s.envelope, in, out)
	default:
		copy(out, in)
	}
}
