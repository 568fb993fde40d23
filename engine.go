package stretch

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/tphakala/go-audio-stretch/binaural"
	"github.com/tphakala/go-audio-stretch/internal/resample"
	"github.com/tphakala/go-audio-stretch/internal/ringbuf"
	"github.com/tphakala/go-audio-stretch/internal/simdops"
	"github.com/tphakala/go-audio-stretch/internal/smooth"
	"github.com/tphakala/go-audio-stretch/spectral"
)

// Engine streams time-stretched audio from an InputSource.
//
// RenderBlock holds the engine lock for the whole block. Parameter setters
// that return bool only try the lock and drop the change when the render
// thread holds it; call them again to retry. Structural operations (input
// changes, seeks, FFT size, process order) wait for the lock.
type Engine struct {
	mu sync.Mutex

	input    InputSource
	channels int
	cfg      Config
	logger   *log.Logger
	ops      *simdops.Ops[float64]

	// Guarded by mu.
	stretchers  []ChannelStretcher
	mixer       BinauralMixer
	ring        *ringbuf.RingBuffer
	rs          *resample.Resampler
	rsOut       []float64   // interleaved resampler output
	inBuf       [][]float64 // per channel input block
	outViews    [][]float64 // stretcher outputs, refreshed every block
	interleaved []float64   // one synthesis block, interleaved
	dryBuf      [][]float64
	xfade       crossfade
	vol         *smooth.Smoother
	params      spectral.ProcessParameters
	order       spectral.ProcessOrder
	envelope    *spectral.Envelope
	firstBuffer bool
	prepared    bool
	randCount   int
	outputCount int64
	wasDry      bool

	// Read without the lock.
	fftSize      atomic.Int64
	playRate     atomicFloat
	onsetSens    atomicFloat
	window       atomic.Int32
	volumeDB     atomicFloat
	loopXFade    atomicFloat
	dryRate      atomicFloat
	outRate      atomicFloat
	freezePos    atomicFloat
	previewDry   atomic.Bool
	freezing     atomic.Bool
	clipOutput   atomic.Bool
	maxLoops     atomic.Int64
	pause        atomic.Int32
	xstate       atomic.Int32
	xcycles      atomic.Int64
	silence      atomic.Int64
	lastFilePos  atomic.Int64
	changes      atomic.Uint64
	orderPreset  atomic.Int32
	playRange    atomic.Pointer[Range]
	audioFile    atomic.Pointer[string]
	paramsSnap   atomic.Pointer[spectral.ProcessParameters]
	orderSnap    atomic.Pointer[spectral.ProcessOrder]
	binauralSnap atomic.Pointer[binaural.Parameters]
}

// New creates an engine reading from input. A nil input is allowed; the
// engine then renders silence.
func New(input InputSource, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NewStretcher == nil {
		cfg.NewStretcher = newSpectralStretcher
	}
	if cfg.NewMixer == nil {
		cfg.NewMixer = newBinauralMixer
	}

	e := &Engine{
		input:    input,
		channels: cfg.Channels,
		cfg:      cfg,
		logger:   cfg.Logger,
		ops:      simdops.For[float64](),
		ring:     ringbuf.New(cfg.Channels * cfg.FFTSize * 2),
		rs:       resample.New(cfg.Channels, 1, 1),
		xfade:    newCrossfade(cfg.Channels, cfg.CrossfadeFrames),
		vol:      smooth.New(0, volumeSmoothSeconds, 1),
		params:   spectral.DefaultProcessParameters(),
		order:    spectral.DefaultProcessOrder(),
		envelope: spectral.NewEnvelope(),
	}

	e.fftSize.Store(int64(cfg.FFTSize))
	e.playRate.Store(cfg.PlayRate)
	e.onsetSens.Store(cfg.OnsetSensitivity)
	e.window.Store(int32(cfg.Window))
	e.dryRate.Store(1)
	e.outRate.Store(0)

	r := FullRange
	e.playRange.Store(&r)
	empty := ""
	e.audioFile.Store(&empty)
	e.publishParams()
	bb := binaural.DefaultParameters()
	e.binauralSnap.Store(&bb)

	e.outViews = make([][]float64, e.channels)
	e.dryBuf = make([][]float64, e.channels)
	for ch := range e.dryBuf {
		e.dryBuf[ch] = make([]float64, dryScratchFrames)
	}

	return e, nil
}

// Prepare readies the engine for output at outRate Hz. It must be called
// before the first RenderBlock and whenever the output rate changes.
func (e *Engine) Prepare(outRate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.outRate.Store(outRate)
	e.vol.Reset(outRate, volumeSmoothSeconds)
	e.vol.SetTarget(smooth.DBToGain(e.volumeDB.Load()))
	e.outputCount = 0
	e.silence.Store(0)
	e.firstBuffer = true
	e.prepared = true

	e.initObjects()
}

// Release drops transient scratch state. The engine can be prepared again.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prepared = false
	e.ring.Clear()
	e.rs.Reset()
}

// Input returns the engine's input source.
func (e *Engine) Input() InputSource { return e.input }

// initObjects (re)builds the stretchers and scratch space for the current
// FFT size and input format. Called with mu held.
func (e *Engine) initObjects() {
	fft := int(e.fftSize.Load())
	info := e.inputInfo()

	if e.input != nil {
		r := *e.playRange.Load()
		e.input.SetActiveRange(r)
		if info.Frames > 0 {
			pos := float64(e.input.CurrentPosition()) / float64(info.Frames)
			if !r.Contains(pos) {
				e.input.Seek(r.Start, true)
			}
		}
	}

	e.firstBuffer = true

	maxOut := max(e.cfg.MaxBlockFrames, e.xfade.length)
	e.rs.Reset()
	e.rs.SetRates(info.SampleRate, e.outRate.Load())
	e.rs.Reserve(e.channels, maxOut)
	e.ensureRing(maxOut)
	e.ring.Clear()
	if len(e.rsOut) < maxOut*e.channels {
		e.rsOut = make([]float64, maxOut*e.channels)
	}

	for len(e.stretchers) < e.channels {
		e.stretchers = append(e.stretchers, e.cfg.NewStretcher(spectral.Config{
			Ratio:      e.playRate.Load(),
			BufferSize: fft,
			Window:     spectral.WindowType(e.window.Load()),
			Channel:    len(e.stretchers),
			SampleRate: info.SampleRate,
		}))
	}
	for _, s := range e.stretchers {
		s.SetBufferSize(fft)
		if info.SampleRate > 0 {
			s.SetSampleRate(info.SampleRate)
		}
		s.SetRatio(e.playRate.Load())
		s.SetWindowType(spectral.WindowType(e.window.Load()))
		s.SetOnsetSensitivity(e.onsetSens.Load())
		s.SetParameters(e.params)
		s.SetFreezing(e.freezing.Load())
		s.SetFreeFilterEnvelope(e.envelope)
		s.SetProcessOrder(e.order)
	}

	e.mixer = nil
	if info.SampleRate > 0 {
		m, err := e.cfg.NewMixer(info.SampleRate, *e.binauralSnap.Load())
		if err != nil {
			e.logf("binaural mixer disabled: %v", err)
		} else {
			e.mixer = m
		}
	}

	for ch := range e.channels {
		if ch >= len(e.inBuf) {
			e.inBuf = append(e.inBuf, nil)
		}
		if len(e.inBuf[ch]) < inputScratchBlocks*fft {
			e.inBuf[ch] = make([]float64, inputScratchBlocks*fft)
		}
	}
	if len(e.interleaved) < 2*fft*e.channels {
		e.interleaved = make([]float64, 2*fft*e.channels)
	}
}

// ensureRing grows the ring so that one fill for outFrames output frames
// plus one synthesis block never overwrites unread samples.
func (e *Engine) ensureRing(outFrames int) {
	inRate, outRate := e.rs.Rates()
	in := int(float64(outFrames)*inRate/outRate) + 8
	fft := int(e.fftSize.Load())
	e.ring.Resize(e.channels * (in + 2*fft))
}

func (e *Engine) inputInfo() SourceInfo {
	if e.input == nil {
		return SourceInfo{}
	}
	return e.input.Info()
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

func (e *Engine) changed() { e.changes.Add(1) }

func (e *Engine) publishParams() {
	p := e.params
	e.paramsSnap.Store(&p)
	o := e.order
	e.orderSnap.Store(&o)
}

// SetRate sets the stretch ratio. Non-positive ratios are ignored. It
// reports false when the change was dropped because the render thread held
// the lock.
func (e *Engine) SetRate(rate float64) bool {
	if !(rate > 0) || rate == e.playRate.Load() {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.playRate.Store(rate)
	for _, s := range e.stretchers {
		s.SetRatio(rate)
	}
	e.changed()
	return true
}

// SetFFTSize changes the synthesis block size. While streaming the change
// is crossfaded over the configured number of frames; force applies it
// immediately. A request made during a crossfade is applied after it.
func (e *Engine) SetFFTSize(size int, force bool) error {
	if size < minFFTSize {
		return fmt.Errorf("%w: %d (minimum %d)", ErrInvalidFFTSize, size, minFFTSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := int(e.fftSize.Load())
	streaming := e.prepared && e.inputInfo().Frames > 0

	if force || !streaming {
		if size == current && !force && e.xfade.state == xfadeIdle {
			return nil
		}
		e.xfade.cancel()
		e.xstate.Store(int32(xfadeIdle))
		e.fftSize.Store(int64(size))
		e.initObjects()
		e.logf("using FFT size %d", size)
		e.changed()
		return nil
	}

	if e.xfade.request(size, current) {
		e.xstate.Store(int32(e.xfade.state))
		if e.xfade.deferred != 0 {
			e.logf("FFT size %d deferred until the running crossfade ends", size)
		}
		e.changed()
	}
	return nil
}

// SetProcessOrder publishes a new spectral stage order to every stretcher.
func (e *Engine) SetProcessOrder(order spectral.ProcessOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.setOrderLocked(order)
	e.orderPreset.Store(-1)
	return nil
}

func (e *Engine) setOrderLocked(order spectral.ProcessOrder) {
	if order.Equal(e.order) {
		return
	}
	e.order = append(spectral.ProcessOrder(nil), order...)
	for _, s := range e.stretchers {
		s.SetProcessOrder(e.order)
	}
	e.publishParams()
	e.changed()
}

// SetSpectralOrderPreset swaps the stage ordering for one of the built-in
// presets, keeping the enable flags.
func (e *Engine) SetSpectralOrderPreset(id int) (bool, error) {
	if id < 0 || id >= spectral.NumOrderPresets {
		return false, fmt.Errorf("%w: spectral order preset %d", ErrInvalidConfig, id)
	}
	if int(e.orderPreset.Load()) == id {
		return true, nil
	}
	if !e.mu.TryLock() {
		return false, nil
	}
	defer e.mu.Unlock()

	order, err := e.order.WithPreset(id)
	if err != nil {
		return false, err
	}
	e.setOrderLocked(order)
	e.orderPreset.Store(int32(id))
	return true, nil
}

// SetSpectralModuleEnabled turns one spectral stage on or off.
func (e *Engine) SetSpectralModuleEnabled(t spectral.SpectrumProcessType, on bool) bool {
	if e.orderSnap.Load().IsEnabled(t) == on {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.setOrderLocked(e.order.WithEnabled(t, on))
	return true
}

// SetProcessParameters updates the spectral parameters and, when bb is
// not nil, the binaural parameters.
func (e *Engine) SetProcessParameters(p spectral.ProcessParameters, bb *binaural.Parameters) bool {
	sameBB := bb == nil || *bb == *e.binauralSnap.Load()
	if p == *e.paramsSnap.Load() && sameBB {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	if p != e.params {
		e.params = p
		for _, s := range e.stretchers {
			s.SetParameters(p)
		}
		e.publishParams()
	}
	if !sameBB {
		b := *bb
		e.binauralSnap.Store(&b)
		if e.mixer != nil {
			e.mixer.SetParameters(b)
		}
	}
	e.changed()
	return true
}

// SetFreeFilterEnvelope replaces the envelope shared by every stretcher.
// The engine keeps its own copy.
func (e *Engine) SetFreeFilterEnvelope(env *spectral.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if env == nil {
		env = spectral.NewEnvelope()
	}
	if env.Equal(e.envelope) {
		return
	}
	e.envelope = env.Clone()
	e.envelope.Sort()
	for _, s := range e.stretchers {
		s.SetFreeFilterEnvelope(e.envelope)
	}
	e.changed()
}

// SetFreezing holds the spectral content at the current position. The
// render thread propagates the flag at the start of the next block.
func (e *Engine) SetFreezing(on bool) bool {
	if e.freezing.Load() == on {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.freezing.Store(on)
	e.changed()
	return true
}

// SetOnsetDetection sets the onset sensitivity in [0,1].
func (e *Engine) SetOnsetDetection(x float64) bool {
	x = max(0, min(1, x))
	if x == e.onsetSens.Load() {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.onsetSens.Store(x)
	for _, s := range e.stretchers {
		s.SetOnsetSensitivity(x)
	}
	e.changed()
	return true
}

// SetFFTWindowType sets the analysis window of every stretcher.
func (e *Engine) SetFFTWindowType(w spectral.WindowType) bool {
	if !w.Valid() || int32(w) == e.window.Load() {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.window.Store(int32(w))
	for _, s := range e.stretchers {
		s.SetWindowType(w)
	}
	e.changed()
	return true
}

// SetMainVolumeDB sets the output gain, clamped to [-144, 12] dB. The gain
// glides to the new value over half a second.
func (e *Engine) SetMainVolumeDB(db float64) bool {
	db = max(minVolumeDB, min(maxVolumeDB, db))
	if db == e.volumeDB.Load() {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.volumeDB.Store(db)
	e.changed()
	return true
}

// SetLoopCrossfadeSeconds sets the crossfade at the loop seam, clamped to
// [0, 1] s.
func (e *Engine) SetLoopCrossfadeSeconds(s float64) bool {
	s = max(0, min(maxLoopCrossfadeSeconds, s))
	if s == e.loopXFade.Load() {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.loopXFade.Store(s)
	e.changed()
	return true
}

// SetPreviewDry switches between stretched output and the resampled input.
func (e *Engine) SetPreviewDry(on bool) bool {
	if on == e.previewDry.Load() {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.previewDry.Store(on)
	e.changed()
	return true
}

// SetDryPlayRate sets the playback speed of the dry preview.
func (e *Engine) SetDryPlayRate(rate float64) bool {
	if !(rate > 0) || rate == e.dryRate.Load() {
		return true
	}
	if !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	e.dryRate.Store(rate)
	e.changed()
	return true
}

// SetPlayRange restricts playback to r. An empty range selects the whole
// input. Unless force is set the call only tries the lock.
func (e *Engine) SetPlayRange(r Range, force bool) bool {
	if !force {
		if r == *e.playRange.Load() {
			return true
		}
		if !e.mu.TryLock() {
			return false
		}
	} else {
		e.mu.Lock()
	}
	defer e.mu.Unlock()

	e.setPlayRangeLocked(r)
	return true
}

func (e *Engine) setPlayRangeLocked(r Range) {
	r = r.Clamp()
	if r.IsEmpty() {
		r = FullRange
	}
	e.playRange.Store(&r)

	if e.input != nil {
		e.input.SetActiveRange(r)
		if frames := e.input.Info().Frames; frames > 0 {
			pos := float64(e.input.CurrentPosition()) / float64(frames)
			if !r.Contains(pos) {
				e.input.Seek(r.Start, true)
			}
		}
	}
	e.silence.Store(0)
	e.changed()
}

// SetLoopingEnabled turns range looping on or off. Turning it on while the
// position is outside the range restarts from the range start.
func (e *Engine) SetLoopingEnabled(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.input == nil || e.input.IsLooping() == on {
		return
	}
	if on {
		r := e.input.ActiveRange()
		if frames := e.input.Info().Frames; frames > 0 {
			pos := float64(e.input.CurrentPosition()) / float64(frames)
			if !r.Contains(pos) {
				e.input.Seek(r.Start, true)
			}
		}
	}
	e.input.SetLoopEnabled(on)
	e.changed()
}

// SetMaxLoops sets how many loops play before HasReachedEnd reports true.
// 0 means loop forever.
func (e *Engine) SetMaxLoops(n int) { e.maxLoops.Store(int64(max(n, 0))) }

// SetClipOutput limits output samples to [-1, 1].
func (e *Engine) SetClipOutput(on bool) { e.clipOutput.Store(on) }

// SetPaused requests a pause or resume. The transition is ramped over the
// next rendered block.
func (e *Engine) SetPaused(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := pauseState(e.pause.Load())
	switch {
	case on && state == playing:
		e.pause.Store(int32(pauseRequested))
	case !on && state == paused:
		e.pause.Store(int32(resumeRequested))
	default:
		return
	}
	e.changed()
}

// SeekPercent moves the input to the normalized position pos.
func (e *Engine) SeekPercent(pos float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.input == nil {
		return
	}
	e.input.Seek(max(0, min(1, pos)), true)
	e.silence.Store(0)
	e.changed()
}

// SetAudioFile opens path as the new input. On failure the engine keeps the
// previous input.
func (e *Engine) SetAudioFile(path string) error {
	if e.input == nil {
		return ErrNoInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.input.Open(path); err != nil {
		e.logf("could not open %s: %v", path, err)
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}

	e.audioFile.Store(&path)
	e.silence.Store(0)
	e.initObjects()
	e.changed()
	return nil
}

// SetInputBuffer uses planar in-memory audio as the input.
func (e *Engine) SetInputBuffer(channels [][]float64, sampleRate float64, frames int) error {
	if e.input == nil {
		return ErrNoInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.input.SetBuffer(channels, sampleRate, frames)
	e.input.Seek(0, true)
	empty := ""
	e.audioFile.Store(&empty)
	if e.playRange.Load().IsEmpty() {
		r := FullRange
		e.playRange.Store(&r)
	}
	e.silence.Store(0)
	e.initObjects()
	e.changed()
	return nil
}
