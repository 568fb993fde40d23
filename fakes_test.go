package stretch

import (
	"errors"

	"github.com/tphakala/go-audio-stretch/binaural"
	"github.com/tphakala/go-audio-stretch/spectral"
)

// fakeInput is a constant-level input with range and loop bookkeeping.
type fakeInput struct {
	level      float64
	sampleRate float64
	frames     int64
	pos        int64
	active     Range
	looping    bool
	loops      int
	ended      bool
	lastRead   int64
	xfade      float64
	openErr    error
	reads      int
	skipped    int
}

func newFakeInput(sampleRate float64, frames int64, level float64) *fakeInput {
	return &fakeInput{level: level, sampleRate: sampleRate, frames: frames, active: FullRange}
}

func (f *fakeInput) Open(string) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.pos = 0
	return nil
}

func (f *fakeInput) SetBuffer(channels [][]float64, sampleRate float64, frames int) {
	f.sampleRate = sampleRate
	f.frames = int64(frames)
	f.pos = 0
}

func (f *fakeInput) Info() SourceInfo {
	return SourceInfo{SampleRate: f.sampleRate, Frames: f.frames, Channels: 1}
}

func (f *fakeInput) ReadNextBlock(dst [][]float64, frames int) int {
	f.reads++
	end := int64(f.active.End * float64(f.frames))
	start := int64(f.active.Start * float64(f.frames))
	read := int64(0)
	for i := range frames {
		if f.pos >= end {
			if f.looping {
				f.pos = start
				f.loops++
			} else {
				f.ended = true
				for _, ch := range dst {
					ch[i] = 0
				}
				continue
			}
		}
		for _, ch := range dst {
			ch[i] = f.level
		}
		f.pos++
		read++
	}
	f.lastRead = read
	return frames
}

func (f *fakeInput) Skip(frames int) {
	f.skipped += frames
	f.pos = min(f.frames, f.pos+int64(frames))
}

func (f *fakeInput) Seek(pos float64, _ bool) {
	f.pos = int64(pos * float64(f.frames))
	f.ended = false
}

func (f *fakeInput) SetActiveRange(r Range)    { f.active = r }
func (f *fakeInput) ActiveRange() Range        { return f.active }
func (f *fakeInput) SetLoopEnabled(on bool)    { f.looping = on }
func (f *fakeInput) IsLooping() bool           { return f.looping }
func (f *fakeInput) LoopCount() int            { return f.loops }
func (f *fakeInput) SetXFadeSeconds(s float64) { f.xfade = s }
func (f *fakeInput) CurrentPosition() int64    { return f.pos }
func (f *fakeInput) DiskReadSampleCount() int64 {
	return f.lastRead
}
func (f *fakeInput) CachedRangesNormalized() (Range, Range) { return FullRange, f.active }
func (f *fakeInput) HasEnded() bool                         { return f.ended }

// fakeStretcher emits a constant block whose level depends on the buffer
// size, and records what the engine tells it.
type fakeStretcher struct {
	channel   int
	bufsize   int
	out       []float64
	level     func(bufsize int) float64
	onset     float64
	processed int
	received  []float64
	freezing  bool
	ratio     float64
	order     spectral.ProcessOrder
	params    spectral.ProcessParameters
	envelope  *spectral.Envelope
	window    spectral.WindowType
}

func (s *fakeStretcher) Process(_ []float64, _ int) float64 {
	s.processed++
	v := s.level(s.bufsize)
	for i := range s.out {
		s.out[i] = v
	}
	return s.onset
}

func (s *fakeStretcher) FillInputFrames() int                { return 2 * s.bufsize }
func (s *fakeStretcher) RequiredInputFrames(float64) int     { return s.bufsize }
func (s *fakeStretcher) OutputBufferSize() int               { return s.bufsize }
func (s *fakeStretcher) Output() []float64                   { return s.out }
func (s *fakeStretcher) SkipFrames() int                     { return 0 }
func (s *fakeStretcher) HereIsOnset(onset float64)           { s.received = append(s.received, onset) }
func (s *fakeStretcher) SetSampleRate(float64)               {}
func (s *fakeStretcher) SetRatio(r float64)                  { s.ratio = r }
func (s *fakeStretcher) SetFreezing(on bool)                 { s.freezing = on }
func (s *fakeStretcher) IsFreezing() bool                    { return s.freezing }
func (s *fakeStretcher) SetOnsetSensitivity(float64)         {}
func (s *fakeStretcher) SetWindowType(w spectral.WindowType) { s.window = w }

func (s *fakeStretcher) SetBufferSize(n int) {
	s.bufsize = n
	s.out = make([]float64, n)
}

func (s *fakeStretcher) SetParameters(p spectral.ProcessParameters) { s.params = p }
func (s *fakeStretcher) SetProcessOrder(o spectral.ProcessOrder)    { s.order = o }
func (s *fakeStretcher) SetFreeFilterEnvelope(env *spectral.Envelope) {
	s.envelope = env
}

// fakeEnsemble creates fake stretchers and keeps them for inspection.
type fakeEnsemble struct {
	level      func(bufsize int) float64
	onsets     []float64
	stretchers []*fakeStretcher
}

func constantLevel(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

func (f *fakeEnsemble) factory(cfg spectral.Config) ChannelStretcher {
	s := &fakeStretcher{channel: cfg.Channel, level: f.level, ratio: cfg.Ratio}
	if cfg.Channel < len(f.onsets) {
		s.onset = f.onsets[cfg.Channel]
	}
	s.SetBufferSize(cfg.BufferSize)
	f.stretchers = append(f.stretchers, s)
	return s
}

// recordingMixer counts binaural calls.
type recordingMixer struct {
	calls  int
	params binaural.Parameters
}

func (m *recordingMixer) Process(_, _ []float64, _ int, _ float64) { m.calls++ }
func (m *recordingMixer) SetParameters(p binaural.Parameters)    { m.params = p }

var errFakeOpen = errors.New("fake open failure")
