// Package source provides the in-memory input source used by the stretch
// engine: decoded WAV files or caller buffers, a play range, looping with a
// crossfade at the seam, and the read accounting the engine reports to its
// UI.
package source

import (
	"math"
	"sync"
	"sync/atomic"

	stretch "github.com/tphakala/go-audio-stretch"
)

// audioData is one loaded input. It is never modified after it is
// published.
type audioData struct {
	channels   [][]float64
	sampleRate float64
	frames     int64
}

// Source is an InputSource backed by fully decoded audio.
//
// All methods are safe for concurrent use. Position, loop and read
// counters are atomics so that the engine's queries never wait on a read
// in progress.
type Source struct {
	mu sync.Mutex // serializes reads and state changes

	data      atomic.Pointer[audioData]
	active    atomic.Pointer[stretch.Range]
	pos       atomic.Int64
	loopCount atomic.Int64
	lastRead  atomic.Int64
	looping   atomic.Bool
	ended     atomic.Bool

	xfadeSeconds float64
}

var _ stretch.InputSource = (*Source)(nil)

// New returns an empty source. Reads produce silence until Open or
// SetBuffer succeeds.
func New() *Source {
	s := &Source{}
	r := stretch.FullRange
	s.active.Store(&r)
	return s
}

// Open decodes a WAV file and makes it the current input. On failure the
// previous input stays loaded.
func (s *Source) Open(path string) error {
	data, err := decodeFile(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(data)
	return nil
}

// SetBuffer copies frames frames of planar audio and makes it the current
// input.
func (s *Source) SetBuffer(channels [][]float64, sampleRate float64, frames int) {
	data := &audioData{sampleRate: sampleRate}
	for _, ch := range channels {
		frames = min(frames, len(ch))
	}
	frames = max(frames, 0)
	data.frames = int64(frames)
	for _, ch := range channels {
		data.channels = append(data.channels, append([]float64(nil), ch[:frames]...))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(data)
}

func (s *Source) load(data *audioData) {
	s.data.Store(data)
	s.pos.Store(0)
	s.loopCount.Store(0)
	s.lastRead.Store(0)
	s.ended.Store(false)
}

// Info returns the format of the loaded audio.
func (s *Source) Info() stretch.SourceInfo {
	d := s.data.Load()
	if d == nil {
		return stretch.SourceInfo{}
	}
	return stretch.SourceInfo{SampleRate: d.sampleRate, Frames: d.frames, Channels: len(d.channels)}
}

// bounds returns the active range in frames. The range is at least one
// frame long.
func (s *Source) bounds(d *audioData) (start, end int64) {
	r := s.active.Load()
	start = min(d.frames-1, frameAt(r.Start, d.frames))
	end = max(start+1, frameAt(r.End, d.frames))
	return start, end
}

// frameAt returns the first frame f whose normalized position f/frames is
// not below x, clamped to [0, frames].
func frameAt(x float64, frames int64) int64 {
	n := float64(frames)
	f := max(0, min(frames, int64(math.Ceil(x*n))))
	for f > 0 && float64(f-1)/n >= x {
		f--
	}
	for f < frames && float64(f)/n < x {
		f++
	}
	return f
}

// seamFrames is the loop crossfade length, at most half the range.
func (s *Source) seamFrames(d *audioData, start, end int64) int64 {
	xf := int64(s.xfadeSeconds * d.sampleRate)
	return max(0, min(xf, (end-start)/2))
}

// ReadNextBlock fills frames frames of every channel in dst. See
// stretch.InputSource.
func (s *Source) ReadNextBlock(dst [][]float64, frames int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data.Load()
	if d == nil || d.frames == 0 {
		clearFrames(dst, 0, frames)
		s.lastRead.Store(0)
		return frames
	}

	start, end := s.bounds(d)
	xf := s.seamFrames(d, start, end)
	pos := s.pos.Load()
	read := int64(0)

	i := 0
	for i < frames {
		if pos >= end {
			if !s.looping.Load() {
				s.ended.Store(true)
				clearFrames(dst, i, frames)
				break
			}
			pos = start + xf
			s.loopCount.Add(1)
			continue
		}

		n := int(min(int64(frames-i), end-pos))
		s.copyFrames(d, dst, i, pos, n)

		if s.looping.Load() && xf > 0 {
			s.blendSeam(d, dst, i, pos, n, start, end, xf)
		}

		i += n
		pos += int64(n)
		read += int64(n)
	}

	s.pos.Store(pos)
	s.lastRead.Store(read)
	return frames
}

// copyFrames copies n frames starting at pos into dst from offset at.
// Destination channels past the source count repeat the last channel.
func (s *Source) copyFrames(d *audioData, dst [][]float64, at int, pos int64, n int) {
	last := len(d.channels) - 1
	for ch, out := range dst {
		src := d.channels[min(ch, last)]
		copy(out[at:at+n], src[pos:pos+int64(n)])
	}
}

// blendSeam crossfades the last xf frames of the range into the frames
// following the range start.
func (s *Source) blendSeam(d *audioData, dst [][]float64, at int, pos int64, n int, start, end, xf int64) {
	seam := end - xf
	last := len(d.channels) - 1
	for k := range n {
		p := pos + int64(k)
		if p < seam {
			continue
		}
		t := float64(p-seam) / float64(xf)
		head := start + (p - seam)
		for ch, out := range dst {
			src := d.channels[min(ch, last)]
			out[at+k] = (1-t)*src[p] + t*src[head]
		}
	}
}

func clearFrames(dst [][]float64, from, to int) {
	for _, ch := range dst {
		clear(ch[from:to])
	}
}

// Skip advances the read position by frames frames, wrapping inside the
// range when looping.
func (s *Source) Skip(frames int) {
	if frames <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data.Load()
	if d == nil || d.frames == 0 {
		return
	}

	start, end := s.bounds(d)
	pos := s.pos.Load() + int64(frames)
	if pos >= end {
		if s.looping.Load() {
			// Every wrap resumes after the seam, like ReadNextBlock.
			xf := s.seamFrames(d, start, end)
			span := end - start - xf
			over := pos - end
			pos = start + xf + over%span
			s.loopCount.Add(1 + over/span)
		} else {
			pos = end
			s.ended.Store(true)
		}
	}
	s.pos.Store(pos)
}

// Seek moves to the normalized position pos. The audio is held decoded, so
// there is no filter state for resetFilters to drop.
func (s *Source) Seek(pos float64, resetFilters bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data.Load()
	if d == nil {
		return
	}
	s.pos.Store(frameAt(pos, d.frames))
	s.ended.Store(false)
}

// SetActiveRange sets the play range. An empty range selects the whole
// input.
func (s *Source) SetActiveRange(r stretch.Range) {
	r = r.Clamp()
	if r.IsEmpty() {
		r = stretch.FullRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active.Store(&r)
	s.ended.Store(false)
}

// ActiveRange returns the play range.
func (s *Source) ActiveRange() stretch.Range { return *s.active.Load() }

// SetLoopEnabled turns looping over the play range on or off.
func (s *Source) SetLoopEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.looping.Store(on)
	if on {
		s.ended.Store(false)
	}
}

// IsLooping reports whether looping is on.
func (s *Source) IsLooping() bool { return s.looping.Load() }

// LoopCount returns how many times playback wrapped to the range start
// since the input was loaded.
func (s *Source) LoopCount() int { return int(s.loopCount.Load()) }

// SetXFadeSeconds sets the loop seam crossfade.
func (s *Source) SetXFadeSeconds(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xfadeSeconds = max(0, seconds)
}

// CurrentPosition returns the read position in frames.
func (s *Source) CurrentPosition() int64 { return s.pos.Load() }

// DiskReadSampleCount returns the frames taken from the audio by the last
// ReadNextBlock call.
func (s *Source) DiskReadSampleCount() int64 { return s.lastRead.Load() }

// CachedRangesNormalized returns the whole input, which is held in memory,
// and the active range.
func (s *Source) CachedRangesNormalized() (cached, active stretch.Range) {
	if d := s.data.Load(); d == nil || d.frames == 0 {
		return stretch.Range{}, s.ActiveRange()
	}
	return stretch.FullRange, s.ActiveRange()
}

// HasEnded reports whether a non-looping read passed the range end.
func (s *Source) HasEnded() bool { return s.ended.Load() }
