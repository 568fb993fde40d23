package stretch

import (
	"github.com/tphakala/go-audio-stretch/binaural"
	"github.com/tphakala/go-audio-stretch/spectral"
)

// The queries below do not take the engine lock. Values may be one block
// stale.

// Channels returns the number of output channels.
func (e *Engine) Channels() int { return e.channels }

// FFTSize returns the current synthesis block size. During a crossfade it
// reports the size being faded to once priming has run.
func (e *Engine) FFTSize() int { return int(e.fftSize.Load()) }

// Rate returns the stretch ratio.
func (e *Engine) Rate() float64 { return e.playRate.Load() }

// OnsetDetection returns the onset sensitivity.
func (e *Engine) OnsetDetection() float64 { return e.onsetSens.Load() }

// FFTWindowType returns the analysis window.
func (e *Engine) FFTWindowType() spectral.WindowType { return spectral.WindowType(e.window.Load()) }

// MainVolumeDB returns the output gain in dB.
func (e *Engine) MainVolumeDB() float64 { return e.volumeDB.Load() }

// LoopCrossfadeSeconds returns the loop seam crossfade.
func (e *Engine) LoopCrossfadeSeconds() float64 { return e.loopXFade.Load() }

// DryPlayRate returns the dry preview speed.
func (e *Engine) DryPlayRate() float64 { return e.dryRate.Load() }

// IsFreezing reports whether freeze is requested.
func (e *Engine) IsFreezing() bool { return e.freezing.Load() }

// FreezePosition returns the normalized input position captured when
// freezing last started.
func (e *Engine) FreezePosition() float64 { return e.freezePos.Load() }

// IsPreviewingDry reports whether dry preview is on.
func (e *Engine) IsPreviewingDry() bool { return e.previewDry.Load() }

// IsPaused reports whether a pause is in effect or pending.
func (e *Engine) IsPaused() bool {
	s := pauseState(e.pause.Load())
	return s == paused || s == pauseRequested
}

// ClipOutput reports whether output is limited to [-1, 1].
func (e *Engine) ClipOutput() bool { return e.clipOutput.Load() }

// MaxLoops returns the loop limit, 0 for none.
func (e *Engine) MaxLoops() int { return int(e.maxLoops.Load()) }

// IsLoopingEnabled reports whether the input loops over the play range.
func (e *Engine) IsLoopingEnabled() bool {
	return e.input != nil && e.input.IsLooping()
}

// PlayRange returns the active play range.
func (e *Engine) PlayRange() Range { return *e.playRange.Load() }

// AudioFile returns the path of the open file, empty for buffer input.
func (e *Engine) AudioFile() string { return *e.audioFile.Load() }

// ProcessParameters returns the spectral parameters.
func (e *Engine) ProcessParameters() spectral.ProcessParameters { return *e.paramsSnap.Load() }

// BinauralParameters returns the binaural beat parameters.
func (e *Engine) BinauralParameters() binaural.Parameters { return *e.binauralSnap.Load() }

// ProcessOrder returns the published spectral stage order. It must not be
// modified.
func (e *Engine) ProcessOrder() spectral.ProcessOrder { return *e.orderSnap.Load() }

// SpectralOrderPreset returns the built-in ordering in use, or -1 after a
// custom order was set.
func (e *Engine) SpectralOrderPreset() int { return int(e.orderPreset.Load()) }

// FreeFilterEnvelope returns a copy of the free filter envelope.
func (e *Engine) FreeFilterEnvelope() *spectral.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.envelope.Clone()
}

// ParamChangeCount returns the number of applied parameter changes.
func (e *Engine) ParamChangeCount() uint64 { return e.changes.Load() }

// InfilePositionPercent returns the read position in [0,1].
func (e *Engine) InfilePositionPercent() float64 {
	if e.input == nil {
		return 0
	}
	frames := e.input.Info().Frames
	if frames <= 0 {
		return 0
	}
	return float64(e.input.CurrentPosition()) / float64(frames)
}

// InfilePositionSeconds returns the read position in seconds.
func (e *Engine) InfilePositionSeconds() float64 {
	if e.input == nil {
		return 0
	}
	sr := e.input.Info().SampleRate
	if sr <= 0 {
		return 0
	}
	return float64(e.input.CurrentPosition()) / sr
}

// InfileLengthSeconds returns the input duration.
func (e *Engine) InfileLengthSeconds() float64 {
	info := e.inputInfo()
	if info.SampleRate <= 0 {
		return 0
	}
	return float64(info.Frames) / info.SampleRate
}

// LastSourcePositionPercent returns the position of the last block handed
// to the stretchers.
func (e *Engine) LastSourcePositionPercent() float64 {
	frames := e.inputInfo().Frames
	if frames <= 0 {
		return 0
	}
	return float64(e.lastFilePos.Load()) / float64(frames)
}

// InfileSampleRate returns the input sample rate, 0 without input.
func (e *Engine) InfileSampleRate() float64 { return e.inputInfo().SampleRate }

// OutputSampleRate returns the rate passed to Prepare.
func (e *Engine) OutputSampleRate() float64 { return e.outRate.Load() }

// TotalLength returns the input length in frames.
func (e *Engine) TotalLength() int64 { return e.inputInfo().Frames }

// IsResampling reports whether input and output rates differ.
func (e *Engine) IsResampling() bool {
	in, out := e.inputInfo().SampleRate, e.outRate.Load()
	return in > 0 && out > 0 && int(in) != int(out)
}

// DiskReadSampleCount returns the frames read by the input's last block.
func (e *Engine) DiskReadSampleCount() int64 {
	if e.input == nil {
		return 0
	}
	return e.input.DiskReadSampleCount()
}

// CachedRangesNormalized returns the cached part of the input and the
// active loop range.
func (e *Engine) CachedRangesNormalized() (cached, active Range) {
	if e.input == nil {
		return Range{}, Range{}
	}
	return e.input.CachedRangesNormalized()
}

// HasReachedEnd reports whether playback is finished: the loop limit was
// passed while looping, or the input ended and the output has been silent
// long enough.
func (e *Engine) HasReachedEnd() bool {
	if e.input == nil {
		return false
	}
	if e.input.IsLooping() {
		limit := e.maxLoops.Load()
		if limit == 0 {
			return false
		}
		if int64(e.input.LoopCount()) > limit {
			return true
		}
	}
	return e.silence.Load() >= endSilenceFrames
}

// OutputDurationSecondsForRange estimates the output length for range r at
// FFT size fft. In dry preview it is the source duration of the range; the
// dry rate is not applied.
func (e *Engine) OutputDurationSecondsForRange(r Range, fft int) float64 {
	info := e.inputInfo()
	if info.SampleRate <= 0 {
		return 0
	}
	r = r.Clamp()
	if e.previewDry.Load() {
		return r.Length() * float64(info.Frames) / info.SampleRate
	}
	frames := 2*float64(fft) + r.Length()*e.playRate.Load()*float64(info.Frames)
	return frames / info.SampleRate
}

// IsPriming reports whether a live FFT size change is waiting for its
// crossfade block.
func (e *Engine) IsPriming() bool { return xfadeState(e.xstate.Load()) == xfadePriming }

// IsBlending reports whether a crossfade is mixing old and new output.
func (e *Engine) IsBlending() bool { return xfadeState(e.xstate.Load()) == xfadeBlending }

// CrossfadesCompleted returns the number of finished FFT crossfades.
func (e *Engine) CrossfadesCompleted() int64 { return e.xcycles.Load() }
