package stretch

import (
	"math"

	"github.com/tphakala/go-audio-stretch/internal/smooth"
)

// RenderBlock writes frames frames of output into out, one slice per
// channel. Channels beyond the engine's channel count are cleared. It never
// fails: without usable input the block is silent.
//
// RenderBlock does not allocate once Prepare has run, as long as frames
// stays within Config.MaxBlockFrames. The crossfade step of a live FFT size
// change rebuilds the stretchers and is the one exception.
func (e *Engine) RenderBlock(out [][]float64, frames int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range out {
		frames = min(frames, len(ch))
	}
	if frames <= 0 {
		return
	}
	for ch := e.channels; ch < len(out); ch++ {
		clear(out[ch][:frames])
	}
	if len(out) > e.channels {
		out = out[:e.channels]
	}

	info := e.inputInfo()
	usable := e.input != nil && info.Frames > 0

	if e.previewDry.Load() && usable {
		e.renderDry(out, frames)
		return
	}
	if e.wasDry {
		e.wasDry = false
		e.rs.SetRates(info.SampleRate, e.outRate.Load())
		e.rs.Reset()
	}

	if pauseState(e.pause.Load()) == paused {
		clearBlock(out, frames)
		return
	}

	if freeze := e.freezing.Load(); len(e.stretchers) > 0 && e.stretchers[0].IsFreezing() != freeze {
		if freeze && usable {
			e.freezePos.Store(float64(e.input.CurrentPosition()) / float64(info.Frames))
		}
		for _, s := range e.stretchers {
			s.SetFreezing(freeze)
		}
	}

	e.vol.SetTarget(smooth.DBToGain(e.volumeDB.Load()))

	if len(e.stretchers) == 0 || !usable || !e.prepared {
		clearBlock(out, frames)
		return
	}

	e.input.SetXFadeSeconds(e.loopXFade.Load())

	before := e.xfade.state
	e.resampleTask(frames)
	if before == xfadePriming && e.xfade.state == xfadeBlending {
		e.resampleTask(frames)
	}

	e.assemble(out, frames)
	e.applyPause(out, frames)
	e.outputCount += int64(frames)
}

// resampleTask fills the ring with synthesis output and resamples it into
// rsOut. In the priming state it produces one crossfade block instead and
// switches the stretchers to the requested FFT size.
func (e *Engine) resampleTask(frames int) {
	outFrames := frames
	if e.xfade.state == xfadePriming {
		outFrames = e.xfade.length
	}

	if len(e.rsOut) < outFrames*e.channels {
		e.rsOut = make([]float64, outFrames*e.channels)
	}
	if outFrames > max(e.cfg.MaxBlockFrames, e.xfade.length) {
		e.ensureRing(outFrames)
	}

	wanted, rsIn := e.rs.Prepare(outFrames, e.channels)
	e.fillRing(wanted * e.channels)
	e.ring.ReadInto(rsIn)
	e.rs.ResampleOut(e.rsOut, wanted, outFrames, e.channels)

	if e.xfade.state != xfadePriming {
		return
	}

	e.xfade.capture(e.rsOut, e.channels)
	if size := e.xfade.requested; size != int(e.fftSize.Load()) {
		e.fftSize.Store(int64(size))
		e.initObjects()
		e.logf("using FFT size %d, crossfading over %d frames", size, e.xfade.length)
	}
	e.xfade.state = xfadeBlending
	e.xfade.counter = 0
	e.xstate.Store(int32(xfadeBlending))
}

// fillRing runs the stretchers until the ring holds at least samples
// interleaved samples.
func (e *Engine) fillRing(samples int) {
	frames := e.input.Info().Frames
	ref := e.stretchers[0]

	for e.ring.Available() < samples {
		pos := float64(e.input.CurrentPosition()) / float64(frames)

		var readSize int
		if e.firstBuffer {
			readSize = ref.FillInputFrames()
			e.firstBuffer = false
		} else {
			readSize = ref.RequiredInputFrames(pos * 100)
		}

		read := 0
		if readSize > 0 {
			e.lastFilePos.Store(e.input.CurrentPosition())
			e.ensureInput(readSize)
			read = e.input.ReadNextBlock(e.inBuf[:e.channels], readSize)
		}

		if e.randCount%e.envelope.Rate() == 0 {
			e.envelope.UpdateRandomState()
		}
		e.randCount++

		onset := 0.0
		for ch, s := range e.stretchers[:e.channels] {
			onset = max(onset, s.Process(e.inBuf[ch], read))
		}
		for _, s := range e.stretchers[:e.channels] {
			s.HereIsOnset(onset)
		}

		outSize := ref.OutputBufferSize()
		for ch, s := range e.stretchers[:e.channels] {
			e.outViews[ch] = s.Output()[:outSize]
		}
		if e.channels > 1 && e.mixer != nil {
			e.mixer.Process(e.outViews[0], e.outViews[1], outSize, pos*100)
		}

		if skip := ref.SkipFrames(); skip > 0 {
			e.input.Skip(skip)
		}
		for _, s := range e.stretchers[1:e.channels] {
			s.SkipFrames()
		}

		n := outSize * e.channels
		if len(e.interleaved) < n {
			e.interleaved = make([]float64, n)
		}
		e.ops.Interleave(e.interleaved[:n], e.outViews, outSize)
		e.ring.Write(e.interleaved[:n])
	}
}

// ensureInput grows the per-channel read buffers for stretchers that ask
// for more than the usual three blocks.
func (e *Engine) ensureInput(frames int) {
	for ch := range e.channels {
		if len(e.inBuf[ch]) < frames {
			e.inBuf[ch] = make([]float64, frames)
		}
	}
}

// assemble applies the volume ramp, the FFT crossfade and the output ceiling,
// and counts trailing silence once the input has ended.
func (e *Engine) assemble(out [][]float64, frames int) {
	limit := outputCeiling
	if e.clipOutput.Load() {
		limit = clipCeiling
	}

	fft := e.fftSize.Load()
	countSilence := e.input.HasEnded() && e.outputCount >= 2*fft
	threshold := smooth.DBToGain(silenceThresholdDB)
	silence := e.silence.Load()
	finished := false

	for i := range frames {
		gain := e.vol.Next()
		blending := e.xfade.state == xfadeBlending
		mixed := 0.0

		for ch := range out {
			s := e.rsOut[i*e.channels+ch]
			if blending {
				s = e.xfade.blend(ch, s)
			}
			s = max(-limit, min(limit, s*gain))
			out[ch][i] = s
			mixed += s
		}

		if blending && e.xfade.advance() {
			finished = true
		}

		if countSilence {
			if math.Abs(mixed) < threshold {
				silence++
			} else {
				silence = 0
			}
		}
	}
	e.silence.Store(silence)

	if finished {
		e.xcycles.Add(1)
		e.logf("FFT crossfade finished")
		if e.xfade.takeDeferred(int(e.fftSize.Load())) {
			e.logf("starting deferred FFT size change to %d", e.xfade.requested)
		}
		e.xstate.Store(int32(e.xfade.state))
	}
}

// applyPause ramps the block for a pending pause or resume and completes
// the transition.
func (e *Engine) applyPause(out [][]float64, frames int) {
	switch pauseState(e.pause.Load()) {
	case pauseRequested:
		applyGainRamp(out, frames, 1, 0)
		e.pause.Store(int32(paused))
	case resumeRequested:
		applyGainRamp(out, frames, 0, 1)
		e.pause.Store(int32(playing))
	}
}

// renderDry plays the input resampled at the dry play rate, bypassing the
// stretchers.
func (e *Engine) renderDry(out [][]float64, frames int) {
	e.wasDry = true

	if pauseState(e.pause.Load()) == paused {
		clearBlock(out, frames)
		return
	}

	info := e.input.Info()
	gain := smooth.DBToGain(e.volumeDB.Load())
	e.input.SetXFadeSeconds(e.loopXFade.Load())
	e.rs.SetRates(info.SampleRate*e.dryRate.Load(), e.outRate.Load())

	if len(e.rsOut) < frames*e.channels {
		e.rsOut = make([]float64, frames*e.channels)
	}

	wanted, rsIn := e.rs.Prepare(frames, e.channels)
	if len(e.dryBuf[0]) < wanted {
		for ch := range e.dryBuf {
			e.dryBuf[ch] = make([]float64, wanted)
		}
	}
	read := e.input.ReadNextBlock(e.dryBuf, wanted)
	e.ops.Interleave(rsIn, e.dryBuf, wanted)
	e.rs.ResampleOut(e.rsOut, read, frames, e.channels)

	if len(out) == e.channels {
		e.ops.Deinterleave(out, e.rsOut, frames, gain)
	} else {
		for ch := range out {
			dst := out[ch][:frames]
			for i := range dst {
				dst[i] = e.rsOut[i*e.channels+ch]
			}
			e.ops.Scale(dst, dst, gain)
		}
	}

	e.applyPause(out, frames)
}
