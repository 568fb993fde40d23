package stretch

// xfadeState is the phase of a live FFT size change.
type xfadeState int32

const (
	// xfadeIdle means no change is in progress.
	xfadeIdle xfadeState = iota
	// xfadePriming means the next render captures one transition block at
	// the old size, then switches the stretchers to the new size.
	xfadePriming
	// xfadeBlending means output is mixed from the captured block toward
	// the new configuration.
	xfadeBlending
)

func (s xfadeState) String() string {
	switch s {
	case xfadePriming:
		return "priming"
	case xfadeBlending:
		return "blending"
	default:
		return "idle"
	}
}

// crossfade blends the output of the old FFT size into the new one over a
// fixed number of frames. Guarded by the engine lock.
type crossfade struct {
	state     xfadeState
	requested int // FFT size the current change switches to
	deferred  int // request that arrived while blending, 0 if none
	counter   int
	length    int
	buffer    [][]float64 // per channel, length frames of old-size output
	completed int
}

func newCrossfade(channels, length int) crossfade {
	x := crossfade{length: length}
	x.ensureChannels(channels)
	return x
}

func (x *crossfade) ensureChannels(channels int) {
	for len(x.buffer) < channels {
		x.buffer = append(x.buffer, make([]float64, x.length))
	}
}

// request records a new target size. It returns true when the request
// started or changed a pending change.
func (x *crossfade) request(size, current int) bool {
	switch x.state {
	case xfadeIdle:
		if size == current {
			return false
		}
		x.state = xfadePriming
		x.requested = size
		x.counter = 0
		return true

	case xfadePriming:
		if size == x.requested {
			return false
		}
		if size == current {
			x.state = xfadeIdle
			return true
		}
		x.requested = size
		return true

	default:
		if size == x.deferred || (x.deferred == 0 && size == x.requested) {
			return false
		}
		x.deferred = size
		return true
	}
}

// capture stores one interleaved block of length frames as the old-size
// side of the blend.
func (x *crossfade) capture(interleaved []float64, channels int) {
	for ch := range channels {
		buf := x.buffer[ch]
		for i := range x.length {
			buf[i] = interleaved[i*channels+ch]
		}
	}
}

// blend mixes one fresh sample of channel ch with the captured block at
// the current position.
func (x *crossfade) blend(ch int, fresh float64) float64 {
	t := float64(x.counter) / float64(x.length)
	return t*fresh + (1-t)*x.buffer[ch][x.counter]
}

// advance moves one frame forward and reports whether the blend finished.
func (x *crossfade) advance() bool {
	x.counter++
	if x.counter < x.length {
		return false
	}
	x.state = xfadeIdle
	x.completed++
	return true
}

// takeDeferred starts the deferred request, if any, after a blend finished.
// It returns true when a new change started.
func (x *crossfade) takeDeferred(current int) bool {
	size := x.deferred
	x.deferred = 0
	if size == 0 || x.state != xfadeIdle {
		return false
	}
	return x.request(size, current)
}

// cancel drops any change in progress.
func (x *crossfade) cancel() {
	x.state = xfadeIdle
	x.deferred = 0
	x.counter = 0
}
