package stretch

// pauseState is the pause state machine. Requests take effect with a gain
// ramp over the next rendered block.
type pauseState int32

const (
	playing pauseState = iota
	pauseRequested
	paused
	resumeRequested
)

// applyGainRamp scales frames samples of every channel by a gain moving
// linearly from start to end.
func applyGainRamp(out [][]float64, frames int, start, end float64) {
	if frames <= 0 {
		return
	}
	step := (end - start) / float64(frames)
	for _, ch := range out {
		g := start
		for i := range min(frames, len(ch)) {
			ch[i] *= g
			g += step
		}
	}
}

// clearBlock zeroes frames samples of every channel.
func clearBlock(out [][]float64, frames int) {
	for _, ch := range out {
		clear(ch[:min(frames, len(ch))])
	}
}
