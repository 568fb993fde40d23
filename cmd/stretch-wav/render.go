package main

import (
	"errors"
	"fmt"

	"github.com/go-audio/audio"

	stretch "github.com/tphakala/go-audio-stretch"
)

var errUnbounded = errors.New("looping without a loop limit needs -max-seconds")

type renderOptions struct {
	outputPath string
	outRate    int
	bitDepth   int
	block      int
	maxSeconds float64
	verbose    bool
}

type renderStats struct {
	channels     int
	outputFrames int64
	reachedEnd   bool
}

// renderBuffers holds the preallocated buffers of the render loop.
type renderBuffers struct {
	planar [][]float64
	ints   *audio.IntBuffer
	maxVal float64
}

func newRenderBuffers(channels, block, sampleRate, bitDepth int) *renderBuffers {
	planar := make([][]float64, channels)
	for ch := range planar {
		planar[ch] = make([]float64, block)
	}
	return &renderBuffers{
		planar: planar,
		ints: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           make([]int, block*channels),
			SourceBitDepth: bitDepth,
		},
		maxVal: maxValue(bitDepth),
	}
}

// outputLimit returns the number of frames to render at most, or 0 when
// nothing bounds the output.
func outputLimit(eng *stretch.Engine, outRate int, maxSeconds float64) int64 {
	seconds := eng.OutputDurationSecondsForRange(eng.PlayRange(), eng.FFTSize())
	if eng.IsPreviewingDry() {
		seconds /= eng.DryPlayRate()
	}
	if eng.IsLoopingEnabled() {
		if n := eng.MaxLoops(); n > 0 {
			seconds *= float64(n + 1)
		} else {
			seconds = 0
		}
	}
	if maxSeconds > 0 && (seconds == 0 || maxSeconds < seconds) {
		seconds = maxSeconds
	}
	return int64(seconds * float64(outRate))
}

// render pulls blocks from eng and writes them to a new WAV file.
func render(eng *stretch.Engine, opts renderOptions) (stats *renderStats, err error) {
	channels := eng.Channels()
	eng.Prepare(float64(opts.outRate))
	defer eng.Release()

	limit := outputLimit(eng, opts.outRate, opts.maxSeconds)
	if limit <= 0 {
		return nil, errUnbounded
	}

	output, err := createWAVOutput(opts.outputPath, opts.outRate, opts.bitDepth, channels)
	if err != nil {
		return nil, err
	}
	// Close errors matter here: the header sizes are written on close.
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	buffers := newRenderBuffers(channels, opts.block, opts.outRate, opts.bitDepth)
	stats = &renderStats{channels: channels}
	progress := newProgressTracker(limit, opts.verbose)

	for stats.outputFrames < limit {
		if eng.HasReachedEnd() {
			stats.reachedEnd = true
			break
		}

		n := int(min(int64(opts.block), limit-stats.outputFrames))
		eng.RenderBlock(buffers.planar, n)

		outputLen := interleaveInto(buffers.planar, n, buffers.ints.Data, buffers.maxVal)
		if err := output.WriteSamples(buffers.ints.Data[:outputLen]); err != nil {
			return nil, fmt.Errorf("failed to write audio data: %w", err)
		}

		stats.outputFrames += int64(n)
		progress.reportIfNeeded(stats.outputFrames)
	}

	return stats, nil
}
