package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	stretch "github.com/tphakala/go-audio-stretch"
)

const (
	// Channel count constants for fast paths
	monoChannels   = 1
	stereoChannels = 2

	// Conversion constants
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0
)

// maxValue returns the largest sample value for bitDepth.
func maxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// parseRange parses "start:end" with both ends in [0,1].
func parseRange(s string) (stretch.Range, error) {
	startStr, endStr, ok := strings.Cut(s, ":")
	if !ok {
		return stretch.Range{}, fmt.Errorf("invalid range %q: want start:end", s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(startStr), 64)
	if err != nil {
		return stretch.Range{}, fmt.Errorf("invalid range start %q: %w", startStr, err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(endStr), 64)
	if err != nil {
		return stretch.Range{}, fmt.Errorf("invalid range end %q: %w", endStr, err)
	}

	r := stretch.Range{Start: start, End: end}
	if r.Clamp() != r || r.IsEmpty() {
		return stretch.Range{}, fmt.Errorf("invalid range %q: need 0 <= start < end <= 1", s)
	}
	return r, nil
}

// interleaveInto clamps planar samples to [-1, 1], scales them by maxVal
// and interleaves them into dst. It returns the number of values written,
// or 0 when dst is too short.
func interleaveInto(channels [][]float64, frames int, dst []int, maxVal float64) int {
	numChannels := len(channels)
	totalLen := frames * numChannels
	if len(dst) < totalLen {
		return 0
	}

	// Fast path for mono
	if numChannels == monoChannels {
		for i, s := range channels[0][:frames] {
			dst[i] = int(clampUnit(s) * maxVal)
		}
		return totalLen
	}

	// Fast path for stereo
	if numChannels == stereoChannels {
		ch0, ch1 := channels[0][:frames], channels[1][:frames]
		for i := range frames {
			idx := i * stereoChannels
			dst[idx] = int(clampUnit(ch0[i]) * maxVal)
			dst[idx+1] = int(clampUnit(ch1[i]) * maxVal)
		}
		return totalLen
	}

	for i := range frames {
		base := i * numChannels
		for ch := range numChannels {
			dst[base+ch] = int(clampUnit(channels[ch][i]) * maxVal)
		}
	}
	return totalLen
}

func clampUnit(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
	verbose      bool
}

// newProgressTracker creates a new progress tracker.
func newProgressTracker(totalFrames int64, verbose bool) *progressTracker {
	return &progressTracker{
		totalFrames: totalFrames,
		verbose:     verbose,
	}
}

// reportIfNeeded reports progress if threshold crossed.
func (p *progressTracker) reportIfNeeded(currentFrames int64) {
	if !p.verbose || p.totalFrames == 0 {
		return
	}

	progress := int(float64(currentFrames) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		log.Printf("Progress: %d%%", progress)
		p.lastProgress = progress
	}
}
