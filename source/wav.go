package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// Common errors returned when loading audio.
var (
	// ErrInvalidWAV indicates a file that is not a readable PCM WAV file.
	ErrInvalidWAV = errors.New("invalid WAV file")

	// ErrEmptyAudio indicates audio without any frames.
	ErrEmptyAudio = errors.New("audio has no frames")
)

// Full-scale values for the supported PCM bit depths.
const (
	maxInt16 = 32768.0
	maxInt24 = 8388608.0
	maxInt32 = 2147483648.0
)

// fullScale returns the normalization divisor for bitDepth, or 0 when the
// depth is not supported.
func fullScale(bitDepth int) float64 {
	switch bitDepth {
	case 16:
		return maxInt16
	case 24:
		return maxInt24
	case 32:
		return maxInt32
	default:
		return 0
	}
}

// decodeFile reads a whole WAV file into memory.
func decodeFile(path string) (*audioData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return decodeWAV(f)
}

// decodeWAV reads a whole WAV stream and converts it to planar float64
// samples in [-1, 1).
func decodeWAV(r io.ReadSeeker) (*audioData, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidWAV)
	}

	bitDepth := int(dec.BitDepth)
	scale := fullScale(bitDepth)
	if scale == 0 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitDepth)
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, ErrEmptyAudio
	}

	data := &audioData{
		channels:   make([][]float64, channels),
		sampleRate: float64(buf.Format.SampleRate),
		frames:     int64(frames),
	}
	inv := 1 / scale
	for ch := range channels {
		data.channels[ch] = make([]float64, frames)
	}
	for i := range frames {
		base := i * channels
		for ch := range channels {
			data.channels[ch][i] = float64(buf.Data[base+ch]) * inv
		}
	}

	return data, nil
}

// Format describes a WAV file without its samples.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int64
}

// Probe reads the header of the WAV file at path. Frames is estimated from
// the header and is 0 when it gives no duration.
func Probe(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Format{}, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	format := dec.Format()
	bitDepth := int(dec.BitDepth)
	if fullScale(bitDepth) == 0 {
		return Format{}, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitDepth)
	}

	var frames int64
	if duration, err := dec.Duration(); err == nil {
		frames = int64(duration.Seconds()*float64(format.SampleRate) + 0.5)
	}

	return Format{
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
		BitDepth:   bitDepth,
		Frames:     frames,
	}, nil
}
