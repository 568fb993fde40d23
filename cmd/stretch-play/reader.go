package main

import (
	"encoding/binary"
	"math"

	stretch "github.com/tphakala/go-audio-stretch"
	"github.com/tphakala/go-audio-stretch/internal/simdops"
)

const bytesPerFloat32 = 4

// engineReader is the io.Reader the audio device pulls from. Every Read
// renders as many whole frames as fit into p, in blocks of at most block
// frames, as interleaved little-endian float32.
type engineReader struct {
	eng      *stretch.Engine
	channels int
	block    int
	ops      *simdops.Ops[float32]

	planar   [][]float64
	planar32 [][]float32
	samples  []float32
}

func newEngineReader(eng *stretch.Engine, block int) *engineReader {
	channels := eng.Channels()
	r := &engineReader{
		eng:      eng,
		channels: channels,
		block:    block,
		ops:      simdops.For[float32](),
		planar:   make([][]float64, channels),
		planar32: make([][]float32, channels),
		samples:  make([]float32, block*channels),
	}
	for ch := range channels {
		r.planar[ch] = make([]float64, block)
		r.planar32[ch] = make([]float32, block)
	}
	return r
}

// Read never fails. Trailing bytes that do not make up a whole frame are
// zeroed.
func (r *engineReader) Read(p []byte) (int, error) {
	frameBytes := bytesPerFloat32 * r.channels
	frames := len(p) / frameBytes
	written := 0

	for frames > 0 {
		n := min(frames, r.block)
		r.eng.RenderBlock(r.planar, n)

		for ch := range r.channels {
			src, dst := r.planar[ch][:n], r.planar32[ch][:n]
			for i, v := range src {
				dst[i] = float32(v)
			}
		}
		r.ops.Interleave(r.samples, r.planar32, n)

		for _, v := range r.samples[:n*r.channels] {
			binary.LittleEndian.PutUint32(p[written:], math.Float32bits(v))
			written += bytesPerFloat32
		}
		frames -= n
	}

	clear(p[written:])
	return len(p), nil
}
