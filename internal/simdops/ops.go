// Package simdops provides the vector kernels used by the render loop, for
// both float32 and float64 buffers.
//
// Hot paths resolve an Ops table once and call through it, so the element
// type is chosen at construction time rather than per sample.
package simdops

import (
	"github.com/tphakala/simd/f32"
	"github.com/tphakala/simd/f64"
)

// Float is the type constraint for supported floating-point types.
type Float interface {
	float32 | float64
}

// Ops provides SIMD-accelerated operations for type F.
type Ops[F Float] struct {
	// DotProductUnsafe computes the dot product without bounds checking.
	// Use only when slices are guaranteed to have equal length.
	DotProductUnsafe func(a, b []F) F

	// Interleave2 interleaves two slices: dst[0]=a[0], dst[1]=b[0], dst[2]=a[1], ...
	Interleave2 func(dst, a, b []F)

	// Scale multiplies each element by scalar s: dst[i] = a[i] * s
	Scale func(dst, a []F, s F)
}

var (
	ops32 = Ops[float32]{
		DotProductUnsafe: f32.DotProductUnsafe,
		Interleave2:      f32.Interleave2,
		Scale:            f32.Scale,
	}
	ops64 = Ops[float64]{
		DotProductUnsafe: f64.DotProductUnsafe,
		Interleave2:      f64.Interleave2,
		Scale:            f64.Scale,
	}
)

// For returns the Ops instance for type F.
func For[F Float]() *Ops[F] {
	var zero F
	switch any(zero).(type) {
	case float32:
		ops, ok := any(&ops32).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float32")
		}
		return ops
	case float64:
		ops, ok := any(&ops64).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float64")
		}
		return ops
	default:
		panic("simdops: unsupported float type")
	}
}

// Energy returns the sum of squares of a.
func (o *Ops[F]) Energy(a []F) F {
	if len(a) == 0 {
		return 0
	}
	return o.DotProductUnsafe(a, a)
}

// Interleave writes the planar channels into dst as interleaved frames.
// Two channels go through the vector kernel; other layouts use a plain loop.
func (o *Ops[F]) Interleave(dst []F, channels [][]F, frames int) {
	if len(channels) == 2 {
		o.Interleave2(dst[:2*frames], channels[0][:frames], channels[1][:frames])
		return
	}

	n := len(channels)
	for ch, src := range channels {
		for i := range frames {
			dst[i*n+ch] = src[i]
		}
	}
}

// Deinterleave splits interleaved frames from src into planar channels,
// multiplying every sample by gain.
func (o *Ops[F]) Deinterleave(channels [][]F, src []F, frames int, gain F) {
	n := len(channels)
	for ch, dst := range channels {
		for i := range frames {
			dst[i] = src[i*n+ch]
		}
		if gain != 1 {
			o.Scale(dst[:frames], dst[:frames], gain)
		}
	}
}
