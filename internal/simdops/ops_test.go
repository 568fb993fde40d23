package simdops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor_ReturnsSharedTables(t *testing.T) {
	assert.Same(t, &ops64, For[float64]())
	assert.Same(t, &ops32, For[float32]())
}

func TestOps_Energy(t *testing.T) {
	ops := For[float64]()
	assert.InDelta(t, 0.0, ops.Energy(nil), 0)
	assert.InDelta(t, 30.0, ops.Energy([]float64{1, 2, 3, 4}), 1e-12)
}

func TestOps_InterleaveStereo(t *testing.T) {
	ops := For[float32]()
	l := []float32{1, 2, 3}
	r := []float32{-1, -2, -3}
	dst := make([]float32, 6)

	ops.Interleave(dst, [][]float32{l, r}, 3)
	assert.Equal(t, []float32{1, -1, 2, -2, 3, -3}, dst)
}

func TestOps_InterleaveRoundTrip(t *testing.T) {
	ops := For[float64]()
	in := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	inter := make([]float64, 6)
	ops.Interleave(inter, in, 2)
	require.Equal(t, []float64{1, 3, 5, 2, 4, 6}, inter)

	out := [][]float64{make([]float64, 2), make([]float64, 2), make([]float64, 2)}
	ops.Deinterleave(out, inter, 2, 0.5)
	assert.Equal(t, [][]float64{{0.5, 1}, {1.5, 2}, {2.5, 3}}, out)
}
