package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_PushGetOrder(t *testing.T) {
	b := New(4)

	b.Push(1)
	b.Push(2)
	b.Push(3)
	require.Equal(t, 3, b.Available())

	assert.InDelta(t, 1.0, b.Get(), 0)
	assert.InDelta(t, 2.0, b.Get(), 0)

	// Wrap around the end of the storage
	b.Push(4)
	b.Push(5)
	b.Push(6)
	assert.Equal(t, 4, b.Available())
	assert.Equal(t, 0, b.Space())

	for _, want := range []float64{3, 4, 5, 6} {
		assert.InDelta(t, want, b.Get(), 0)
	}
	assert.Equal(t, 0, b.Available())
}

func TestRingBuffer_GetEmptyReturnsZero(t *testing.T) {
	b := New(2)
	assert.InDelta(t, 0.0, b.Get(), 0)
	assert.Equal(t, 0, b.Available())
}

func TestRingBuffer_OverwriteWhenFull(t *testing.T) {
	b := New(3)
	b.Write([]float64{1, 2, 3, 4})

	assert.Equal(t, 3, b.Available())
	assert.InDelta(t, 2.0, b.Get(), 0, "oldest sample should have been overwritten")
}

func TestRingBuffer_ReadInto(t *testing.T) {
	b := New(5)
	b.Write([]float64{1, 2, 3})
	_ = b.Get()
	_ = b.Get()
	b.Write([]float64{4, 5, 6, 7}) // wraps

	dst := make([]float64, 7)
	n := b.ReadInto(dst)

	assert.Equal(t, 5, n)
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 0, 0}, dst)
	assert.Equal(t, 0, b.Available())
}

func TestRingBuffer_ClearKeepsCapacity(t *testing.T) {
	b := New(8)
	b.Write([]float64{1, 2, 3})
	b.Clear()

	assert.Equal(t, 0, b.Available())
	assert.Equal(t, 8, b.Capacity())
}

func TestRingBuffer_ResizeOnlyGrows(t *testing.T) {
	b := New(8)
	b.Write([]float64{1, 2})

	b.Resize(4)
	assert.Equal(t, 8, b.Capacity())
	assert.Equal(t, 2, b.Available(), "no-op resize must keep content")

	b.Resize(32)
	assert.Equal(t, 32, b.Capacity())
	assert.Equal(t, 0, b.Available())

	for i := range 32 {
		b.Push(float64(i))
	}
	assert.Equal(t, 32, b.Available())
}

func TestNew_MinimumCapacity(t *testing.T) {
	b := New(0)
	assert.Equal(t, 1, b.Capacity())
}
