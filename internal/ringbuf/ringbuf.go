// Package ringbuf implements the fixed-capacity sample queue that sits between
// the synthesis loop and the output resampler.
package ringbuf

// minCapacity is the smallest capacity a RingBuffer is created with.
const minCapacity = 1

// RingBuffer is a circular buffer of interleaved samples.
//
// It is not safe for concurrent use. The engine only touches it while holding
// its own lock, so a single writer and a single reader share it in turn.
// Push never grows the buffer: callers size it with Resize so that the
// producer never has to write more than Capacity()-Available() samples.
type RingBuffer struct {
	data     []float64
	capacity int
	size     int
	readPos  int
	writePos int
}

// New creates a ring buffer with the given capacity.
func New(capacity int) *RingBuffer {
	if capacity < minCapacity {
		capacity = minCapacity
	}

	return &RingBuffer{
		data:     make([]float64, capacity),
		capacity: capacity,
	}
}

// Push appends one sample. When the buffer is full the oldest sample is
// overwritten.
func (b *RingBuffer) Push(sample float64) {
	b.data[b.writePos] = sample
	b.writePos++
	if b.writePos == b.capacity {
		b.writePos = 0
	}

	if b.size == b.capacity {
		b.readPos = b.writePos
		return
	}
	b.size++
}

// Write appends all samples in order.
func (b *RingBuffer) Write(samples []float64) {
	for _, s := range samples {
		b.Push(s)
	}
}

// Get pops the oldest sample. Reading from an empty buffer returns 0 and
// leaves the buffer untouched; callers are expected to check Available first.
func (b *RingBuffer) Get() float64 {
	if b.size == 0 {
		return 0
	}

	s := b.data[b.readPos]
	b.readPos++
	if b.readPos == b.capacity {
		b.readPos = 0
	}
	b.size--

	return s
}

// ReadInto pops len(dst) samples into dst and returns how many were popped.
// Missing samples are zero-filled.
func (b *RingBuffer) ReadInto(dst []float64) int {
	n := min(len(dst), b.size)

	// Copy in at most two contiguous runs
	first := min(n, b.capacity-b.readPos)
	copy(dst[:first], b.data[b.readPos:b.readPos+first])
	copy(dst[first:n], b.data[:n-first])

	b.readPos = (b.readPos + n) % b.capacity
	b.size -= n

	clear(dst[n:])

	return n
}

// Available returns the number of samples waiting to be read.
func (b *RingBuffer) Available() int {
	return b.size
}

// Space returns the number of samples that can be pushed without overwriting.
func (b *RingBuffer) Space() int {
	return b.capacity - b.size
}

// Capacity returns the current buffer capacity.
func (b *RingBuffer) Capacity() int {
	return b.capacity
}

// Clear empties the buffer without releasing its storage.
func (b *RingBuffer) Clear() {
	b.size = 0
	b.readPos = 0
	b.writePos = 0
}

// Resize grows the buffer to hold at least n samples. It never shrinks, and
// the buffer is emptied when it grows: pending samples belong to the previous
// configuration and are not carried over.
func (b *RingBuffer) Resize(n int) {
	if n <= b.capacity {
		return
	}

	b.data = make([]float64, n)
	b.capacity = n
	b.Clear()
}
