// Package ringbuf holds the most recent audio samples in a fixed circular store.
package ringbuf

// Buffer is a fixed-capacity circular store of float32 samples.
// It has a single writer; reads happen on the writer's goroutine.
type Buffer struct {
	buf []float32
	pos int
}

// New returns a Buffer with the given capacity. Capacity below 1 is raised to 1.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{buf: make([]float32, capacity)}
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Cursor returns the next write position, always in [0, Cap()).
func (b *Buffer) Cursor() int {
	return b.pos
}

// Push appends one sample, overwriting the oldest when full.
func (b *Buffer) Push(sample float32) {
	b.buf[b.pos] = sample
	b.pos++
	if b.pos == len(b.buf) {
		b.pos = 0
	}
}

// Write pushes every sample of block in order.
func (b *Buffer) Write(block []float32) {
	for len(block) > 0 {
		n := copy(b.buf[b.pos:], block)
		block = block[n:]
		b.pos = (b.pos + n) % len(b.buf)
	}
}

// LatestWindow returns a copy of the most recent n samples, oldest first.
// n is clamped to Cap(); slots never written read as zero.
func (b *Buffer) LatestWindow(n int) []float32 {
	if n <= 0 {
		return []float32{}
	}
	if n > len(b.buf) {
		n = len(b.buf)
	}
	out := make([]float32, n)
	b.LatestWindowInto(out)
	return out
}

// LatestWindowInto fills dst with the most recent len(dst) samples, oldest first,
// and returns the number written. len(dst) beyond Cap() is clamped.
func (b *Buffer) LatestWindowInto(dst []float32) int {
	n := len(dst)
	if n > len(b.buf) {
		n = len(b.buf)
	}
	if n == 0 {
		return 0
	}
	start := b.pos - n
	if start < 0 {
		start += len(b.buf)
	}
	if start+n <= len(b.buf) {
		copy(dst[:n], b.buf[start:start+n])
	} else {
		first := copy(dst, b.buf[start:])
		copy(dst[first:n], b.buf[:n-first])
	}
	return n
}

// Reset zeroes the contents and rewinds the cursor.
func (b *Buffer) Reset() {
	clear(b.buf)
	b.pos = 0
}
