package buffer

// Buffer is an append-only, auto-resizing byte sequence used to assemble
// multi-fragment items (an item's local prefix followed by its overflow chain).
// It is NOT thread-safe.
type Buffer struct {
	data []byte // backing storage, len(data) is the capacity
	used int    // current write position
	// ReleaseFn is a callback to return the buffer to a pool.
	// If nil, Release() simply clears the data.
	ReleaseFn func()
}

// New creates and initializes a new Buffer.
func New(capacity int) *Buffer {
	if capacity < defaultCapacity {
		capacity = defaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of bytes written to the buffer.
func (b *Buffer) Len() int {
	return b.used
}

// Cap returns the current capacity of the backing storage.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Bytes returns the slice holding the written data.
// The slice is valid until the next call that grows the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.used]
}

// Grow ensures there is space for another n bytes.
// Capacity at least doubles on each resize, so appends are amortized O(1).
func (b *Buffer) Grow(n int) {
	if b.data == nil {
		panic("buffer: uninitialized")
	}
	if b.used+n <= len(b.data) {
		return
	}

	growBy := len(b.data)
	if growBy > maxGrowth {
		growBy = maxGrowth
	}
	if need := b.used + n - len(b.data); need > growBy {
		growBy = need
	}

	newData := make([]byte, len(b.data)+growBy)
	copy(newData, b.data[:b.used])
	b.data = newData
}

// Allocate returns a slice of size n from the buffer for direct writing.
// The returned slice is valid until the next Grow call.
func (b *Buffer) Allocate(n int) []byte {
	b.Grow(n)
	off := b.used
	b.used += n
	return b.data[off:b.used]
}

// Append appends p to the buffer.
func (b *Buffer) Append(p []byte) {
	b.Grow(len(p))
	copy(b.data[b.used:], p)
	b.used += len(p)
}

// Reset resets the write position, effectively clearing it for reuse.
// The underlying memory is retained.
func (b *Buffer) Reset() {
	b.used = 0
}

// Release releases the memory used by the buffer or returns it to the pool.
func (b *Buffer) Release() error {
	if b.ReleaseFn != nil {
		b.ReleaseFn()
	} else {
		b.data = nil
		b.used = 0
	}
	return nil
}
