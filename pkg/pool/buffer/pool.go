package buffer

import (
	"sync"

	"github.com/huynhanx03/pagekv/pkg/datastructs/buffer"
)

const (
	MinBitSize = 6  // 64 bytes (CPU cache line)
	Steps      = 20 // 64B to 32MB

	MinSize = 1 << MinBitSize
	MaxSize = 1 << (MinBitSize + Steps - 1)
)

// buckets holds growable scratch buffers in power-of-two size classes.
var buckets [Steps]sync.Pool

func init() {
	for i := range buckets {
		size := MinSize << i
		buckets[i].New = func() any {
			b := buffer.New(size)
			b.ReleaseFn = func() { Put(b) }
			return b
		}
	}
}

// Get returns an empty scratch buffer of the smallest size class.
func Get() *buffer.Buffer {
	return GetSize(MinSize)
}

// GetSize returns an empty buffer with capacity for at least size bytes.
// Release on the buffer hands it back to the pool.
func GetSize(size int) *buffer.Buffer {
	if size <= 0 {
		size = MinSize
	}
	idx := SizeToIndex(size)
	if idx >= Steps {
		return buffer.New(size)
	}
	b := buckets[idx].Get().(*buffer.Buffer)
	b.Reset()
	return b
}

// Put returns a buffer to the pool. Buffers that outgrew every class are dropped.
func Put(b *buffer.Buffer) {
	if b == nil || b.Cap() < MinSize {
		return
	}
	// File under the largest class the buffer can fully serve.
	idx := SizeToIndex(b.Cap()+1) - 1
	if idx >= Steps {
		return
	}
	b.Reset()
	buckets[idx].Put(b)
}

// SizeToIndex returns the size class index for a given size.
func SizeToIndex(n int) int {
	n--
	n >>= MinBitSize
	idx := 0
	for n > 0 {
		n >>= 1
		idx++
	}
	return idx
}
