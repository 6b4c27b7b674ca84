package hash

import (
	"github.com/cespare/xxhash/v2"
)

// PageID mixes a page id into a well-distributed 32-bit bucket hash.
// The multiply/xor-shift rounds follow the Murmur3 finalizer.
func PageID(id uint32) uint32 {
	h := id
	h *= 0x1b873593
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// Key returns the 32-bit hash used to place a key in a hash index.
// The value is persisted next to every bucket entry, so it must stay stable across releases.
func Key(key []byte) uint32 {
	return uint32(xxhash.Sum64(key))
}

// Checksum returns the 64-bit checksum stored in the file header.
func Checksum(b []byte) uint64 {
	return xxhash.Sum64(b)
}
