package lru

import (
	"github.com/huynhanx03/pagekv/pkg/common/cache"
	"github.com/huynhanx03/pagekv/pkg/hash"
	"github.com/huynhanx03/pagekv/pkg/utils"
)

var _ cache.LocalCache[uint32, int] = (*Cache[int])(nil)

const (
	nilIndex       = -1
	initialBuckets = 64
)

// node is one arena slot. Links are arena indices, nilIndex terminates.
type node[V any] struct {
	key   uint32
	value V
	prev  int32
	next  int32
	chain int32
}

// Cache is a bounded LRU map from page id to V. All nodes are allocated up front and
// shuttle between the recency list and a free list, so steady-state use never allocates.
// It is NOT thread-safe; the owner serializes access.
type Cache[V any] struct {
	nodes   []node[V]
	buckets []int32
	head    int32 // most recently used
	tail    int32 // least recently used
	free    int32
	used    int

	synchronizer func(id uint32, v V)
	evictable    func(v V) bool
}

// New creates a cache holding at most capacity entries.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		panic("lru: capacity must be positive")
	}
	c := &Cache[V]{
		nodes: make([]node[V], capacity),
		head:  nilIndex,
		tail:  nilIndex,
	}
	for i := range c.nodes {
		c.nodes[i].next = int32(i + 1)
	}
	c.nodes[capacity-1].next = nilIndex
	c.free = 0
	c.buckets = newBuckets(min(initialBuckets, utils.CeilToPowerOfTwo(capacity)))
	return c
}

// SetSynchronizer registers fn to run before an entry leaves the cache,
// on eviction as well as on Delete and Clear.
func (c *Cache[V]) SetSynchronizer(fn func(id uint32, v V)) {
	c.synchronizer = fn
}

// SetEvictable registers a predicate that vetoes eviction of entries in use.
func (c *Cache[V]) SetEvictable(fn func(v V) bool) {
	c.evictable = fn
}

// Get returns the value for id and promotes it to most recently used.
func (c *Cache[V]) Get(id uint32) (V, bool) {
	idx := c.lookup(id)
	if idx == nilIndex {
		var zero V
		return zero, false
	}
	c.moveToFront(idx)
	return c.nodes[idx].value, true
}

// Peek returns the value for id without touching recency.
func (c *Cache[V]) Peek(id uint32) (V, bool) {
	idx := c.lookup(id)
	if idx == nilIndex {
		var zero V
		return zero, false
	}
	return c.nodes[idx].value, true
}

// Set admits or updates id and promotes it. When the cache is full the least recently used
// evictable entry is synchronized and dropped first; Set reports false if none qualifies.
func (c *Cache[V]) Set(id uint32, v V) bool {
	if idx := c.lookup(id); idx != nilIndex {
		c.nodes[idx].value = v
		c.moveToFront(idx)
		return true
	}

	if c.free == nilIndex {
		victim := c.victim()
		if victim == nilIndex {
			return false
		}
		c.remove(victim)
	}

	idx := c.free
	c.free = c.nodes[idx].next
	n := &c.nodes[idx]
	n.key = id
	n.value = v
	n.prev = nilIndex
	n.next = nilIndex
	c.linkFront(idx)
	c.insertHash(idx)
	c.used++

	if c.used == len(c.buckets) {
		c.rehash(len(c.buckets) << 1)
	}
	return true
}

// Delete synchronizes and removes id if present.
func (c *Cache[V]) Delete(id uint32) {
	if idx := c.lookup(id); idx != nilIndex {
		c.remove(idx)
	}
}

// Clear synchronizes and removes every entry, most recently used first.
func (c *Cache[V]) Clear() {
	for c.head != nilIndex {
		c.remove(c.head)
	}
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return c.used
}

// Cap returns the maximum number of entries.
func (c *Cache[V]) Cap() int {
	return len(c.nodes)
}

// Keys returns the cached ids, most recently used first.
func (c *Cache[V]) Keys() []uint32 {
	keys := make([]uint32, 0, c.used)
	for i := c.head; i != nilIndex; i = c.nodes[i].next {
		keys = append(keys, c.nodes[i].key)
	}
	return keys
}

func (c *Cache[V]) victim() int32 {
	for i := c.tail; i != nilIndex; i = c.nodes[i].prev {
		if c.evictable == nil || c.evictable(c.nodes[i].value) {
			return i
		}
	}
	return nilIndex
}

// remove synchronizes idx, unlinks it and returns it to the free list.
func (c *Cache[V]) remove(idx int32) {
	n := &c.nodes[idx]
	if c.synchronizer != nil {
		c.synchronizer(n.key, n.value)
	}
	c.removeHash(idx)
	c.unlink(idx)

	var zero V
	n.value = zero
	n.next = c.free
	n.prev = nilIndex
	c.free = idx
	c.used--
}

// =============================================================================
// Recency list
// =============================================================================

func (c *Cache[V]) linkFront(idx int32) {
	n := &c.nodes[idx]
	n.prev = nilIndex
	n.next = c.head
	if c.head != nilIndex {
		c.nodes[c.head].prev = idx
	}
	c.head = idx
	if c.tail == nilIndex {
		c.tail = idx
	}
}

func (c *Cache[V]) unlink(idx int32) {
	n := &c.nodes[idx]
	if n.prev != nilIndex {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nilIndex {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nilIndex, nilIndex
}

func (c *Cache[V]) moveToFront(idx int32) {
	if c.head == idx {
		return
	}
	c.unlink(idx)
	c.linkFront(idx)
}

// =============================================================================
// Hash index
// =============================================================================

func newBuckets(n int) []int32 {
	b := make([]int32, n)
	for i := range b {
		b[i] = nilIndex
	}
	return b
}

func (c *Cache[V]) bucket(id uint32) int {
	return int(hash.PageID(id) & uint32(len(c.buckets)-1))
}

func (c *Cache[V]) lookup(id uint32) int32 {
	for i := c.buckets[c.bucket(id)]; i != nilIndex; i = c.nodes[i].chain {
		if c.nodes[i].key == id {
			return i
		}
	}
	return nilIndex
}

func (c *Cache[V]) insertHash(idx int32) {
	b := c.bucket(c.nodes[idx].key)
	c.nodes[idx].chain = c.buckets[b]
	c.buckets[b] = idx
}

func (c *Cache[V]) removeHash(idx int32) {
	b := c.bucket(c.nodes[idx].key)
	link := &c.buckets[b]
	for *link != nilIndex {
		if *link == idx {
			*link = c.nodes[idx].chain
			c.nodes[idx].chain = nilIndex
			return
		}
		link = &c.nodes[*link].chain
	}
}

func (c *Cache[V]) rehash(n int) {
	c.buckets = newBuckets(n)
	for i := c.head; i != nilIndex; i = c.nodes[i].next {
		c.insertHash(i)
	}
}
