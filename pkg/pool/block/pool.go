package block

// Block is one fixed-size memory block handed out by a Pool.
// ID identifies the block inside the pool's arena and must be passed back on Put.
type Block struct {
	ID   int32
	Data []byte
}

// Pool is a preallocated set of equal-size blocks carved out of one arena.
// Get and Put are O(1) and never allocate. It is NOT thread-safe; the owner
// serializes access.
type Pool struct {
	arena     []byte
	next      []int32 // free-list links, indexed by block id
	free      int32   // head of the free list, -1 when exhausted
	available int
	blockSize int
}

// New creates a pool of capacity blocks of blockSize bytes each.
func New(blockSize, capacity int) *Pool {
	if blockSize <= 0 || capacity <= 0 {
		panic("block: size and capacity must be positive")
	}
	p := &Pool{
		arena:     make([]byte, blockSize*capacity),
		next:      make([]int32, capacity),
		blockSize: blockSize,
		available: capacity,
	}
	for i := range p.next {
		p.next[i] = int32(i + 1)
	}
	p.next[capacity-1] = -1
	p.free = 0
	return p
}

// Get pops a block from the free list. It reports false when the pool is exhausted.
func (p *Pool) Get() (Block, bool) {
	if p.free < 0 {
		return Block{ID: -1}, false
	}
	id := p.free
	p.free = p.next[id]
	p.next[id] = -1
	p.available--
	return Block{ID: id, Data: p.data(id)}, true
}

// Put returns a block to the pool.
func (p *Pool) Put(b Block) {
	if b.ID < 0 || int(b.ID) >= len(p.next) {
		panic("block: foreign block returned to pool")
	}
	p.next[b.ID] = p.free
	p.free = b.ID
	p.available++
}

// Zero clears the content of a block.
func Zero(b Block) {
	clear(b.Data)
}

// Free returns the number of blocks on the free list.
func (p *Pool) Free() int {
	return p.available
}

// Cap returns the total number of blocks.
func (p *Pool) Cap() int {
	return len(p.next)
}

func (p *Pool) data(id int32) []byte {
	start := int(id) * p.blockSize
	return p.arena[start : start+p.blockSize : start+p.blockSize]
}
