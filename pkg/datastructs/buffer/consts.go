package buffer

const (
	// defaultCapacity is the default initial capacity for a new Buffer.
	defaultCapacity = 64

	// maxGrowth is the maximum amount of bytes to grow by in a single step (1GB).
	maxGrowth = 1 << 30
)
