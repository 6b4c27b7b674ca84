package utils

const (
	bitSize       = 32 << (^uint(0) >> 63)
	maxIntHeadBit = 1 << (bitSize - 2)

	// alignWidth is the byte alignment of every encoded item on a page.
	alignWidth = 4
)

// IsPowerOfTwo reports whether the given n is a power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// CeilToPowerOfTwo returns n if it is a power-of-two, otherwise the next-highest power-of-two.
func CeilToPowerOfTwo(n int) int {
	if n&maxIntHeadBit != 0 && n > maxIntHeadBit {
		panic("argument is too large")
	}

	if n <= 2 {
		return 2
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++

	return n
}

// AlignUp rounds n up to the next multiple of the item alignment.
func AlignUp(n int) int {
	return (n + alignWidth - 1) &^ (alignWidth - 1)
}

// AlignDown rounds n down to a multiple of the item alignment.
func AlignDown(n int) int {
	return n &^ (alignWidth - 1)
}
