package page

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Type discriminates page layouts. It is the first field of every page.
type Type uint16

const (
	TypeFree Type = iota // never written
	TypeInternal
	TypeLeaf
	TypeHashIndex
	TypeBucket
	TypeOverflow
)

var ErrCorrupt = errors.New("corrupt page")

func (t Type) String() string {
	switch t {
	case TypeFree:
		return "free"
	case TypeInternal:
		return "internal"
	case TypeLeaf:
		return "leaf"
	case TypeHashIndex:
		return "hash-index"
	case TypeBucket:
		return "bucket"
	case TypeOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// TypeOf reads the type of a raw page.
func TypeOf(b []byte) Type {
	return Type(binary.LittleEndian.Uint16(b))
}

func setType(b []byte, t Type) {
	binary.LittleEndian.PutUint16(b, uint16(t))
	binary.LittleEndian.PutUint16(b[2:], 0)
}

func u32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

func putU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}
