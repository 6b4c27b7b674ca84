package page

import (
	"github.com/pkg/errors"
)

// SlottedHeaderSize is the fixed prefix of B+Tree and bucket pages.
//
//	type u16 | reserved u16 | high u32 | count u32 | id u32 |
//	parent u32 | prev u32 | next u32 | aux u32
const SlottedHeaderSize = 32

// SlotSize is the width of one entry of the offset array.
const SlotSize = 4

const (
	offHigh   = 4
	offCount  = 8
	offID     = 12
	offParent = 16
	offPrev   = 20
	offNext   = 24
	offAux    = 28
)

// Slotted is a view over a page holding an offset array that grows upward from the
// header and payloads packed downward from the page end.
type Slotted []byte

// Init formats b as an empty slotted page.
func (s Slotted) Init(t Type, id uint32) {
	clear(s[:SlottedHeaderSize])
	setType(s, t)
	s.SetHigh(uint32(len(s)))
	putU32(s, offID, id)
}

func (s Slotted) Type() Type { return TypeOf(s) }
func (s Slotted) High() uint32 { return u32(s, offHigh) }
func (s Slotted) SetHigh(v uint32) { putU32(s, offHigh, v) }
func (s Slotted) Count() int { return int(u32(s, offCount)) }
func (s Slotted) SetCount(n int) { putU32(s, offCount, uint32(n)) }
func (s Slotted) ID() uint32 { return u32(s, offID) }
func (s Slotted) Parent() uint32 { return u32(s, offParent) }
func (s Slotted) Prev() uint32 { return u32(s, offPrev) }
func (s Slotted) Next() uint32 { return u32(s, offNext) }

func (s Slotted) SetParent(id uint32) { putU32(s, offParent, id) }
func (s Slotted) SetPrev(id uint32) { putU32(s, offPrev, id) }
func (s Slotted) SetNext(id uint32) { putU32(s, offNext, id) }

// LastChild is the rightmost child of an internal page.
func (s Slotted) LastChild() uint32 { return u32(s, offAux) }
func (s Slotted) SetLastChild(id uint32) { putU32(s, offAux, id) }
func (s Slotted) OverflowBucket() uint32 { return u32(s, offAux) }
func (s Slotted) SetOverflowBucket(id uint32) { putU32(s, offAux, id) }

// Space returns the free bytes between the offset array and the payload area.
func (s Slotted) Space() int {
	return int(s.High()) - (SlottedHeaderSize + SlotSize*s.Count())
}

// Fits reports whether n payload bytes plus slots new offsets can be added.
func (s Slotted) Fits(n, slots int) bool {
	return s.Space() >= n+slots*SlotSize
}

// Offset returns the payload offset of slot i.
func (s Slotted) Offset(i int) uint32 {
	return u32(s, SlottedHeaderSize+SlotSize*i)
}

func (s Slotted) setOffset(i int, off uint32) {
	putU32(s, SlottedHeaderSize+SlotSize*i, off)
}

// At returns the page bytes from the payload of slot i to the end of the page.
func (s Slotted) At(i int) []byte {
	return s[s.Offset(i):]
}

// Insert opens slot i, reserves n payload bytes for it and returns them.
// It reports false when the page lacks room.
func (s Slotted) Insert(i, n int) ([]byte, bool) {
	if !s.Fits(n, 1) {
		return nil, false
	}
	count := s.Count()
	base := SlottedHeaderSize + SlotSize*i
	copy(s[base+SlotSize:SlottedHeaderSize+SlotSize*(count+1)], s[base:SlottedHeaderSize+SlotSize*count])

	high := s.High() - uint32(n)
	s.SetHigh(high)
	s.setOffset(i, high)
	s.SetCount(count + 1)
	return s[high : int(high)+n], true
}

// Remove drops slot i. Its payload stays behind until Compact.
func (s Slotted) Remove(i int) {
	count := s.Count()
	base := SlottedHeaderSize + SlotSize*i
	copy(s[base:], s[base+SlotSize:SlottedHeaderSize+SlotSize*count])
	s.SetCount(count - 1)
}

// Truncate keeps the first n slots.
func (s Slotted) Truncate(n int) {
	s.SetCount(n)
}

// Compact repacks the payloads of the live slots against the page end in slot order.
// size reports the payload length of a slot given the bytes starting at its offset;
// scratch must be at least one page long.
func (s Slotted) Compact(scratch []byte, size func(b []byte) int) {
	copy(scratch, s)
	high := uint32(len(s))
	count := s.Count()
	for i := 0; i < count; i++ {
		src := scratch[s.Offset(i):]
		n := size(src)
		high -= uint32(n)
		copy(s[high:], src[:n])
		s.setOffset(i, high)
	}
	s.SetHigh(high)
}

// Validate checks the header and offset array for consistency.
func (s Slotted) Validate(want ...Type) error {
	t := s.Type()
	if len(want) > 0 {
		ok := false
		for _, w := range want {
			ok = ok || t == w
		}
		if !ok {
			return errors.Wrapf(ErrCorrupt, "page %d: type %s", s.ID(), t)
		}
	}
	high := int(s.High())
	if high > len(s) || s.Space() < 0 {
		return errors.Wrapf(ErrCorrupt, "page %d: high %d count %d", s.ID(), high, s.Count())
	}
	for i := 0; i < s.Count(); i++ {
		if off := int(s.Offset(i)); off < high || off >= len(s) {
			return errors.Wrapf(ErrCorrupt, "page %d: slot %d offset %d", s.ID(), i, off)
		}
	}
	return nil
}
