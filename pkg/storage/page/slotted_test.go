package page

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 256

func newSlotted(t Type) Slotted {
	s := Slotted(make([]byte, testPageSize))
	s.Init(t, 7)
	return s
}

// record writes a length-prefixed payload so Compact can size it.
func record(s Slotted, i int, body string) bool {
	dst, ok := s.Insert(i, 4+len(body))
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint32(dst, uint32(len(body)))
	copy(dst[4:], body)
	return true
}

func recordSize(b []byte) int {
	return 4 + int(binary.LittleEndian.Uint32(b))
}

func body(s Slotted, i int) string {
	b := s.At(i)
	return string(b[4:recordSize(b)])
}

// =============================================================================
// Init
// =============================================================================

func TestInit(t *testing.T) {
	s := newSlotted(TypeLeaf)
	assert.Equal(t, TypeLeaf, s.Type())
	assert.Equal(t, uint32(7), s.ID())
	assert.Equal(t, uint32(testPageSize), s.High())
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, testPageSize-SlottedHeaderSize, s.Space())
	require.NoError(t, s.Validate(TypeLeaf))
}

func TestLinks(t *testing.T) {
	s := newSlotted(TypeInternal)
	s.SetParent(1)
	s.SetPrev(2)
	s.SetNext(3)
	s.SetLastChild(4)

	assert.Equal(t, uint32(1), s.Parent())
	assert.Equal(t, uint32(2), s.Prev())
	assert.Equal(t, uint32(3), s.Next())
	assert.Equal(t, uint32(4), s.LastChild())
	assert.Equal(t, uint32(4), s.OverflowBucket())
}

// =============================================================================
// Insert / Remove
// =============================================================================

func TestInsert_Order(t *testing.T) {
	s := newSlotted(TypeLeaf)
	require.True(t, record(s, 0, "b"))
	require.True(t, record(s, 0, "a"))
	require.True(t, record(s, 2, "c"))

	require.Equal(t, 3, s.Count())
	assert.Equal(t, "a", body(s, 0))
	assert.Equal(t, "b", body(s, 1))
	assert.Equal(t, "c", body(s, 2))
	require.NoError(t, s.Validate())
}

func TestInsert_Full(t *testing.T) {
	s := newSlotted(TypeLeaf)
	n := 0
	for record(s, n, "0123456789") {
		n++
	}
	// each record takes 14 payload bytes and one 4-byte slot
	assert.Equal(t, (testPageSize-SlottedHeaderSize)/18, n)
	assert.GreaterOrEqual(t, s.Space(), 0)
	assert.False(t, s.Fits(14, 1))
}

func TestRemove_Compact(t *testing.T) {
	s := newSlotted(TypeLeaf)
	for i, v := range []string{"alpha", "beta", "gamma", "delta"} {
		require.True(t, record(s, i, v))
	}
	before := s.Space()

	s.Remove(1)
	assert.Equal(t, before+SlotSize, s.Space())

	s.Compact(make([]byte, testPageSize), recordSize)
	assert.Equal(t, before+SlotSize+4+len("beta"), s.Space())
	assert.Equal(t, []string{"alpha", "gamma", "delta"}, []string{body(s, 0), body(s, 1), body(s, 2)})
	require.NoError(t, s.Validate())
}

func TestTruncate(t *testing.T) {
	s := newSlotted(TypeLeaf)
	for i, v := range []string{"a", "b", "c"} {
		require.True(t, record(s, i, v))
	}
	s.Truncate(1)
	s.Compact(make([]byte, testPageSize), recordSize)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, uint32(testPageSize-5), s.High())
}

// =============================================================================
// Validate
// =============================================================================

func TestValidate_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s Slotted)
	}{
		{"wrong_type", func(s Slotted) { setType(s, TypeOverflow) }},
		{"high_past_end", func(s Slotted) { s.SetHigh(testPageSize + 1) }},
		{"count_overlaps_payload", func(s Slotted) { s.SetCount(100) }},
		{"offset_out_of_range", func(s Slotted) { s.setOffset(0, 8) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSlotted(TypeLeaf)
			require.True(t, record(s, 0, "x"))
			tt.mutate(s)
			err := s.Validate(TypeLeaf, TypeInternal)
			require.Error(t, err)
			assert.Equal(t, ErrCorrupt, errors.Cause(err))
		})
	}
}

// =============================================================================
// Overflow / Index views
// =============================================================================

func TestOverflow(t *testing.T) {
	o := Overflow(make([]byte, testPageSize))
	o.Init()
	o.SetNext(9)
	assert.Equal(t, TypeOverflow, TypeOf(o))
	assert.Equal(t, uint32(9), o.Next())
	assert.Len(t, o.Data(), testPageSize-OverflowHeaderSize)
}

func TestIndex(t *testing.T) {
	x := Index(make([]byte, testPageSize))
	x.Init(1)
	x.SetLevel(3)
	x.SetNextSplit(2)
	x.SetSlot(0, 11)
	x.SetSlot(MaxSlots(testPageSize)-1, 12)

	assert.Equal(t, TypeHashIndex, TypeOf(x))
	assert.Equal(t, uint32(1), x.Per())
	assert.Equal(t, uint32(3), x.Level())
	assert.Equal(t, uint32(2), x.NextSplit())
	assert.Equal(t, uint32(11), x.Slot(0))
	assert.Equal(t, uint32(12), x.Slot(MaxSlots(testPageSize)-1))
	assert.Equal(t, 60, MaxSlots(testPageSize))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "leaf", TypeLeaf.String())
	assert.Equal(t, "unknown", Type(99).String())
}
