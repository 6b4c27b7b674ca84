package btree

import (
	"encoding/binary"

	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/item"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// Leaf pages store key i in slot 2i and its value in slot 2i+1.
// Internal pages store entry i as child id u32 followed by separator key i;
// keys below separator i live under child i, the rest under the next child.

const childSize = 4

func leafEntrySize(b []byte) int {
	return item.Size(b)
}

func internalEntrySize(b []byte) int {
	return childSize + item.Size(b[childSize:])
}

// entries returns the number of logical entries: pairs on a leaf, separators otherwise.
func entries(s page.Slotted) int {
	if s.Type() == page.TypeLeaf {
		return s.Count() / 2
	}
	return s.Count()
}

// keyAt returns the encoded key of entry i.
func keyAt(s page.Slotted, i int) []byte {
	if s.Type() == page.TypeLeaf {
		return s.At(2 * i)
	}
	return s.At(i)[childSize:]
}

// child returns child i of an internal page; i == Count() addresses the last child.
func child(s page.Slotted, i int) uint32 {
	if i == s.Count() {
		return s.LastChild()
	}
	return binary.LittleEndian.Uint32(s.At(i))
}

func setChild(s page.Slotted, i int, id uint32) {
	if i == s.Count() {
		s.SetLastChild(id)
		return
	}
	binary.LittleEndian.PutUint32(s.At(i), id)
}

// childIndex locates id among the children of s.
func childIndex(s page.Slotted, id uint32) int {
	for i := 0; i <= s.Count(); i++ {
		if child(s, i) == id {
			return i
		}
	}
	return -1
}

// search returns the first entry whose key is not below key and whether it matches.
func (t *Tree) search(s page.Slotted, key []byte) (int, bool, error) {
	lo, hi := 0, entries(s)
	found := false
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		r, err := t.codec.Compare(keyAt(s, mid), key, t.cmp)
		if err != nil {
			return 0, false, err
		}
		if r < 0 {
			lo = mid + 1
		} else {
			hi = mid
			found = r == 0
		}
	}
	return lo, found && lo < entries(s), nil
}

func (t *Tree) fetch(id uint32) (*storage.Page, error) {
	p, err := t.store.Fetch(id)
	if err != nil {
		return nil, err
	}
	if err := p.Slotted().Validate(page.TypeLeaf, page.TypeInternal); err != nil {
		t.store.Unpin(p)
		return nil, err
	}
	return p, nil
}

// compact repacks the payload area of s.
func (t *Tree) compact(s page.Slotted) {
	if s.Type() == page.TypeLeaf {
		s.Compact(t.scratch, leafEntrySize)
		return
	}
	s.Compact(t.scratch, internalEntrySize)
}
