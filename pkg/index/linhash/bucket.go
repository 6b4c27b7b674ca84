package linhash

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/item"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// A bucket stores key i in slot 2i and its value in slot 2i+1, sorted by key.
// Both slots start with the 32-bit hash of the key.

const hashSize = 4

func entrySize(b []byte) int {
	return hashSize + item.Size(b[hashSize:])
}

func hashAt(s page.Slotted, slot int) uint32 {
	return binary.LittleEndian.Uint32(s.At(slot))
}

func itemAt(s page.Slotted, slot int) []byte {
	return s.At(slot)[hashSize:]
}

// search returns the first pair whose key is not below key and whether it matches.
func (x *Index) search(s page.Slotted, key []byte) (int, bool, error) {
	lo, hi := 0, s.Count()/2
	found := false
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		r, err := x.codec.Compare(itemAt(s, 2*mid), key, x.cmp)
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
	return lo, found, nil
}

func (x *Index) pairSize(key, value []byte) (int, int) {
	return hashSize + x.codec.Footprint(len(key)), hashSize + x.codec.Footprint(len(value))
}

// insertPair writes the pair at position i. It reports false when the bucket is full.
func (x *Index) insertPair(b *storage.Page, i int, h uint32, key, value []byte) (bool, error) {
	s := b.Slotted()
	kn, vn := x.pairSize(key, value)
	if !s.Fits(kn+vn, 2) {
		return false, nil
	}
	b.MarkDirty()
	for j, data := range [2][]byte{key, value} {
		n := kn
		if j == 1 {
			n = vn
		}
		dst, _ := s.Insert(2*i+j, n)
		binary.LittleEndian.PutUint32(dst, h)
		if err := x.codec.Write(dst[hashSize:], data); err != nil {
			return false, err
		}
	}
	return true, nil
}

// removePair drops pair i and repacks the bucket.
func (x *Index) removePair(b *storage.Page, i int) {
	s := b.Slotted()
	s.Remove(2*i + 1)
	s.Remove(2 * i)
	s.Compact(x.scratch, entrySize)
	b.MarkDirty()
}

func (x *Index) fetchBucket(id uint32) (*storage.Page, error) {
	p, err := x.store.Fetch(id)
	if err != nil {
		return nil, err
	}
	if err := p.Slotted().Validate(page.TypeBucket); err != nil {
		x.store.Unpin(p)
		return nil, err
	}
	return p, nil
}

func (x *Index) fetchIndex(id uint32) (*storage.Page, error) {
	p, err := x.store.Fetch(id)
	if err != nil {
		return nil, err
	}
	if page.TypeOf(p.Data()) != page.TypeHashIndex || p.Index().Per() == 0 {
		x.store.Unpin(p)
		return nil, errors.Wrapf(page.ErrCorrupt, "page %d is not a hash index page", id)
	}
	return p, nil
}

// newOverflowBucket chains a fresh bucket behind base, which must end its chain.
// The new bucket is also linked into the bucket list right after base.
func (x *Index) newOverflowBucket(base *storage.Page) (*storage.Page, error) {
	nb, err := x.linkBucket(base)
	if err != nil {
		return nil, err
	}
	base.Slotted().SetOverflowBucket(nb.ID())
	return nb, nil
}

// linkBucket allocates a bucket and links it into the bucket list after prev.
func (x *Index) linkBucket(prev *storage.Page) (*storage.Page, error) {
	nb, err := x.store.Allocate(page.TypeBucket)
	if err != nil {
		return nil, err
	}
	ps, ns := prev.Slotted(), nb.Slotted()
	ns.SetPrev(prev.ID())
	ns.SetNext(ps.Next())
	if next := ps.Next(); next != 0 {
		np, err := x.fetchBucket(next)
		if err != nil {
			x.store.Unpin(nb)
			return nil, err
		}
		np.Slotted().SetPrev(nb.ID())
		np.MarkDirty()
		x.store.Unpin(np)
	}
	ps.SetNext(nb.ID())
	prev.MarkDirty()
	return nb, nil
}
