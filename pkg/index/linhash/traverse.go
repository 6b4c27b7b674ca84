package linhash

import (
	"github.com/huynhanx03/pagekv/pkg/index"
	bufpool "github.com/huynhanx03/pagekv/pkg/pool/buffer"
)

// Stats describes the shape of a hash index.
type Stats struct {
	Level       uint32
	NextSplit   uint32
	Buckets     uint32 // logical buckets
	BucketPages int    // primary and overflow bucket pages
	IndexPages  int
	Keys        int
}

// Traverse calls fn for every pair by following the bucket list from bucket 0.
// Pairs come in no particular order.
func (x *Index) Traverse(fn index.Visitor) error {
	x.store.Lock()
	defer x.store.Unlock()

	kb, vb := bufpool.Get(), bufpool.Get()
	defer kb.Release()
	defer vb.Release()

	id, err := x.locate(0)
	if err != nil {
		return err
	}
	for id != 0 {
		b, err := x.fetchBucket(id)
		if err != nil {
			return err
		}
		s := b.Slotted()
		for i := 0; i < s.Count()/2; i++ {
			kb.Reset()
			vb.Reset()
			err := x.codec.Read(itemAt(s, 2*i), kb)
			if err == nil {
				err = x.codec.Read(itemAt(s, 2*i+1), vb)
			}
			if err == nil {
				err = fn(kb.Bytes(), vb.Bytes())
			}
			if err != nil {
				x.store.Unpin(b)
				return index.StopErr(err)
			}
		}
		id = s.Next()
		x.store.Unpin(b)
	}
	return nil
}

// Stats walks the directory and the bucket list.
func (x *Index) Stats() (Stats, error) {
	x.store.Lock()
	defer x.store.Unlock()

	var st Stats
	var err error
	if st.Level, st.NextSplit, err = x.state(); err != nil {
		return st, err
	}
	st.Buckets = 1<<st.Level + st.NextSplit

	if st.IndexPages, err = x.countIndex(x.store.Root()); err != nil {
		return st, err
	}

	id, err := x.locate(0)
	if err != nil {
		return st, err
	}
	for id != 0 {
		b, err := x.fetchBucket(id)
		if err != nil {
			return st, err
		}
		st.BucketPages++
		st.Keys += b.Slotted().Count() / 2
		id = b.Slotted().Next()
		x.store.Unpin(b)
	}
	return st, nil
}

func (x *Index) countIndex(id uint32) (int, error) {
	p, err := x.fetchIndex(id)
	if err != nil {
		return 0, err
	}
	d := p.Index()
	var children []uint32
	if d.Per() > 1 {
		for i := 0; i < int(x.maxSlots); i++ {
			if c := d.Slot(i); c != 0 {
				children = append(children, c)
			}
		}
	}
	x.store.Unpin(p)

	total := 1
	for _, c := range children {
		n, err := x.countIndex(c)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
