package btree

import (
	"github.com/huynhanx03/pagekv/pkg/index"
	bufpool "github.com/huynhanx03/pagekv/pkg/pool/buffer"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// Stats describes the shape of a tree.
type Stats struct {
	Depth    int
	Leaves   int
	Internal int
	Keys     int
}

// Traverse calls fn for every pair in ascending key order by walking the leaf chain.
func (t *Tree) Traverse(fn index.Visitor) error {
	t.store.Lock()
	defer t.store.Unlock()

	kb, vb := bufpool.Get(), bufpool.Get()
	defer kb.Release()
	defer vb.Release()

	id, err := t.leftmost()
	if err != nil {
		return err
	}
	for id != 0 {
		p, err := t.fetch(id)
		if err != nil {
			return err
		}
		s := p.Slotted()
		for i := 0; i < entries(s); i++ {
			kb.Reset()
			vb.Reset()
			err := t.codec.Read(s.At(2*i), kb)
			if err == nil {
				err = t.codec.Read(s.At(2*i+1), vb)
			}
			if err == nil {
				err = fn(kb.Bytes(), vb.Bytes())
			}
			if err != nil {
				t.store.Unpin(p)
				return index.StopErr(err)
			}
		}
		id = s.Next()
		t.store.Unpin(p)
	}
	return nil
}

func (t *Tree) leftmost() (uint32, error) {
	id := t.store.Root()
	for {
		p, err := t.fetch(id)
		if err != nil {
			return 0, err
		}
		s := p.Slotted()
		if s.Type() == page.TypeLeaf {
			t.store.Unpin(p)
			return id, nil
		}
		id = child(s, 0)
		t.store.Unpin(p)
	}
}

// Stats walks every page of the tree.
func (t *Tree) Stats() (Stats, error) {
	t.store.Lock()
	defer t.store.Unlock()

	var st Stats
	err := t.walk(t.store.Root(), 1, &st)
	return st, err
}

func (t *Tree) walk(id uint32, depth int, st *Stats) error {
	p, err := t.fetch(id)
	if err != nil {
		return err
	}
	s := p.Slotted()
	st.Depth = max(st.Depth, depth)
	if s.Type() == page.TypeLeaf {
		st.Leaves++
		st.Keys += entries(s)
		t.store.Unpin(p)
		return nil
	}

	st.Internal++
	children := make([]uint32, 0, s.Count()+1)
	for i := 0; i <= s.Count(); i++ {
		children = append(children, child(s, i))
	}
	t.store.Unpin(p)

	for _, c := range children {
		if err := t.walk(c, depth+1, st); err != nil {
			return err
		}
	}
	return nil
}
