package btree

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/index"
	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/item"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// splitLeaf moves the upper half of the pairs of leaf into a new right sibling and
// registers the sibling's first key in the parent.
func (t *Tree) splitLeaf(leaf *storage.Page) error {
	s := leaf.Slotted()
	n := s.Count()
	if n < 4 {
		return errors.Wrapf(page.ErrCorrupt, "leaf %d: %d slots cannot split", leaf.ID(), n)
	}
	mid := (n >> 1) &^ 1

	parentID, err := t.ensureRoom(leaf, childSize+item.Size(s.At(mid)))
	if err != nil {
		return err
	}

	sib, err := t.store.Allocate(page.TypeLeaf)
	if err != nil {
		return err
	}
	defer t.store.Unpin(sib)
	ss := sib.Slotted()

	ss.SetParent(parentID)
	ss.SetPrev(leaf.ID())
	ss.SetNext(s.Next())
	if next := s.Next(); next != 0 {
		np, err := t.fetch(next)
		if err != nil {
			return err
		}
		np.Slotted().SetPrev(sib.ID())
		np.MarkDirty()
		t.store.Unpin(np)
	}
	s.SetNext(sib.ID())

	if err := moveSlots(s, ss, mid, n, leafEntrySize); err != nil {
		return err
	}
	s.Truncate(mid)
	t.compact(s)
	leaf.MarkDirty()

	first := ss.At(0)
	t.log.Debug("leaf split",
		zap.Uint32("page", leaf.ID()),
		zap.Uint32("sibling", sib.ID()),
		zap.Int("moved", (n-mid)/2),
	)
	return t.insertSeparator(parentID, leaf.ID(), first[:item.Size(first)], sib.ID())
}

// splitInternal moves the entries above the middle separator of page id into a new
// sibling and pushes the middle separator up to the parent.
func (t *Tree) splitInternal(id uint32) error {
	p, err := t.fetch(id)
	if err != nil {
		return err
	}
	defer t.store.Unpin(p)

	s := p.Slotted()
	n := s.Count()
	if s.Type() != page.TypeInternal || n < 3 {
		return errors.Wrapf(page.ErrCorrupt, "internal %d: %d entries cannot split", id, n)
	}
	mid := n / 2
	sepKey := keyAt(s, mid)
	sep := bytes.Clone(sepKey[:item.Size(sepKey)])

	parentID, err := t.ensureRoom(p, childSize+len(sep))
	if err != nil {
		return err
	}

	sib, err := t.store.Allocate(page.TypeInternal)
	if err != nil {
		return err
	}
	defer t.store.Unpin(sib)
	ss := sib.Slotted()
	ss.SetParent(parentID)

	if err := moveSlots(s, ss, mid+1, n, internalEntrySize); err != nil {
		return err
	}
	ss.SetLastChild(s.LastChild())
	s.SetLastChild(child(s, mid))
	s.Truncate(mid)
	t.compact(s)
	p.MarkDirty()

	for i := 0; i <= ss.Count(); i++ {
		c, err := t.fetch(child(ss, i))
		if err != nil {
			return err
		}
		c.Slotted().SetParent(sib.ID())
		c.MarkDirty()
		t.store.Unpin(c)
	}

	t.log.Debug("internal split",
		zap.Uint32("page", id),
		zap.Uint32("sibling", sib.ID()),
		zap.Int("moved", ss.Count()),
	)
	return t.insertSeparator(parentID, id, sep, sib.ID())
}

// ensureRoom returns the parent of p after making sure it can take one more entry of
// need bytes, splitting ancestors or growing a new root as required.
func (t *Tree) ensureRoom(p *storage.Page, need int) (uint32, error) {
	for attempt := 0; attempt < index.MaxPutAttempts; attempt++ {
		s := p.Slotted()
		parentID := s.Parent()
		if parentID == 0 {
			root, err := t.store.Allocate(page.TypeInternal)
			if err != nil {
				return 0, err
			}
			root.Slotted().SetLastChild(p.ID())
			s.SetParent(root.ID())
			p.MarkDirty()
			t.store.SetRoot(root.ID())
			t.store.Unpin(root)
			t.log.Debug("new root", zap.Uint32("page", root.ID()))
			return root.ID(), nil
		}

		parent, err := t.fetch(parentID)
		if err != nil {
			return 0, err
		}
		fits := parent.Slotted().Fits(need, 1)
		t.store.Unpin(parent)
		if fits {
			return parentID, nil
		}
		if err := t.splitInternal(parentID); err != nil {
			return 0, err
		}
	}
	return 0, errors.Wrapf(index.ErrNoProgress, "parent of page %d", p.ID())
}

// insertSeparator adds sep to parent so that keys below it stay with left and the
// rest go to right.
func (t *Tree) insertSeparator(parentID, left uint32, sep []byte, right uint32) error {
	p, err := t.fetch(parentID)
	if err != nil {
		return err
	}
	defer t.store.Unpin(p)

	s := p.Slotted()
	j := childIndex(s, left)
	if j < 0 {
		return errors.Wrapf(page.ErrCorrupt, "page %d is not a child of %d", left, parentID)
	}
	dst, ok := s.Insert(j, childSize+len(sep))
	if !ok {
		return errors.Wrapf(page.ErrCorrupt, "internal %d: no room for separator", parentID)
	}
	binary.LittleEndian.PutUint32(dst, left)
	copy(dst[childSize:], sep)
	setChild(s, j+1, right)
	p.MarkDirty()
	return nil
}

func moveSlots(src, dst page.Slotted, from, to int, size func([]byte) int) error {
	for j := from; j < to; j++ {
		b := src.At(j)
		n := size(b)
		d, ok := dst.Insert(j-from, n)
		if !ok {
			return errors.Wrapf(page.ErrCorrupt, "page %d: moved entries overflow sibling", dst.ID())
		}
		copy(d, b[:n])
	}
	return nil
}
