package btree

import (
	"bytes"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/datastructs/buffer"
	"github.com/huynhanx03/pagekv/pkg/index"
	"github.com/huynhanx03/pagekv/pkg/logger"
	bufpool "github.com/huynhanx03/pagekv/pkg/pool/buffer"
	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/item"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

var _ index.Index = (*Tree)(nil)

var ErrWrongKind = errors.New("store does not hold a b+tree")

// Tree is a B+Tree over the pages of a Store. Leaves form a doubly linked chain in key
// order. Deletes never merge pages.
type Tree struct {
	store   *storage.Store
	codec   *item.Codec
	scratch []byte         // one page, for compaction
	cmp     *buffer.Buffer // overflow key prefixes during search
	log     *zap.Logger
}

// New opens the tree stored in s, creating an empty root leaf for a fresh store.
func New(s *storage.Store, l *zap.Logger) (*Tree, error) {
	s.Lock()
	defer s.Unlock()

	if s.Kind() != storage.KindBTree {
		return nil, ErrWrongKind
	}
	t := &Tree{
		store:   s,
		codec:   item.NewCodec(s),
		scratch: make([]byte, s.PageSize()),
		cmp:     buffer.New(s.PageSize()),
		log:     logger.Component(l, "btree"),
	}
	if s.Root() == 0 {
		root, err := s.Allocate(page.TypeLeaf)
		if err != nil {
			return nil, err
		}
		s.SetRoot(root.ID())
		s.Unpin(root)
	}
	return t, nil
}

// findLeaf descends from the root and returns the pinned leaf that owns key.
func (t *Tree) findLeaf(key []byte) (*storage.Page, error) {
	id := t.store.Root()
	for {
		p, err := t.fetch(id)
		if err != nil {
			return nil, err
		}
		s := p.Slotted()
		if s.Type() == page.TypeLeaf {
			return p, nil
		}
		i, found, err := t.search(s, key)
		if err != nil {
			t.store.Unpin(p)
			return nil, err
		}
		if found {
			i++
		}
		id = child(s, i)
		t.store.Unpin(p)
	}
}

// Get returns a copy of the value stored under key.
func (t *Tree) Get(key []byte) ([]byte, bool, error) {
	t.store.Lock()
	defer t.store.Unlock()

	leaf, err := t.findLeaf(key)
	if err != nil {
		return nil, false, err
	}
	defer t.store.Unpin(leaf)

	s := leaf.Slotted()
	i, found, err := t.search(s, key)
	if err != nil || !found {
		return nil, false, err
	}

	buf := bufpool.Get()
	defer buf.Release()
	if err := t.codec.Read(s.At(2*i+1), buf); err != nil {
		return nil, false, err
	}
	return bytes.Clone(buf.Bytes()), true, nil
}

// GetInto copies at most len(dst) bytes of the value under key into dst.
func (t *Tree) GetInto(key, dst []byte) (int, error) {
	t.store.Lock()
	defer t.store.Unlock()

	leaf, err := t.findLeaf(key)
	if err != nil {
		return 0, err
	}
	defer t.store.Unpin(leaf)

	s := leaf.Slotted()
	i, found, err := t.search(s, key)
	if err != nil || !found {
		return 0, err
	}
	return t.codec.ReadInto(s.At(2*i+1), dst)
}

// Put stores value under key.
func (t *Tree) Put(key, value []byte) error {
	t.store.Lock()
	defer t.store.Unlock()

	for attempt := 0; attempt < index.MaxPutAttempts; attempt++ {
		done, err := t.put(key, value)
		if err != nil || done {
			return err
		}
	}
	return errors.Wrapf(index.ErrNoProgress, "key of %d bytes", len(key))
}

// put makes one attempt. It reports false after a change that calls for a retry.
func (t *Tree) put(key, value []byte) (bool, error) {
	leaf, err := t.findLeaf(key)
	if err != nil {
		return false, err
	}
	defer t.store.Unpin(leaf)

	s := leaf.Slotted()
	i, found, err := t.search(s, key)
	if err != nil {
		return false, err
	}

	if found {
		ok, err := t.codec.Update(s.At(2*i+1), value)
		if err != nil {
			return false, err
		}
		leaf.MarkDirty()
		if ok {
			return true, nil
		}
		// The value outgrew its slot: drop the pair and insert afresh.
		s.Remove(2*i + 1)
		s.Remove(2 * i)
		t.compact(s)
		return false, nil
	}

	ok, err := t.insertPair(leaf, i, key, value)
	if err != nil || ok {
		return ok, err
	}
	return false, t.splitLeaf(leaf)
}

func (t *Tree) insertPair(leaf *storage.Page, i int, key, value []byte) (bool, error) {
	s := leaf.Slotted()
	kn, vn := t.codec.Footprint(len(key)), t.codec.Footprint(len(value))
	if !s.Fits(kn+vn, 2) {
		return false, nil
	}
	leaf.MarkDirty()
	dst, _ := s.Insert(2*i, kn)
	if err := t.codec.Write(dst, key); err != nil {
		return false, err
	}
	dst, _ = s.Insert(2*i+1, vn)
	if err := t.codec.Write(dst, value); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key if present.
func (t *Tree) Delete(key []byte) error {
	t.store.Lock()
	defer t.store.Unlock()

	leaf, err := t.findLeaf(key)
	if err != nil {
		return err
	}
	defer t.store.Unpin(leaf)

	s := leaf.Slotted()
	i, found, err := t.search(s, key)
	if err != nil || !found {
		return err
	}
	s.Remove(2*i + 1)
	s.Remove(2 * i)
	t.compact(s)
	leaf.MarkDirty()
	return nil
}
