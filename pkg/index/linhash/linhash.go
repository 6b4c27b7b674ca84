package linhash

import (
	"bytes"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/datastructs/buffer"
	"github.com/huynhanx03/pagekv/pkg/hash"
	"github.com/huynhanx03/pagekv/pkg/index"
	"github.com/huynhanx03/pagekv/pkg/logger"
	bufpool "github.com/huynhanx03/pagekv/pkg/pool/buffer"
	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/item"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

var _ index.Index = (*Index)(nil)

var ErrWrongKind = errors.New("store does not hold a hash index")

// Index is a linear hash table over the pages of a Store.
//
// The directory is a tree of index pages whose root carries the split state: a bucket
// number uses level bits of the key hash, or level+1 bits once the split cursor has
// passed it. Full buckets grow overflow chains; every overflow allocation splits the
// bucket under the cursor.
type Index struct {
	store    *storage.Store
	codec    *item.Codec
	scratch  []byte
	cmp      *buffer.Buffer
	maxSlots uint32
	log      *zap.Logger
}

// New opens the hash index stored in s, creating the root directory page and the first
// bucket for a fresh store.
func New(s *storage.Store, l *zap.Logger) (*Index, error) {
	s.Lock()
	defer s.Unlock()

	if s.Kind() != storage.KindHash {
		return nil, ErrWrongKind
	}
	x := &Index{
		store:    s,
		codec:    item.NewCodec(s),
		scratch:  make([]byte, s.PageSize()),
		cmp:      buffer.New(s.PageSize()),
		maxSlots: uint32(page.MaxSlots(s.PageSize())),
		log:      logger.Component(l, "linhash"),
	}
	if s.Root() == 0 {
		root, err := s.Allocate(page.TypeHashIndex)
		if err != nil {
			return nil, err
		}
		defer s.Unpin(root)
		b, err := s.Allocate(page.TypeBucket)
		if err != nil {
			return nil, err
		}
		root.Index().SetSlot(0, b.ID())
		s.Unpin(b)
		s.SetRoot(root.ID())
	}
	return x, nil
}

// bucketNumber maps a key hash to its logical bucket.
func bucketNumber(h, level, nextSplit uint32) uint32 {
	n := h & (1<<level - 1)
	if n < nextSplit {
		n = h & (1<<(level+1) - 1)
	}
	return n
}

func (x *Index) state() (level, nextSplit uint32, err error) {
	root, err := x.fetchIndex(x.store.Root())
	if err != nil {
		return 0, 0, err
	}
	defer x.store.Unpin(root)
	return root.Index().Level(), root.Index().NextSplit(), nil
}

// locate walks the directory to the page id of logical bucket n.
func (x *Index) locate(n uint32) (uint32, error) {
	id := x.store.Root()
	for {
		p, err := x.fetchIndex(id)
		if err != nil {
			return 0, err
		}
		d := p.Index()
		per := d.Per()
		if per == 1 {
			id = d.Slot(int(n))
			x.store.Unpin(p)
			break
		}
		id = d.Slot(int(n / per))
		n %= per
		x.store.Unpin(p)
	}
	if id == 0 {
		return 0, errors.Wrap(page.ErrCorrupt, "directory slot is empty")
	}
	return id, nil
}

// primary returns the first bucket of the chain that owns a key hash.
func (x *Index) primary(h uint32) (uint32, error) {
	level, ns, err := x.state()
	if err != nil {
		return 0, err
	}
	return x.locate(bucketNumber(h, level, ns))
}

// find walks the chain starting at id and returns the pinned bucket holding key.
func (x *Index) find(id uint32, key []byte) (*storage.Page, int, error) {
	for id != 0 {
		b, err := x.fetchBucket(id)
		if err != nil {
			return nil, 0, err
		}
		i, found, err := x.search(b.Slotted(), key)
		if err != nil {
			x.store.Unpin(b)
			return nil, 0, err
		}
		if found {
			return b, i, nil
		}
		id = b.Slotted().OverflowBucket()
		x.store.Unpin(b)
	}
	return nil, 0, nil
}

// Get returns a copy of the value stored under key.
func (x *Index) Get(key []byte) ([]byte, bool, error) {
	x.store.Lock()
	defer x.store.Unlock()

	id, err := x.primary(hash.Key(key))
	if err != nil {
		return nil, false, err
	}
	b, i, err := x.find(id, key)
	if err != nil || b == nil {
		return nil, false, err
	}
	defer x.store.Unpin(b)

	buf := bufpool.Get()
	defer buf.Release()
	if err := x.codec.Read(itemAt(b.Slotted(), 2*i+1), buf); err != nil {
		return nil, false, err
	}
	return bytes.Clone(buf.Bytes()), true, nil
}

// GetInto copies at most len(dst) bytes of the value under key into dst.
func (x *Index) GetInto(key, dst []byte) (int, error) {
	x.store.Lock()
	defer x.store.Unlock()

	id, err := x.primary(hash.Key(key))
	if err != nil {
		return 0, err
	}
	b, i, err := x.find(id, key)
	if err != nil || b == nil {
		return 0, err
	}
	defer x.store.Unpin(b)
	return x.codec.ReadInto(itemAt(b.Slotted(), 2*i+1), dst)
}

// Put stores value under key. A value that no longer fits its slot is removed and the
// pair is inserted into the first bucket of the chain with room.
func (x *Index) Put(key, value []byte) error {
	x.store.Lock()
	defer x.store.Unlock()

	h := hash.Key(key)
	head, err := x.primary(h)
	if err != nil {
		return err
	}

	b, i, err := x.find(head, key)
	if err != nil {
		return err
	}
	if b != nil {
		ok, err := x.codec.Update(itemAt(b.Slotted(), 2*i+1), value)
		if err == nil {
			if ok {
				b.MarkDirty()
			} else {
				x.removePair(b, i)
			}
		}
		x.store.Unpin(b)
		if err != nil || ok {
			return err
		}
	}

	grew, err := x.insert(head, h, key, value)
	if err != nil || !grew {
		return err
	}
	return x.split()
}

// insert places the pair in the chain starting at id. It reports whether an overflow
// bucket had to be added.
func (x *Index) insert(id, h uint32, key, value []byte) (bool, error) {
	for {
		b, err := x.fetchBucket(id)
		if err != nil {
			return false, err
		}
		ok, err := x.insertSorted(b, h, key, value)
		if err != nil || ok {
			x.store.Unpin(b)
			return false, err
		}

		if next := b.Slotted().OverflowBucket(); next != 0 {
			x.store.Unpin(b)
			id = next
			continue
		}

		ob, err := x.newOverflowBucket(b)
		x.store.Unpin(b)
		if err != nil {
			return false, err
		}
		ok, err = x.insertPair(ob, 0, h, key, value)
		x.store.Unpin(ob)
		if err == nil && !ok {
			err = errors.Wrap(index.ErrNoProgress, "pair does not fit an empty bucket")
		}
		return err == nil, err
	}
}

func (x *Index) insertSorted(b *storage.Page, h uint32, key, value []byte) (bool, error) {
	i, _, err := x.search(b.Slotted(), key)
	if err != nil {
		return false, err
	}
	return x.insertPair(b, i, h, key, value)
}

// Delete removes key if present.
func (x *Index) Delete(key []byte) error {
	x.store.Lock()
	defer x.store.Unlock()

	id, err := x.primary(hash.Key(key))
	if err != nil {
		return err
	}
	b, i, err := x.find(id, key)
	if err != nil || b == nil {
		return err
	}
	x.removePair(b, i)
	x.store.Unpin(b)
	return nil
}
