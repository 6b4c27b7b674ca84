package linhash

import (
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/datastructs/buffer"
	bufpool "github.com/huynhanx03/pagekv/pkg/pool/buffer"
	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// split divides the bucket under the split cursor. Pairs whose hash has bit `level` set
// move to a new bucket, which is then registered as bucket nextSplit + 2^level.
func (x *Index) split() error {
	level, ns, err := x.state()
	if err != nil {
		return err
	}
	oldID, err := x.locate(ns)
	if err != nil {
		return err
	}
	cur, err := x.fetchBucket(oldID)
	if err != nil {
		return err
	}
	target, err := x.linkBucket(cur)
	if err != nil {
		x.store.Unpin(cur)
		return err
	}
	newID := target.ID()

	kb := bufpool.Get()
	defer kb.Release()

	check := uint32(1) << level
	moved := 0
	for cur != nil {
		s := cur.Slotted()
		for i := s.Count()/2 - 1; i >= 0; i-- {
			if hashAt(s, 2*i)&check == 0 {
				continue
			}
			if target, err = x.moveInto(target, s, i, kb); err != nil {
				break
			}
			s.Remove(2*i + 1)
			s.Remove(2 * i)
			moved++
		}
		s.Compact(x.scratch, entrySize)
		cur.MarkDirty()

		next := s.OverflowBucket()
		x.store.Unpin(cur)
		cur = nil
		if err == nil && next != 0 {
			cur, err = x.fetchBucket(next)
		}
	}
	x.store.Unpin(target)
	if err != nil {
		return err
	}

	x.log.Debug("bucket split",
		zap.Uint32("bucket", ns),
		zap.Uint32("level", level),
		zap.Uint32("page", oldID),
		zap.Uint32("new_page", newID),
		zap.Int("moved", moved),
	)
	return x.register(newID)
}

// moveInto copies pair i of src into the chain ending at target, keeping target sorted.
// It returns the bucket that now ends the chain.
func (x *Index) moveInto(target *storage.Page, src page.Slotted, i int, kb *buffer.Buffer) (*storage.Page, error) {
	kn, vn := entrySize(src.At(2*i)), entrySize(src.At(2*i+1))
	if !target.Slotted().Fits(kn+vn, 2) {
		nt, err := x.newOverflowBucket(target)
		if err != nil {
			return target, err
		}
		x.store.Unpin(target)
		target = nt
	}

	kb.Reset()
	if err := x.codec.Read(itemAt(src, 2*i), kb); err != nil {
		return target, err
	}
	ts := target.Slotted()
	pos, _, err := x.search(ts, kb.Bytes())
	if err != nil {
		return target, err
	}
	dst, _ := ts.Insert(2*pos, kn)
	copy(dst, src.At(2*i)[:kn])
	dst, _ = ts.Insert(2*pos+1, vn)
	copy(dst, src.At(2*i+1)[:vn])
	target.MarkDirty()
	return target, nil
}

// register stores bucket page id in directory slot nextSplit + 2^level, adding a
// directory level when the root is out of slots, and advances the split cursor.
func (x *Index) register(id uint32) error {
	rootID := x.store.Root()
	cur, err := x.fetchIndex(rootID)
	if err != nil {
		return err
	}
	d := cur.Index()
	level, ns, per := d.Level(), d.NextSplit(), d.Per()
	n := ns + 1<<level

	if n/per >= x.maxSlots {
		nr, err := x.store.Allocate(page.TypeHashIndex)
		if err != nil {
			x.store.Unpin(cur)
			return err
		}
		nd := nr.Index()
		nd.SetLevel(level)
		nd.SetNextSplit(ns)
		nd.SetPer(per * x.maxSlots)
		nd.SetSlot(0, rootID)
		x.store.SetRoot(nr.ID())
		x.store.Unpin(cur)
		x.log.Debug("directory grew", zap.Uint32("root", nr.ID()), zap.Uint32("per", nd.Per()))

		cur, per = nr, nd.Per()
		for per > 1 {
			np, err := x.store.Allocate(page.TypeHashIndex)
			if err != nil {
				x.store.Unpin(cur)
				return err
			}
			cur.Index().SetSlot(int(n/per), np.ID())
			cur.MarkDirty()
			n %= per
			per /= x.maxSlots
			np.Index().SetPer(per)
			x.store.Unpin(cur)
			cur = np
		}
	} else {
		for per > 1 {
			var np *storage.Page
			if n%per == 0 {
				if np, err = x.store.Allocate(page.TypeHashIndex); err == nil {
					np.Index().SetPer(per / x.maxSlots)
					cur.Index().SetSlot(int(n/per), np.ID())
					cur.MarkDirty()
				}
			} else {
				np, err = x.fetchIndex(cur.Index().Slot(int(n/per)))
			}
			x.store.Unpin(cur)
			if err != nil {
				return err
			}
			n %= per
			cur = np
			per = cur.Index().Per()
		}
	}
	cur.Index().SetSlot(int(n), id)
	cur.MarkDirty()
	x.store.Unpin(cur)

	root, err := x.fetchIndex(x.store.Root())
	if err != nil {
		return err
	}
	defer x.store.Unpin(root)
	rd := root.Index()
	if ns+1 == 1<<level {
		rd.SetNextSplit(0)
		rd.SetLevel(level + 1)
	} else {
		rd.SetNextSplit(ns + 1)
	}
	root.MarkDirty()
	return nil
}
