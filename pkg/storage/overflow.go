package storage

import (
	"github.com/pkg/errors"

	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// OverflowCursor returns the position the next overflow byte will be written to,
// creating the first overflow page if the store has none.
func (s *Store) OverflowCursor() (uint32, uint32, error) {
	if s.header.OverflowPage == 0 {
		p, err := s.Allocate(page.TypeOverflow)
		if err != nil {
			return 0, 0, err
		}
		s.Unpin(p)
		s.header.OverflowPage = p.ID()
		s.header.OverflowOffset = page.OverflowHeaderSize
	}
	return s.header.OverflowPage, s.header.OverflowOffset, nil
}

// AppendOverflow appends data to the shared overflow chain and returns where it starts.
// A new overflow page is linked in as soon as the current one fills, so the cursor
// never rests at the end of a page.
func (s *Store) AppendOverflow(data []byte) (uint32, uint32, error) {
	startPage, startOff, err := s.OverflowCursor()
	if err != nil {
		return 0, 0, err
	}
	for len(data) > 0 {
		cur, err := s.Fetch(s.header.OverflowPage)
		if err != nil {
			return 0, 0, err
		}
		buf := cur.Data()
		n := copy(buf[s.header.OverflowOffset:], data)
		data = data[n:]
		s.header.OverflowOffset += uint32(n)
		cur.MarkDirty()

		if int(s.header.OverflowOffset) == len(buf) {
			next, err := s.Allocate(page.TypeOverflow)
			if err != nil {
				s.Unpin(cur)
				return 0, 0, err
			}
			cur.Overflow().SetNext(next.ID())
			s.header.OverflowPage = next.ID()
			s.header.OverflowOffset = page.OverflowHeaderSize
			s.Unpin(next)
		}
		s.Unpin(cur)
	}
	return startPage, startOff, nil
}

// ReadOverflow fills dst from the overflow chain starting at (id, off).
func (s *Store) ReadOverflow(id, off uint32, dst []byte) error {
	for len(dst) > 0 {
		if id == 0 {
			return errors.Wrap(page.ErrCorrupt, "overflow chain ends early")
		}
		p, err := s.Fetch(id)
		if err != nil {
			return err
		}
		buf := p.Data()
		if page.TypeOf(buf) != page.TypeOverflow || off < page.OverflowHeaderSize || int(off) > len(buf) {
			s.Unpin(p)
			return errors.Wrapf(page.ErrCorrupt, "overflow page %d offset %d", id, off)
		}
		n := copy(dst, buf[off:])
		dst = dst[n:]
		id = p.Overflow().Next()
		off = page.OverflowHeaderSize
		s.Unpin(p)
	}
	return nil
}

// WriteOverflow overwrites len(src) bytes of an existing chain in place starting at (id, off).
func (s *Store) WriteOverflow(id, off uint32, src []byte) error {
	for len(src) > 0 {
		if id == 0 {
			return errors.Wrap(page.ErrCorrupt, "overflow chain ends early")
		}
		p, err := s.Fetch(id)
		if err != nil {
			return err
		}
		buf := p.Data()
		if page.TypeOf(buf) != page.TypeOverflow || off < page.OverflowHeaderSize || int(off) > len(buf) {
			s.Unpin(p)
			return errors.Wrapf(page.ErrCorrupt, "overflow page %d offset %d", id, off)
		}
		n := copy(buf[off:], src)
		src = src[n:]
		p.MarkDirty()
		id = p.Overflow().Next()
		off = page.OverflowHeaderSize
		s.Unpin(p)
	}
	return nil
}
