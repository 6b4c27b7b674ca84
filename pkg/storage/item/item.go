package item

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/huynhanx03/pagekv/pkg/datastructs/buffer"
	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
	"github.com/huynhanx03/pagekv/pkg/utils"
)

const (
	onPageHeader  = 4
	offPageHeader = 16
	offPageFlag   = 1 << 31
)

// Form tells where the bytes of an item live.
type Form uint8

const (
	OnPage  Form = iota // entirely inside the slot
	OffPage             // local prefix in the slot, remainder in the overflow chain
)

// Item is a decoded slot. Local aliases the page.
type Item struct {
	Form        Form
	Local       []byte
	Total       int
	ChainPage   uint32
	ChainOffset uint32
}

// Pager is the part of the page store the codec relays overflow bytes through.
type Pager interface {
	PageSize() int
	MinItems() int
	AppendOverflow(data []byte) (uint32, uint32, error)
	ReadOverflow(id, off uint32, dst []byte) error
	WriteOverflow(id, off uint32, src []byte) error
}

var _ Pager = (*storage.Store)(nil)

// Codec encodes items into page slots. Items larger than the budget spill into the
// store's overflow chain.
type Codec struct {
	pager  Pager
	budget int
}

func NewCodec(p Pager) *Codec {
	return &Codec{
		pager:  p,
		budget: storage.ItemBudget(p.PageSize(), p.MinItems()),
	}
}

// Budget returns the largest slot footprint of one item.
func (c *Codec) Budget() int {
	return c.budget
}

// Footprint returns the slot bytes an item of n payload bytes occupies.
func (c *Codec) Footprint(n int) int {
	if size := onPageHeader + utils.AlignUp(n); size <= c.budget {
		return size
	}
	return c.budget
}

// Write encodes data into dst, which must be Footprint(len(data)) bytes long.
func (c *Codec) Write(dst, data []byte) error {
	if size := onPageHeader + utils.AlignUp(len(data)); size <= c.budget {
		binary.LittleEndian.PutUint32(dst, uint32(len(data)))
		n := copy(dst[onPageHeader:], data)
		clear(dst[onPageHeader+n : size])
		return nil
	}

	local := c.budget - offPageHeader
	id, off, err := c.pager.AppendOverflow(data[local:])
	if err != nil {
		return errors.Wrap(err, "spill item")
	}
	le := binary.LittleEndian
	le.PutUint32(dst, uint32(local)|offPageFlag)
	le.PutUint32(dst[4:], uint32(len(data)))
	le.PutUint32(dst[8:], id)
	le.PutUint32(dst[12:], off)
	copy(dst[offPageHeader:], data[:local])
	return nil
}

// Decode parses the item at the start of src.
func Decode(src []byte) (Item, error) {
	if len(src) < onPageHeader {
		return Item{}, errors.Wrap(page.ErrCorrupt, "truncated item header")
	}
	le := binary.LittleEndian
	h := le.Uint32(src)
	if h&offPageFlag == 0 {
		n := int(h)
		if onPageHeader+n > len(src) {
			return Item{}, errors.Wrapf(page.ErrCorrupt, "item length %d", n)
		}
		return Item{Form: OnPage, Local: src[onPageHeader : onPageHeader+n], Total: n}, nil
	}

	local := int(h &^ offPageFlag)
	if len(src) < offPageHeader || offPageHeader+local > len(src) {
		return Item{}, errors.Wrapf(page.ErrCorrupt, "off-page item local length %d", local)
	}
	it := Item{
		Form:        OffPage,
		Local:       src[offPageHeader : offPageHeader+local],
		Total:       int(le.Uint32(src[4:])),
		ChainPage:   le.Uint32(src[8:]),
		ChainOffset: le.Uint32(src[12:]),
	}
	if local > it.Total || (it.Total > local && it.ChainPage == 0) {
		return Item{}, errors.Wrapf(page.ErrCorrupt, "off-page item local %d total %d", local, it.Total)
	}
	return it, nil
}

// Size returns the slot footprint of the encoded item at the start of src.
func Size(src []byte) int {
	h := binary.LittleEndian.Uint32(src)
	if h&offPageFlag == 0 {
		return onPageHeader + utils.AlignUp(int(h))
	}
	return offPageHeader + utils.AlignUp(int(h&^offPageFlag))
}

// Read appends the full payload of the item at src to buf.
func (c *Codec) Read(src []byte, buf *buffer.Buffer) error {
	it, err := Decode(src)
	if err != nil {
		return err
	}
	buf.Append(it.Local)
	if rest := it.Total - len(it.Local); rest > 0 {
		return c.pager.ReadOverflow(it.ChainPage, it.ChainOffset, buf.Allocate(rest))
	}
	return nil
}

// ReadInto copies up to len(dst) payload bytes into dst and returns the count.
func (c *Codec) ReadInto(src, dst []byte) (int, error) {
	it, err := Decode(src)
	if err != nil {
		return 0, err
	}
	return c.readPrefix(it, dst)
}

func (c *Codec) readPrefix(it Item, dst []byte) (int, error) {
	want := min(it.Total, len(dst))
	n := copy(dst[:want], it.Local)
	if n < want {
		if err := c.pager.ReadOverflow(it.ChainPage, it.ChainOffset, dst[n:want]); err != nil {
			return 0, err
		}
	}
	return want, nil
}

// Compare orders the item at src against key: bytewise, a shorter common prefix first.
func (c *Codec) Compare(src, key []byte, scratch *buffer.Buffer) (int, error) {
	it, err := Decode(src)
	if err != nil {
		return 0, err
	}
	if it.Form == OnPage {
		return bytes.Compare(it.Local, key), nil
	}

	if len(key) >= len(it.Local) {
		if r := bytes.Compare(it.Local, key[:len(it.Local)]); r != 0 {
			return r, nil
		}
	} else {
		if r := bytes.Compare(it.Local[:len(key)], key); r != 0 {
			return r, nil
		}
		return 1, nil
	}

	// Only the bytes that can still differ from key are fetched from the chain.
	scratch.Reset()
	prefix := scratch.Allocate(min(it.Total, len(key)))
	if _, err := c.readPrefix(it, prefix); err != nil {
		return 0, err
	}
	if r := bytes.Compare(prefix, key[:len(prefix)]); r != 0 {
		return r, nil
	}
	switch {
	case it.Total < len(key):
		return -1, nil
	case it.Total > len(key):
		return 1, nil
	}
	return 0, nil
}

// Update rewrites the item at src in place when data fits the capacity it already
// reserves. It reports false when the caller must remove and reinsert instead.
func (c *Codec) Update(src, data []byte) (bool, error) {
	it, err := Decode(src)
	if err != nil {
		return false, err
	}

	if it.Form == OnPage {
		if utils.AlignUp(len(data)) > utils.AlignUp(it.Total) {
			return false, nil
		}
		binary.LittleEndian.PutUint32(src, uint32(len(data)))
		n := copy(src[onPageHeader:], data)
		clear(src[onPageHeader+n : onPageHeader+utils.AlignUp(it.Total)])
		return true, nil
	}

	if len(data) > it.Total {
		return false, nil
	}
	local := min(len(data), len(it.Local))
	le := binary.LittleEndian
	le.PutUint32(src, uint32(local)|offPageFlag)
	le.PutUint32(src[4:], uint32(len(data)))
	copy(src[offPageHeader:], data[:local])
	if len(data) > local {
		if err := c.pager.WriteOverflow(it.ChainPage, it.ChainOffset, data[local:]); err != nil {
			return false, err
		}
	}
	return true, nil
}
