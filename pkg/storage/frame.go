package storage

import (
	"github.com/huynhanx03/pagekv/pkg/pool/block"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// Page is a cached page. Pages come back from Fetch and Allocate pinned;
// every pin must be released with Store.Unpin.
type Page struct {
	id    uint32
	block block.Block
	pins  int
	dirty bool
}

func (p *Page) ID() uint32 {
	return p.id
}

// Data returns the page bytes. They stay valid while the page is pinned.
func (p *Page) Data() []byte {
	return p.block.Data
}

// MarkDirty schedules the page for write-back.
func (p *Page) MarkDirty() {
	p.dirty = true
}

func (p *Page) Dirty() bool {
	return p.dirty
}

func (p *Page) Slotted() page.Slotted {
	return page.Slotted(p.block.Data)
}

func (p *Page) Overflow() page.Overflow {
	return page.Overflow(p.block.Data)
}

func (p *Page) Index() page.Index {
	return page.Index(p.block.Data)
}
