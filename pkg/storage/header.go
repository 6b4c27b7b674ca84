package storage

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/huynhanx03/pagekv/pkg/hash"
	"github.com/huynhanx03/pagekv/pkg/settings"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
	"github.com/huynhanx03/pagekv/pkg/utils"
)

const (
	Magic      uint32 = 0x97f59c92
	HeaderSize        = 64

	offChecksum = 48

	minPageSize = 512
	maxPageSize = 65536
	minMinItems = 4
	maxMinItems = 64
	minBudget   = 32
)

// Kind selects the index structure stored in a file.
type Kind uint32

const (
	KindBTree Kind = iota
	KindHash
)

func (k Kind) String() string {
	switch k {
	case KindBTree:
		return settings.KindBTree
	case KindHash:
		return settings.KindHash
	default:
		return "unknown"
	}
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case settings.KindBTree, "":
		return KindBTree, nil
	case settings.KindHash:
		return KindHash, nil
	default:
		return 0, errors.Wrapf(ErrInvalidConfig, "unknown kind %q", s)
	}
}

// Header is the persisted file header at offset 0.
type Header struct {
	Kind           Kind
	PageSize       uint32
	CacheSize      uint32
	MaxPageID      uint32
	OverflowPage   uint32
	OverflowOffset uint32
	MinItems       uint32
	Root           uint32
}

// ItemBudget is the largest on-page footprint of one item. It leaves room for
// minItems items per page, each with a 4-byte prefix and a 4-byte slot.
func ItemBudget(pageSize, minItems int) int {
	return utils.AlignDown((pageSize-page.SlottedHeaderSize)/minItems - 8)
}

// Encode writes h into b, which must hold HeaderSize bytes.
func (h *Header) Encode(b []byte) {
	clear(b[:HeaderSize])
	le := binary.LittleEndian
	le.PutUint32(b[0:], Magic)
	le.PutUint32(b[4:], uint32(h.Kind))
	le.PutUint32(b[8:], h.PageSize)
	le.PutUint32(b[12:], h.CacheSize)
	le.PutUint32(b[16:], h.MaxPageID)
	le.PutUint32(b[20:], h.OverflowPage)
	le.PutUint32(b[24:], h.OverflowOffset)
	le.PutUint32(b[28:], h.MinItems)
	le.PutUint32(b[32:], h.Root)
	le.PutUint64(b[offChecksum:], hash.Checksum(b[:offChecksum]))
}

// DecodeHeader parses and validates a header.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Wrapf(ErrInvalidHeader, "short header: %d bytes", len(b))
	}
	le := binary.LittleEndian
	if m := le.Uint32(b); m != Magic {
		return Header{}, errors.Wrapf(ErrBadMagic, "got %#x", m)
	}
	if sum := le.Uint64(b[offChecksum:]); sum != hash.Checksum(b[:offChecksum]) {
		return Header{}, ErrChecksum
	}
	h := Header{
		Kind:           Kind(le.Uint32(b[4:])),
		PageSize:       le.Uint32(b[8:]),
		CacheSize:      le.Uint32(b[12:]),
		MaxPageID:      le.Uint32(b[16:]),
		OverflowPage:   le.Uint32(b[20:]),
		OverflowOffset: le.Uint32(b[24:]),
		MinItems:       le.Uint32(b[28:]),
		Root:           le.Uint32(b[32:]),
	}
	return h, h.Validate()
}

// Validate checks field ranges and cross-field consistency.
func (h *Header) Validate() error {
	ps := int(h.PageSize)
	switch {
	case h.Kind != KindBTree && h.Kind != KindHash:
		return errors.Wrapf(ErrInvalidHeader, "kind %d", h.Kind)
	case ps < minPageSize || ps > maxPageSize || !utils.IsPowerOfTwo(ps):
		return errors.Wrapf(ErrInvalidHeader, "page size %d", ps)
	case h.MinItems < minMinItems || h.MinItems > maxMinItems:
		return errors.Wrapf(ErrInvalidHeader, "min items %d", h.MinItems)
	case ItemBudget(ps, int(h.MinItems)) < minBudget:
		return errors.Wrapf(ErrInvalidHeader, "min items %d too large for page size %d", h.MinItems, ps)
	case h.CacheSize == 0:
		return errors.Wrap(ErrInvalidHeader, "cache size 0")
	case h.Root > h.MaxPageID || h.OverflowPage > h.MaxPageID:
		return errors.Wrapf(ErrInvalidHeader, "page id beyond max %d", h.MaxPageID)
	case h.OverflowPage != 0 && (h.OverflowOffset < page.OverflowHeaderSize || h.OverflowOffset >= h.PageSize):
		return errors.Wrapf(ErrInvalidHeader, "overflow offset %d", h.OverflowOffset)
	}
	return nil
}
