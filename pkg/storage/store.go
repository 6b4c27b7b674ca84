package storage

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/common/cache/lru"
	"github.com/huynhanx03/pagekv/pkg/logger"
	"github.com/huynhanx03/pagekv/pkg/pool/block"
	"github.com/huynhanx03/pagekv/pkg/settings"
	"github.com/huynhanx03/pagekv/pkg/storage/file"
	"github.com/huynhanx03/pagekv/pkg/storage/page"
)

// Store owns a database file: its header, the page cache and the block pool behind it.
//
// A single mutex guards all of it. Sync and Close take the lock themselves; every other
// method must be called with the lock held through Lock/Unlock.
type Store struct {
	mu     sync.Mutex
	file   *file.File
	header Header
	pool   *block.Pool
	cache  *lru.Cache[*Page]
	frames []Page // indexed by block id
	log    *zap.Logger

	stats   Stats
	syncErr error
	closing bool
	closed  bool
}

// Stats reports counters of a Store.
type Stats struct {
	PageSize   int
	Pages      uint32
	Cached     int
	CacheSize  int
	Blocks     int // page blocks in the pool
	FreeBlocks int
	Hits       uint64
	Misses     uint64
	Reads      uint64
	Writes     uint64
	Evictions  uint64
}

// Create creates a new database file described by cfg, replacing any existing file.
func Create(cfg settings.Store, opts ...Option) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	kind, err := ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	h := Header{
		Kind:      kind,
		PageSize:  uint32(cfg.PageSize),
		CacheSize: uint32(cfg.CacheSize),
		MinItems:  uint32(cfg.MinItems),
	}
	if err := h.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	f, err := file.Create(cfg.Path)
	if err != nil {
		return nil, err
	}
	s := newStore(f, h, buildOptions(opts))
	if err := s.writeHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	s.log.Info("created",
		zap.String("path", cfg.Path),
		zap.Stringer("kind", kind),
		zap.Int("page_size", cfg.PageSize),
		zap.Int("cache_size", cfg.CacheSize),
		zap.Int("min_items", cfg.MinItems),
	)
	return s, nil
}

// Open opens an existing database file and validates its header.
func Open(path string, opts ...Option) (*Store, error) {
	f, err := file.Open(path)
	if err != nil {
		if errors.Is(err, file.ErrNotExist) {
			return nil, errors.Wrap(ErrNotExist, path)
		}
		return nil, err
	}

	size, err := f.Size()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if size < HeaderSize {
		_ = f.Close()
		return nil, errors.Wrapf(ErrInvalidHeader, "%s: file is %d bytes", path, size)
	}

	raw := make([]byte, HeaderSize)
	if err := f.ReadAt(raw, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	h, err := DecodeHeader(raw)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, path)
	}

	s := newStore(f, h, buildOptions(opts))
	s.log.Info("opened",
		zap.String("path", path),
		zap.Stringer("kind", h.Kind),
		zap.Uint32("pages", h.MaxPageID),
		zap.Uint32("root", h.Root),
		zap.Int64("size", size),
	)
	return s, nil
}

func newStore(f *file.File, h Header, o options) *Store {
	capacity := int(h.CacheSize)
	s := &Store{
		file:   f,
		header: h,
		// one spare block holds an incoming page while the victim is written back
		pool:   block.New(int(h.PageSize), capacity+1),
		cache:  lru.New[*Page](capacity),
		frames: make([]Page, capacity+1),
		log:    logger.Component(o.logger, "storage"),
	}
	s.cache.SetSynchronizer(s.release)
	s.cache.SetEvictable(func(p *Page) bool { return p.pins == 0 })
	return s
}

// Lock acquires the store lock.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the store lock.
func (s *Store) Unlock() {
	s.mu.Unlock()
}

func (s *Store) Kind() Kind        { return s.header.Kind }
func (s *Store) PageSize() int     { return int(s.header.PageSize) }
func (s *Store) MinItems() int     { return int(s.header.MinItems) }
func (s *Store) MaxPageID() uint32 { return s.header.MaxPageID }
func (s *Store) Root() uint32      { return s.header.Root }
func (s *Store) Path() string      { return s.file.Path() }

// SetRoot records the root page of the index.
func (s *Store) SetRoot(id uint32) {
	s.header.Root = id
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	st := s.stats
	st.PageSize = int(s.header.PageSize)
	st.Pages = s.header.MaxPageID
	st.Cached = s.cache.Len()
	st.CacheSize = s.cache.Cap()
	st.Blocks = s.pool.Cap()
	st.FreeBlocks = s.pool.Free()
	return st
}

// Fetch returns page id pinned, reading it from the file on a cache miss.
func (s *Store) Fetch(id uint32) (*Page, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if id == 0 || id > s.header.MaxPageID {
		return nil, errors.Wrapf(ErrInvalidPage, "page %d of %d", id, s.header.MaxPageID)
	}
	if p, ok := s.cache.Get(id); ok {
		s.stats.Hits++
		p.pins++
		return p, nil
	}
	s.stats.Misses++
	p, err := s.admit(id, true)
	if err != nil {
		return nil, err
	}
	if err := s.takeSyncErr(); err != nil {
		s.Unpin(p)
		return nil, err
	}
	return p, nil
}

// Allocate appends a new page of type t and returns it pinned and dirty.
// A failed allocation releases the page id again.
func (s *Store) Allocate(t page.Type) (*Page, error) {
	if s.closed {
		return nil, ErrClosed
	}
	id := s.NewPageID()
	p, err := s.admit(id, false)
	if err != nil {
		s.header.MaxPageID--
		return nil, err
	}
	if err := s.takeSyncErr(); err != nil {
		s.discard(p)
		s.header.MaxPageID--
		return nil, err
	}
	switch t {
	case page.TypeInternal, page.TypeLeaf, page.TypeBucket:
		p.Slotted().Init(t, id)
	case page.TypeOverflow:
		p.Overflow().Init()
	case page.TypeHashIndex:
		p.Index().Init(1)
	}
	p.dirty = true
	return p, nil
}

// NewPageID reserves the next page id. Ids are never reused.
func (s *Store) NewPageID() uint32 {
	s.header.MaxPageID++
	return s.header.MaxPageID
}

// Unpin releases one pin taken by Fetch or Allocate.
func (s *Store) Unpin(p *Page) {
	if p.pins <= 0 {
		panic("storage: unpin of unpinned page")
	}
	p.pins--
}

func (s *Store) admit(id uint32, read bool) (*Page, error) {
	b, ok := s.pool.Get()
	if !ok {
		return nil, ErrCacheFull
	}
	if read {
		if err := s.file.ReadAt(b.Data, s.offset(id)); err != nil {
			s.pool.Put(b)
			return nil, errors.Wrapf(err, "read page %d", id)
		}
		s.stats.Reads++
	} else {
		block.Zero(b)
	}

	p := &s.frames[b.ID]
	*p = Page{id: id, block: b, pins: 1}
	if !s.cache.Set(id, p) {
		s.pool.Put(b)
		return nil, ErrCacheFull
	}
	return p, nil
}

// takeSyncErr returns and clears the error of a failed write-back.
func (s *Store) takeSyncErr() error {
	err := s.syncErr
	s.syncErr = nil
	return err
}

// discard drops a cached page without writing it back.
func (s *Store) discard(p *Page) {
	p.pins = 0
	p.dirty = false
	s.cache.Delete(p.id)
}

// release is the cache synchronizer: it writes a departing page back and recycles its block.
func (s *Store) release(id uint32, p *Page) {
	if err := s.flush(p); err != nil && s.syncErr == nil {
		s.syncErr = err
	}
	if !s.closing {
		s.stats.Evictions++
		s.log.Debug("evicted", zap.Uint32("page", id))
	}
	s.pool.Put(p.block)
	p.block = block.Block{ID: -1}
}

func (s *Store) flush(p *Page) error {
	if !p.dirty {
		return nil
	}
	if err := s.file.WriteAt(p.block.Data, s.offset(p.id)); err != nil {
		s.log.Error("write back failed", zap.Uint32("page", p.id), zap.Error(err))
		return errors.Wrapf(err, "write page %d", p.id)
	}
	s.stats.Writes++
	p.dirty = false
	return nil
}

func (s *Store) offset(id uint32) int64 {
	return HeaderSize + int64(id-1)*int64(s.header.PageSize)
}

func (s *Store) writeHeader() error {
	var raw [HeaderSize]byte
	s.header.Encode(raw[:])
	return errors.Wrap(s.file.WriteAt(raw[:], 0), "write header")
}

// Sync writes the header and every dirty cached page, then fsyncs the file.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync()
}

func (s *Store) sync() error {
	if s.closed {
		return ErrClosed
	}
	// write back in file order
	ids := s.cache.Keys()
	slices.Sort(ids)
	for _, id := range ids {
		p, _ := s.cache.Peek(id)
		if err := s.flush(p); err != nil {
			return err
		}
	}
	if err := s.writeHeader(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close flushes everything and releases the file. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.closing = true
	s.cache.Clear()
	err := s.syncErr
	if err == nil {
		err = s.writeHeader()
	}
	if err == nil {
		err = s.file.Sync()
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.closed = true

	if err != nil {
		s.log.Error("close failed", zap.String("path", s.file.Path()), zap.Error(err))
		return err
	}
	s.log.Info("closed", zap.String("path", s.file.Path()), zap.Uint32("pages", s.header.MaxPageID))
	return nil
}
