package kv

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/huynhanx03/pagekv/pkg/index"
	"github.com/huynhanx03/pagekv/pkg/index/btree"
	"github.com/huynhanx03/pagekv/pkg/index/linhash"
	"github.com/huynhanx03/pagekv/pkg/logger"
	"github.com/huynhanx03/pagekv/pkg/settings"
	"github.com/huynhanx03/pagekv/pkg/storage"
	"github.com/huynhanx03/pagekv/pkg/storage/file"
)

// DB is an open database file and the index it holds.
// Its methods are safe for concurrent use; they are serialized by the store lock.
type DB struct {
	key    string
	store  *storage.Store
	index  index.Index
	log    *zap.Logger
	closed atomic.Bool
}

// Stats combines the store counters with the shape of the index.
// Exactly one of BTree and Hash is set.
type Stats struct {
	Kind  storage.Kind
	Store storage.Stats
	BTree *btree.Stats
	Hash  *linhash.Stats
}

// Open opens an existing database file.
func Open(path string, opts ...Option) (*DB, error) {
	o := buildOptions(opts)
	return open(path, o, func() (*storage.Store, error) {
		return storage.Open(path, storage.WithLogger(o.logger))
	})
}

// Create creates a database file from cfg, replacing any file at cfg.Path.
func Create(cfg settings.Store, opts ...Option) (*DB, error) {
	o := buildOptions(opts)
	return open(cfg.Path, o, func() (*storage.Store, error) {
		return storage.Create(cfg, storage.WithLogger(o.logger))
	})
}

// OpenConfig opens the file at cfg.Path. A missing file is created when cfg.Create is set.
// The layout fields of cfg only apply to a newly created file.
func OpenConfig(cfg settings.Store, opts ...Option) (*DB, error) {
	if cfg.Create && !file.Exists(cfg.Path) {
		return Create(cfg, opts...)
	}
	return Open(cfg.Path, opts...)
}

func open(path string, o options, openStore func() (*storage.Store, error)) (*DB, error) {
	key, err := acquire(path)
	if err != nil {
		return nil, err
	}
	s, err := openStore()
	if err != nil {
		release(key)
		return nil, err
	}

	var idx index.Index
	switch s.Kind() {
	case storage.KindBTree:
		idx, err = btree.New(s, o.logger)
	case storage.KindHash:
		idx, err = linhash.New(s, o.logger)
	default:
		err = errors.Wrapf(storage.ErrInvalidHeader, "unknown index kind %d", s.Kind())
	}
	if err != nil {
		_ = s.Close()
		release(key)
		return nil, err
	}

	return &DB{
		key:   key,
		store: s,
		index: idx,
		log:   logger.Component(o.logger, "kv").With(zap.String("path", key)),
	}, nil
}

// Kind returns the index structure of the file.
func (db *DB) Kind() storage.Kind {
	return db.store.Kind()
}

// Path returns the absolute path of the file.
func (db *DB) Path() string {
	return db.key
}

// Get returns a copy of the value under key and whether it exists.
func (db *DB) Get(key []byte) ([]byte, bool, error) {
	if db.closed.Load() {
		return nil, false, ErrClosed
	}
	return db.index.Get(key)
}

// GetInto copies at most len(dst) bytes of the value under key into dst.
// It returns 0 when the key is absent.
func (db *DB) GetInto(key, dst []byte) (int, error) {
	if db.closed.Load() {
		return 0, ErrClosed
	}
	return db.index.GetInto(key, dst)
}

// Put stores value under key.
func (db *DB) Put(key, value []byte) error {
	if db.closed.Load() {
		return ErrClosed
	}
	if err := db.index.Put(key, value); err != nil {
		db.log.Error("put failed", zap.Int("key_len", len(key)), zap.Int("value_len", len(value)), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (db *DB) Delete(key []byte) error {
	if db.closed.Load() {
		return ErrClosed
	}
	return db.index.Delete(key)
}

// Traverse calls fn for every pair. B+Tree files yield keys in ascending order.
// fn must not call back into db.
func (db *DB) Traverse(fn index.Visitor) error {
	if db.closed.Load() {
		return ErrClosed
	}
	return db.index.Traverse(fn)
}

// Sync writes every dirty page and the header to disk.
func (db *DB) Sync() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return db.store.Sync()
}

// Stats reports store counters and index shape.
func (db *DB) Stats() (Stats, error) {
	if db.closed.Load() {
		return Stats{}, ErrClosed
	}
	db.store.Lock()
	st := Stats{Kind: db.store.Kind(), Store: db.store.Stats()}
	db.store.Unlock()

	var err error
	switch idx := db.index.(type) {
	case *btree.Tree:
		var bs btree.Stats
		bs, err = idx.Stats()
		st.BTree = &bs
	case *linhash.Index:
		var hs linhash.Stats
		hs, err = idx.Stats()
		st.Hash = &hs
	}
	return st, err
}

// Close flushes the file and releases it. Closing twice is a no-op.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer release(db.key)
	return db.store.Close()
}
