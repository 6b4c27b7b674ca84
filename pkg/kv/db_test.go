package kv

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/huynhanx03/pagekv/pkg/index"
	"github.com/huynhanx03/pagekv/pkg/settings"
	"github.com/huynhanx03/pagekv/pkg/storage"
)

var kinds = []string{settings.KindBTree, settings.KindHash}

func testConfig(t *testing.T, kind string) settings.Store {
	t.Helper()
	cfg := settings.Default(filepath.Join(t.TempDir(), kind+".db"))
	cfg.Kind = kind
	return cfg
}

// randomBytes returns n bytes prefixed by id so that keys stay unique.
func randomBytes(r *rand.Rand, id, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.UintN(256))
	}
	prefix := fmt.Appendf(nil, "%d:", id)
	if n >= len(prefix) {
		copy(b, prefix)
	}
	return b
}

// ============================================================================
// Open / Create
// ============================================================================

func TestOpen_NotExist(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestOpenConfig(t *testing.T) {
	cfg := testConfig(t, settings.KindHash)

	_, err := OpenConfig(cfg)
	require.ErrorIs(t, err, ErrNotExist)

	cfg.Create = true
	db, err := OpenConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, storage.KindHash, db.Kind())
	require.NoError(t, db.Put([]byte("a"), []byte("1")))
	require.NoError(t, db.Close())

	// An existing file keeps its layout and contents.
	cfg.Kind = settings.KindBTree
	db, err = OpenConfig(cfg)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, storage.KindHash, db.Kind())
	v, ok, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestCreate_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, settings.KindBTree)
	cfg.PageSize = 1000
	_, err := Create(cfg)
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)

	// A failed open does not leave the path registered.
	cfg.PageSize = 512
	db, err := Create(cfg)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestAlreadyOpen(t *testing.T) {
	cfg := testConfig(t, settings.KindBTree)
	db, err := Create(cfg)
	require.NoError(t, err)

	_, err = Open(cfg.Path)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
	_, err = Create(cfg)
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	db, err = Open(cfg.Path)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestClosed(t *testing.T) {
	db, err := Create(testConfig(t, settings.KindHash))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, _, err = db.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, db.Put([]byte("k"), nil), ErrClosed)
	assert.ErrorIs(t, db.Delete([]byte("k")), ErrClosed)
	assert.ErrorIs(t, db.Sync(), ErrClosed)
	_, err = db.Stats()
	assert.ErrorIs(t, err, ErrClosed)
}

// ============================================================================
// Operations
// ============================================================================

// uniqueKeys returns n random keys of 1..maxLen bytes. Keys long enough carry their
// index as a prefix; short ones are redrawn until they are unique.
func uniqueKeys(r *rand.Rand, n, maxLen int) [][]byte {
	seen := make(map[string]bool, n)
	keys := make([][]byte, n)
	for i := range keys {
		for {
			k := randomBytes(r, i, 1+r.IntN(maxLen))
			if !seen[string(k)] {
				seen[string(k)] = true
				keys[i] = k
				break
			}
		}
	}
	return keys
}

func TestScenario(t *testing.T) {
	const n, maxLen = 1000, 15000
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			cfg := testConfig(t, kind)
			cfg.PageSize = 4096
			cfg.MinItems = 4
			db, err := Create(cfg)
			require.NoError(t, err)

			r := rand.New(rand.NewPCG(1000, 15000))
			keys := uniqueKeys(r, n, maxLen)
			values := make([][]byte, n)
			for i := range keys {
				values[i] = randomBytes(r, i, 1+r.IntN(maxLen))
				require.NoError(t, db.Put(keys[i], values[i]))
			}

			check := func(db *DB) {
				t.Helper()
				for i := range keys {
					v, ok, err := db.Get(keys[i])
					require.NoError(t, err)
					if values[i] == nil {
						require.False(t, ok, "key %d should be gone", i)
						got, err := db.GetInto(keys[i], make([]byte, 16))
						require.NoError(t, err)
						require.Zero(t, got, "key %d", i)
						continue
					}
					require.True(t, ok, "key %d missing", i)
					require.True(t, bytes.Equal(values[i], v), "key %d", i)
				}
			}
			check(db)

			for i := 0; i < n; i += 2 {
				values[i] = randomBytes(r, i, 1+r.IntN(maxLen))
				require.NoError(t, db.Put(keys[i], values[i]))
			}
			check(db)

			for i := 0; i < n; i += 2 {
				require.NoError(t, db.Delete(keys[i]))
				values[i] = nil
			}
			check(db)
			require.NoError(t, db.Close())

			db, err = Open(cfg.Path)
			require.NoError(t, err)
			defer db.Close()
			check(db)

			count := 0
			require.NoError(t, db.Traverse(func(_, _ []byte) error {
				count++
				return nil
			}))
			assert.Equal(t, n/2, count)
		})
	}
}

func TestGetInto(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			db, err := Create(testConfig(t, kind))
			require.NoError(t, err)
			defer db.Close()

			value := bytes.Repeat([]byte("0123456789"), 1000)
			require.NoError(t, db.Put([]byte("k"), value))

			buf := make([]byte, 4500)
			n, err := db.GetInto([]byte("k"), buf)
			require.NoError(t, err)
			assert.Equal(t, len(buf), n)
			assert.Equal(t, value[:len(buf)], buf)

			n, err = db.GetInto([]byte("absent"), buf)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestTraverse_Ordered(t *testing.T) {
	db, err := Create(testConfig(t, settings.KindBTree))
	require.NoError(t, err)
	defer db.Close()

	for _, i := range rand.New(rand.NewPCG(2, 3)).Perm(500) {
		require.NoError(t, db.Put(fmt.Appendf(nil, "%05d", i), nil))
	}
	var prev []byte
	count := 0
	require.NoError(t, db.Traverse(func(k, _ []byte) error {
		if prev != nil {
			assert.Negative(t, bytes.Compare(prev, k))
		}
		prev = bytes.Clone(k)
		count++
		if count == 250 {
			return index.ErrStop
		}
		return nil
	}))
	assert.Equal(t, []byte("00249"), prev)
}

func TestStats(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			db, err := Create(testConfig(t, kind))
			require.NoError(t, err)
			defer db.Close()

			for i := 0; i < 200; i++ {
				require.NoError(t, db.Put(fmt.Appendf(nil, "key-%d", i), bytes.Repeat([]byte{1}, 100)))
			}
			require.NoError(t, db.Sync())

			st, err := db.Stats()
			require.NoError(t, err)
			assert.Equal(t, settings.DefaultPageSize, st.Store.PageSize)
			assert.Positive(t, st.Store.Pages)
			assert.Positive(t, st.Store.Writes)
			switch kind {
			case settings.KindBTree:
				require.NotNil(t, st.BTree)
				assert.Nil(t, st.Hash)
				assert.Equal(t, 200, st.BTree.Keys)
			case settings.KindHash:
				require.NotNil(t, st.Hash)
				assert.Nil(t, st.BTree)
				assert.Equal(t, 200, st.Hash.Keys)
			}
		})
	}
}

// ============================================================================
// Concurrency
// ============================================================================

func TestConcurrentAccess(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			cfg := testConfig(t, kind)
			cfg.PageSize = 512
			cfg.CacheSize = 16
			db, err := Create(cfg)
			require.NoError(t, err)
			defer db.Close()

			const workers, perWorker = 8, 150
			var g errgroup.Group
			for w := 0; w < workers; w++ {
				g.Go(func() error {
					for i := 0; i < perWorker; i++ {
						k := fmt.Appendf(nil, "w%d-k%d", w, i)
						if err := db.Put(k, bytes.Repeat(k, i%40)); err != nil {
							return err
						}
						v, ok, err := db.Get(k)
						if err != nil {
							return err
						}
						if !ok || !bytes.Equal(v, bytes.Repeat(k, i%40)) {
							return fmt.Errorf("worker %d: bad value for %s", w, k)
						}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			st, err := db.Stats()
			require.NoError(t, err)
			if st.BTree != nil {
				assert.Equal(t, workers*perWorker, st.BTree.Keys)
			} else {
				assert.Equal(t, workers*perWorker, st.Hash.Keys)
			}
		})
	}
}
