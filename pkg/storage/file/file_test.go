package file

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ErrNotExist, errors.Cause(err))
}

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	f, err := Create(path)
	require.NoError(t, err)
	assert.True(t, Exists(path))

	require.NoError(t, f.WriteAt([]byte("hello"), 10))

	buf := make([]byte, 5)
	require.NoError(t, f.ReadAt(buf, 10))
	assert.Equal(t, "hello", string(buf))

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(15), size)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}

func TestReadAt_PastEOFZeroFills(t *testing.T) {
	f, err := Create(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.WriteAt([]byte{1, 2, 3}, 0))

	buf := []byte{9, 9, 9, 9, 9, 9}
	require.NoError(t, f.ReadAt(buf, 1))
	assert.Equal(t, []byte{2, 3, 0, 0, 0, 0}, buf)

	far := []byte{7, 7}
	require.NoError(t, f.ReadAt(far, 4096))
	assert.Equal(t, []byte{0, 0}, far)
}

func TestClosed(t *testing.T) {
	f, err := Create(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.ErrorIs(t, f.ReadAt(make([]byte, 1), 0), ErrClosed)
	assert.ErrorIs(t, f.WriteAt([]byte{1}, 0), ErrClosed)
	assert.ErrorIs(t, f.Sync(), ErrClosed)
}
