package file

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	ErrNotExist = errors.New("file does not exist")
	ErrClosed   = errors.New("file is closed")
)

// File is a random-access handle on a database file.
type File struct {
	f    *os.File
	path string
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// Create creates path, truncating any existing content.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return &File{f: f, path: path}, nil
}

// Open opens an existing file for reading and writing.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotExist, path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &File{f: f, path: path}, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// ReadAt fills p from offset off. Bytes past the end of the file read as zero.
func (f *File) ReadAt(p []byte, off int64) error {
	if f.f == nil {
		return ErrClosed
	}
	n, err := f.f.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "read %d bytes at %d", len(p), off)
	}
	clear(p[n:])
	return nil
}

// WriteAt writes all of p at offset off.
func (f *File) WriteAt(p []byte, off int64) error {
	if f.f == nil {
		return ErrClosed
	}
	if _, err := f.f.WriteAt(p, off); err != nil {
		return errors.Wrapf(err, "write %d bytes at %d", len(p), off)
	}
	return nil
}

// Size returns the current file length.
func (f *File) Size() (int64, error) {
	if f.f == nil {
		return 0, ErrClosed
	}
	st, err := f.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat")
	}
	return st.Size(), nil
}

// Sync commits written data to stable storage.
func (f *File) Sync() error {
	if f.f == nil {
		return ErrClosed
	}
	return errors.Wrap(f.f.Sync(), "fsync")
}

// Close releases the handle. Closing twice is a no-op.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return errors.Wrap(err, "close")
}
