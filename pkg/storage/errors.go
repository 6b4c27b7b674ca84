package storage

import "github.com/pkg/errors"

var (
	ErrNotExist      = errors.New("database file does not exist")
	ErrBadMagic      = errors.New("bad magic number")
	ErrChecksum      = errors.New("header checksum mismatch")
	ErrInvalidHeader = errors.New("invalid header")
	ErrInvalidConfig = errors.New("invalid store config")
	ErrInvalidPage   = errors.New("page id out of range")
	ErrCacheFull     = errors.New("every cached page is pinned")
	ErrClosed        = errors.New("store is closed")
)
