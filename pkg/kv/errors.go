package kv

import (
	"github.com/pkg/errors"

	"github.com/huynhanx03/pagekv/pkg/storage"
)

var (
	ErrAlreadyOpen = errors.New("database is already open in this process")
	ErrClosed      = errors.New("database is closed")

	// ErrNotExist is returned by Open for a missing file.
	ErrNotExist = storage.ErrNotExist
)
