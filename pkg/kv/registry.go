package kv

import (
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// registry tracks the files open in this process. A file has a single owner because
// the page cache is not shared between handles.
var registry = struct {
	mu    sync.Mutex
	paths map[string]struct{}
}{paths: make(map[string]struct{})}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	return filepath.Clean(abs), nil
}

func acquire(path string) (string, error) {
	key, err := canonical(path)
	if err != nil {
		return "", err
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.paths[key]; ok {
		return "", errors.Wrap(ErrAlreadyOpen, key)
	}
	registry.paths[key] = struct{}{}
	return key, nil
}

func release(key string) {
	registry.mu.Lock()
	delete(registry.paths, key)
	registry.mu.Unlock()
}
