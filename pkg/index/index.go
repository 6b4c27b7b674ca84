package index

import "github.com/pkg/errors"

// ErrStop ends a traversal early without reporting an error.
var ErrStop = errors.New("stop traversal")

// ErrNoProgress is returned when a mutation keeps failing to find room.
var ErrNoProgress = errors.New("insert made no progress")

// MaxPutAttempts bounds the split-and-retry loop of an insert. Every retry follows a
// split that strictly lowers the occupancy of the target page.
const MaxPutAttempts = 64

// Visitor receives every stored pair. The slices are only valid during the call.
type Visitor func(key, value []byte) error

// Index maps byte-string keys to byte-string values.
type Index interface {
	// Get returns a copy of the value stored under key.
	Get(key []byte) ([]byte, bool, error)

	// GetInto copies at most len(dst) bytes of the value into dst and returns the count.
	// It returns 0 when the key is absent.
	GetInto(key, dst []byte) (int, error)

	// Put stores value under key, replacing any previous value.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key []byte) error

	// Traverse calls fn for every pair until fn returns an error.
	// Returning ErrStop ends the traversal cleanly.
	Traverse(fn Visitor) error
}

// StopErr maps ErrStop to nil.
func StopErr(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
