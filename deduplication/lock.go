package deduplication

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run already holds the state lock.
var ErrLocked = errors.New("another run holds the state lock")

// Locker guards the whole load -> commit cycle so overlapping runs cannot
// overwrite each other's keys. Lock either acquires immediately or returns
// ErrLocked.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// FileLocker takes an exclusive flock on a sidecar file.
type FileLocker struct {
	path string
}

// NewFileLocker locks path (conventionally "<state file>.lock").
func NewFileLocker(path string) *FileLocker {
	return &FileLocker{path: path}
}

func (l *FileLocker) Lock(_ context.Context) (func() error, error) {
	fl := flock.New(l.path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", l.path, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}

// NoopLocker is used when the deployment guarantees a single run at a time.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context) (func() error, error) {
	return func() error { return nil }, nil
}
