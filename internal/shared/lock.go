package shared

import (
	"fmt"

	"github.com/gofrs/flock"
)

// StateLock is an exclusive advisory lock held for the duration of a state mutation.
type StateLock struct {
	fl *flock.Flock
}

// AcquireStateLock takes the lock file next to the database at dbPath without blocking.
//
// It returns [ErrStateLocked] when another process holds it. In-memory databases are never locked.
func AcquireStateLock(dbPath string) (*StateLock, error) {
	if dbPath == "" || dbPath == ":memory:" {
		return &StateLock{}, nil
	}

	fl := flock.New(dbPath + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire state lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrStateLocked, fl.Path())
	}
	return &StateLock{fl: fl}, nil
}

// Release unlocks the state. Safe to call on a nil or no-op lock.
func (l *StateLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
