package deploy

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock is the advisory file lock that keeps rollouts of one app single-flight.
type Lock struct {
	flock *flock.Flock
}

func NewLock(path string) *Lock {
	return &Lock{flock: flock.New(path)}
}

// Acquire takes the lock without waiting. It returns ErrLocked when another
// process holds it.
func (l *Lock) Acquire() error {
	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.flock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", l.flock.Path(), ErrLocked)
	}
	return nil
}

func (l *Lock) Release() error {
	if l == nil || !l.flock.Locked() {
		return nil
	}
	return l.flock.Unlock()
}
