package lock

import (
	"context"
	"time"
)

// Locker serializes work on a named resource.
// This abstraction allows swapping between an in-process lock (single
// instance) and Redis (several instances sharing one store) without
// changing the synchronizer.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done. The
	// returned function releases the lock and is safe to call once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Common lock errors
type LockError string

func (e LockError) Error() string { return string(e) }

const (
	// ErrNotAcquired indicates ctx ended before the lock was obtained.
	ErrNotAcquired LockError = "lock not acquired"
)

// DefaultTTL bounds how long a crashed holder can keep a distributed lock.
const DefaultTTL = 2 * time.Minute
