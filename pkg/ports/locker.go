package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// It lets the pending Manager serialize work on one message across replicas.
type DistributedLocker interface {
	// Lock acquires a lock for key (a message key). It blocks until the lock is
	// acquired or the context is canceled. The lock is released by the returned
	// UnlockFunc, or by the TTL if the holder dies.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
