package driven

import (
	"context"
	"time"
)

// DistributedLock serializes work across instances. The sync engine takes a
// per-credential lock around token refresh so two concurrent syncs cannot
// race to overwrite the durable credential.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if the lock was acquired, false if already held.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; TTL-based
	// implementations auto-expire anyway. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
