package driven

import (
	"context"
	"time"
)

// DistributedLock serializes the janitor sweep so only one broker instance
// reaps expired states and credentials at a time. Backed by Redis SET NX
// or a PostgreSQL advisory lock.
type DistributedLock interface {
	// Acquire takes the named lock for at most ttl. It reports false,
	// without error, when another instance holds it; that sweep is skipped.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up the named lock. Releasing a lock that is not held,
	// or has already lapsed, is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes out the expiry of a lock held by this instance.
	// Advisory locks have no expiry, so the postgres backend accepts it as a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping reports whether the lock backend answers.
	Ping(ctx context.Context) error
}
