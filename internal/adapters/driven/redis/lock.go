package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "oauth-broker:lock:"

// Lock implements DistributedLock with SET NX PX. The janitor uses it so
// that only one replica purges the PostgreSQL tables per interval.
type Lock struct {
	client  *redis.Client
	ownerID string
}

// NewLock creates a lock handle owned by this process.
func NewLock(client *redis.Client) *Lock {
	hostname, _ := os.Hostname()
	return &Lock{
		client:  client,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
}

// Acquire takes the named lock for ttl. It returns false, nil when
// another owner holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// ownedDel deletes KEYS[1] only while it still holds ARGV[1].
var ownedDel = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release drops the named lock if this owner holds it.
// Releasing a lock held by someone else, or by nobody, is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := ownedDel.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// ownedExpire resets the TTL of KEYS[1] only while it still holds ARGV[1].
var ownedExpire = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend pushes the named lock's expiry out to ttl from now.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := ownedExpire.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

// Ping checks if Redis is reachable
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this holder in logs.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
