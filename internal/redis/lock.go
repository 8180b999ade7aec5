package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a driver lock cannot be acquired before the context ends.
var ErrLockTimeout = errors.New("driver lock wait cancelled")

const lockPollInterval = 20 * time.Millisecond

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// LockStore handles distributed per-driver locking in Redis.
type LockStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLockStore creates a new LockStore. ttl bounds how long a crashed holder can block a driver.
func NewLockStore(client *redis.Client, ttl time.Duration) *LockStore {
	return &LockStore{client: client, ttl: ttl}
}

// AcquireDriverLock attempts to acquire the lock for the given driver once.
// Returns the holder token and true if the lock was acquired.
func (s *LockStore) AcquireDriverLock(ctx context.Context, driverID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockKey(driverID), token, s.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// ReleaseDriverLock releases the lock for the given driver if token still owns it.
func (s *LockStore) ReleaseDriverLock(ctx context.Context, driverID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{lockKey(driverID)}, token).Err()
}

// Lock blocks until the driver lock is held or ctx ends, and returns its release func.
func (s *LockStore) Lock(ctx context.Context, driverID string) (func(), error) {
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		token, ok, err := s.AcquireDriverLock(ctx, driverID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, err
		}
		if ok {
			return func() {
				// ctx may already be done here.
				_ = s.ReleaseDriverLock(context.Background(), driverID, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func lockKey(driverID string) string {
	return fmt.Sprintf("lock:driver:%s", driverID)
}
