package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockManager implements SET NX PX locks shared by every instance talking to
// the same Redis. The key's value is the token handed to its holder.
type LockManager struct {
	client *redis.Client
	prefix string
}

// NewLockManager stores locks as prefix:lock:<key>.
func NewLockManager(client *redis.Client, prefix string) *LockManager {
	return &LockManager{client: client, prefix: prefix}
}

func (lm *LockManager) key(name string) string {
	return lm.prefix + ":lock:" + name
}

func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := lm.client.SetNX(ctx, lm.key(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redisstore: acquire %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (lm *LockManager) ReleaseLock(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, lm.client, []string{lm.key(key)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redisstore: release %s: %w", key, err)
	}
	return nil
}

func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := lm.client.Exists(ctx, lm.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: check %s: %w", key, err)
	}
	return n > 0, nil
}
