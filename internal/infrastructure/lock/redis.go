package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/polla/internal/platform/keylock"
)

const (
	defaultRedisLockTTL    = 15 * time.Second
	defaultRedisLockPrefix = "polla:lock:"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a keylock.Locker shared by every instance pointing at the
// same redis. Held keys expire after the TTL if the holder dies.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		prefix: defaultRedisLockPrefix,
		tokens: make(map[string]string),
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis set nx key=%s: %w", key, err)
	}
	if !acquired {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if !ok {
		return keylock.ErrNotHeld
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Int()
	if err != nil {
		return fmt.Errorf("redis release key=%s: %w", key, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: key=%s expired before release", keylock.ErrNotHeld, key)
	}
	return nil
}
