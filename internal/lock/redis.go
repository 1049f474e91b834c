package lock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseIfOwnerScript deletes the lock key only while it still holds our token.
var releaseIfOwnerScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker is a Locker shared by every instance connected to the same Redis.
type RedisLocker struct {
	client        *redis.Client
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
}

// RedisLockerConfig holds configuration for the Redis locker.
type RedisLockerConfig struct {
	KeyPrefix     string
	TTL           time.Duration
	RetryInterval time.Duration
}

// NewRedisLocker creates a Redis-backed locker on an existing client.
func NewRedisLocker(client *redis.Client, cfg RedisLockerConfig) *RedisLocker {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "axiecache:lock"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}

	log.Printf("[RedisLocker] Started - prefix:%s, ttl:%v, retry:%v", keyPrefix, ttl, retry)
	return &RedisLocker{
		client:        client,
		keyPrefix:     keyPrefix,
		ttl:           ttl,
		retryInterval: retry,
	}
}

func (l *RedisLocker) lockKey(key string) string {
	return l.keyPrefix + ":" + key
}

// Acquire polls SET NX until the lock is taken or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := l.lockKey(key)

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseIfOwnerScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				log.Printf("[RedisLocker] Release %s error: %v", redisKey, err)
			}
		})
	}, nil
}

var _ Locker = (*RedisLocker)(nil)
