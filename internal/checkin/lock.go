package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-registration/internal/logger"
)

const lockKeyPrefix = "checkin_lock:"

// Locker is the distributed mutual-exclusion capability used to serialize
// concurrent check-in attempts from independent kiosk processes. Any backing
// implementation can be substituted; acquisition must be paired with a
// deferred Release on every exit path.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// RedisLocker implements Locker with SET NX plus a TTL. The token identifies
// the owner so an expired-and-reacquired lock is never released by the
// previous holder.
type RedisLocker struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewRedisLocker(client *redis.Client, log *logger.Logger) *RedisLocker {
	return &RedisLocker{Client: client, Logger: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock acquire %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	redisKey := lockKeyPrefix + key
	val, err := l.Client.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil // expired, nothing to release
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err = l.Client.Del(ctx, redisKey).Result()
		return err
	}
	return nil
}
