package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var delIfValueScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

const defaultRedisOpTimeout = 5 * time.Second

// Redis implements Store using a Redis backend. SetIfAbsent maps to
// SET NX with expiration, so atomicity is provided by Redis itself.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithTimeout sets the per-operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(s *Redis) {
		s.timeout = d
	}
}

// NewRedis returns a new Redis store using the provided client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	s := &Redis{client: client, timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetIfAbsent implements Store.SetIfAbsent.
func (s *Redis) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// Delete implements Store.Delete. Deleting an absent key is a no-op.
func (s *Redis) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Del(ctx, key).Err()
}

// DeleteIfValue implements GuardedDeleter through a compare-and-delete
// Lua script, so an expired holder cannot remove a successor's entry.
func (s *Redis) DeleteIfValue(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := delIfValueScript.Run(ctx, s.client, []string{key}, value).Result()
	if err == redis.Nil {
		err = nil
	}
	return err
}
