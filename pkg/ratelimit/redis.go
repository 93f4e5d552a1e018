package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "rate_limit:"

// RedisStore is a CounterStore on a shared Redis instance, giving all
// replicas one budget per client. INCR and EXPIRE-if-unset run in a single
// pipeline so a counter is never left without its TTL, even if the caller's
// context is cancelled mid-request.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

type RedisOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTimeout bounds each counter operation independently of the request
// context, so store calls never block a request indefinitely.
func WithTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.timeout = d }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:     rdb,
		prefix:  defaultKeyPrefix,
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implements CounterStore.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	// Complete the write even if the inbound request goes away: an
	// incremented counter without a TTL would never reset.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	redisKey := s.prefix + key

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
