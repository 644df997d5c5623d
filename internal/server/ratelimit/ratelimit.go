// Package ratelimit counts requests per key in fixed time windows.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tgotp:rl:"

var ErrFailedToParseRedisURL = errors.New("failed to parse redis url")

// Counter increments key and makes it expire after ttl, returning the new
// value.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter implements Counter with INCR and EXPIRE sent in one MULTI.
type RedisCounter struct {
	client redis.Cmdable
}

func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val(), nil
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Limiter allows at most limit hits per key in each window. A Limiter
// without a counter or with a non-positive limit allows everything.
type Limiter struct {
	counter Counter
	name    string
	limit   int
	window  time.Duration
	now     func() time.Time
}

func New(counter Counter, name string, limit int, window time.Duration) *Limiter {
	return &Limiter{counter: counter, name: name, limit: limit, window: window, now: time.Now}
}

// Disabled returns a Limiter that allows every request.
func Disabled() *Limiter {
	return &Limiter{}
}

func (l *Limiter) Enabled() bool {
	return l.counter != nil && l.limit > 0 && l.window > 0
}

// Allow records a hit for key and reports whether it is within the limit.
// Counter failures are returned with allowed set to true so callers can
// choose to fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	n, err := l.counter.Incr(ctx, l.key(key), l.window)
	if err != nil {
		return true, err
	}
	return n <= int64(l.limit), nil
}

// key includes the window index, so every window starts a fresh counter.
func (l *Limiter) key(key string) string {
	slot := l.now().UnixNano() / int64(l.window)
	return keyPrefix + l.name + ":" + key + ":" + strconv.FormatInt(slot, 10)
}
