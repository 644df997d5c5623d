package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	f.ttls[key] = ttl
	return f.counts[key], nil
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	c := newFakeCounter()
	l := New(c, "import", 3, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "7")
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, err := l.Allow(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok)

	// other keys are counted separately
	ok, _ = l.Allow(ctx, "8")
	assert.True(t, ok)

	// next window starts over
	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "7")
	assert.True(t, ok)

	for _, ttl := range c.ttls {
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	for _, l := range []*Limiter{Disabled(), New(nil, "x", 1, time.Minute), New(newFakeCounter(), "x", 0, time.Minute)} {
		assert.False(t, l.Enabled())
		for i := 0; i < 5; i++ {
			ok, err := l.Allow(context.Background(), "k")
			require.NoError(t, err)
			assert.True(t, ok)
		}
	}
}

func TestLimiter_CounterErrorFailsOpen(t *testing.T) {
	c := newFakeCounter()
	c.err = errors.New("down")
	l := New(c, "import", 1, time.Minute)

	ok, err := l.Allow(context.Background(), "k")
	assert.ErrorIs(t, err, c.err)
	assert.True(t, ok)
}

func TestLimiter_KeyLayout(t *testing.T) {
	l := New(newFakeCounter(), "import", 1, time.Minute)
	l.now = func() time.Time { return time.Unix(120, 0) }
	assert.Equal(t, "tgotp:rl:import:42:2", l.key("42"))
}

func TestRedisCounter_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	_, err := NewRedisCounter(client).Incr(context.Background(), "k", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis error")
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "http://not-redis")
	assert.ErrorIs(t, err, ErrFailedToParseRedisURL)
}
