package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func TestClient_HealthCheck(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestCache_LoadHistory(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)
	ctx := context.Background()

	var calls int32
	loader := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return []string{"rose", "dagger"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := cache.LoadHistory(ctx, "u1", 20, time.Minute, loader)
			assert.NoError(t, err)
			var got []string
			assert.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, []string{"rose", "dagger"}, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.JSONEq(t, `["rose","dagger"]`, mr.HGet(HistoryKey("u1"), "20"))
	assert.Equal(t, time.Minute, mr.TTL(HistoryKey("u1")))

	// 命中缓存后不再调用 loader
	_, err := cache.LoadHistory(ctx, "u1", 20, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// 不同 limit 是独立字段
	_, err = cache.LoadHistory(ctx, "u1", 5, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_LoadHistory_LoaderError(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)

	_, err := cache.LoadHistory(context.Background(), "u1", 20, time.Minute, func() (interface{}, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists(HistoryKey("u1")))
}

func TestCache_LoadHistory_RedisDown(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)
	mr.Close()

	_, err := cache.LoadHistory(context.Background(), "u1", 20, time.Minute, func() (interface{}, error) {
		return []string{}, nil
	})
	assert.Error(t, err)
}

func TestCache_InvalidateHistory(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)
	ctx := context.Background()

	mr.HSet(HistoryKey("u1"), "20", "[]")
	mr.HSet(HistoryKey("u1"), "5", "[]")
	mr.HSet(HistoryKey("u2"), "20", "[]")

	require.NoError(t, cache.InvalidateHistory(ctx, "u1"))

	assert.False(t, mr.Exists(HistoryKey("u1")))
	assert.True(t, mr.Exists(HistoryKey("u2")))
}

func TestRateLimiter_Allow(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c)
	now := time.UnixMilli(1_700_000_000_000)
	rl.now = func() time.Time { return now }
	ctx := context.Background()
	key := "ratelimit:u1:/v1/prompts/enhance"

	// 桶满时可连续取 burst 个
	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 1, 3)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := rl.Allow(ctx, key, 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	// 一秒补充一个令牌
	now = now.Add(time.Second)
	ok, err = rl.Allow(ctx, key, 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = rl.Allow(ctx, key, 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	// 其他 key 不受影响
	ok, err = rl.Allow(ctx, "ratelimit:u2:/v1/prompts/enhance", 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Publish(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	sub := c.Redis().Subscribe(ctx, "events:records")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n, err := c.Publish(ctx, "events:records", []byte(`{"event":"record.logged"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"event":"record.logged"}`, msg.Payload)
}
