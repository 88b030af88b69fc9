// Package redis 提供 Redis 限流器实现
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// 令牌桶：桶容量 burst，每秒补充 rate 个令牌。状态存在 hash 中，脚本保证读改写原子。
var tokenBucket = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = burst
	ts = now
end

local elapsed = now - ts
if elapsed < 0 then elapsed = 0 end
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(now))
redis.call('PEXPIRE', KEYS[1], math.ceil(burst * 1000 / rate) + 1000)
return allowed
`)

// RateLimiter Redis 令牌桶限流器，多实例共享同一份计数
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 尝试从 key 对应的桶中取一个令牌
func (l *RateLimiter) Allow(ctx context.Context, key string, rate, burst int) (bool, error) {
	if rate <= 0 {
		rate = 1
	}
	if burst < rate {
		burst = rate
	}

	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	defer span.End()
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.rate", rate),
		attribute.Int("ratelimit.burst", burst),
	)

	n, err := tokenBucket.Run(ctx, l.client.rdb, []string{key}, rate, burst, l.now().UnixMilli()).Int()
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", n == 1))
	return n == 1, nil
}
