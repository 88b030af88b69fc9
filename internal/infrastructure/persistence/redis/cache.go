// Package redis 提供 Redis 缓存、限流与事件发布
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 用户历史缓存
//
// 每个用户一个 hash，字段为 limit，值为 JSON 编码的记录列表。
// 写入新记录后只需删除这一个键，不需要 SCAN。
type Cache struct {
	client *Client
	group  singleflight.Group
}

func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// HistoryKey 用户历史缓存键
func HistoryKey(userID string) string {
	return "history:" + userID
}

// LoadHistory 读穿：命中直接返回，未命中时合并并发加载后回填
func (c *Cache) LoadHistory(ctx context.Context, userID string, limit int, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	key := HistoryKey(userID)
	field := strconv.Itoa(limit)

	ctx, span := cacheTracer.Start(ctx, "cache.LoadHistory",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int("history.limit", limit),
		))
	defer span.End()

	val, err := c.client.rdb.HGet(ctx, key, field).Bytes()
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, nil
	case err != redis.Nil:
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key+":"+field, func() (interface{}, error) {
		data, err := loader()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal history: %w", err)
		}

		// 回填失败不影响本次返回
		pipe := c.client.rdb.TxPipeline()
		pipe.HSet(ctx, key, field, raw)
		pipe.Expire(ctx, key, ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			span.RecordError(err)
		}
		return raw, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result.([]byte), nil
}

// InvalidateHistory 删除用户所有 limit 的历史缓存
func (c *Cache) InvalidateHistory(ctx context.Context, userID string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.InvalidateHistory",
		trace.WithAttributes(attribute.String("cache.key", HistoryKey(userID))))
	defer span.End()

	if err := c.client.rdb.Del(ctx, HistoryKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
