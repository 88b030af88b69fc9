package design

import (
	"context"
	"encoding/json"
	"time"

	"tattoo-ai-api/internal/domain/entity"
	"tattoo-ai-api/internal/domain/repository"
	"tattoo-ai-api/pkg/logger"
)

// HistoryReader 读取用户最近的记录
type HistoryReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]*entity.PromptRecord, error)
}

// HistoryCache 读穿缓存端口，按用户和 limit 缓存 JSON 编码的列表
type HistoryCache interface {
	LoadHistory(ctx context.Context, userID string, limit int, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// CachedHistory 先查 Redis，未命中时读库并回填；缓存故障时直接读库
type CachedHistory struct {
	repo  repository.PromptRecordRepository
	cache HistoryCache
	ttl   time.Duration
}

func NewCachedHistory(repo repository.PromptRecordRepository, cache HistoryCache, ttl time.Duration) *CachedHistory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedHistory{repo: repo, cache: cache, ttl: ttl}
}

func (h *CachedHistory) Recent(ctx context.Context, userID string, limit int) ([]*entity.PromptRecord, error) {
	limit = repository.ClampLimit(limit, 20, 100)
	if h.cache == nil {
		return h.repo.ListRecent(ctx, userID, limit)
	}

	raw, err := h.cache.LoadHistory(ctx, userID, limit, h.ttl, func() (interface{}, error) {
		return h.repo.ListRecent(ctx, userID, limit)
	})
	if err != nil {
		logger.Warn(ctx, "history cache unavailable, reading store", "error", err)
		return h.repo.ListRecent(ctx, userID, limit)
	}

	var records []*entity.PromptRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return h.repo.ListRecent(ctx, userID, limit)
	}
	if records == nil {
		records = []*entity.PromptRecord{}
	}
	return records, nil
}
