// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"tattoo-ai-api/internal/domain/entity"
)

// PromptRecordRepository 提示词记录仓储接口
type PromptRecordRepository interface {
	// Create 写入记录
	Create(ctx context.Context, record *entity.PromptRecord) error

	// ListRecent 按创建时间倒序返回用户最近的记录
	ListRecent(ctx context.Context, userID string, limit int) ([]*entity.PromptRecord, error)

	// DeleteBefore 删除早于指定时间的记录，返回删除条数
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
