// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm/clause"

	"tattoo-ai-api/internal/domain/entity"
	"tattoo-ai-api/internal/domain/repository"
)

// PromptRecordRepository 提示词记录仓储实现
type PromptRecordRepository struct {
	client *Client
}

var _ repository.PromptRecordRepository = (*PromptRecordRepository)(nil)

// NewPromptRecordRepository 创建记录仓储
func NewPromptRecordRepository(client *Client) *PromptRecordRepository {
	return &PromptRecordRepository{client: client}
}

// Create 写入记录；Stream 重投递导致的主键冲突直接忽略
func (r *PromptRecordRepository) Create(ctx context.Context, record *entity.PromptRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.PromptRecordRepository.Create",
		trace.WithAttributes(attribute.String("record.kind", string(record.Kind))))
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create prompt record: %w", err)
	}
	return nil
}

// ListRecent 获取用户最近的记录
func (r *PromptRecordRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*entity.PromptRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.PromptRecordRepository.ListRecent")
	defer span.End()

	limit = repository.ClampLimit(limit, 20, 100)

	db := r.client.db.WithContext(ctx)
	var records []*entity.PromptRecord
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list prompt records: %w", err)
	}
	return records, nil
}

// DeleteBefore 删除过期记录
func (r *PromptRecordRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.PromptRecordRepository.DeleteBefore")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	res := db.Where("created_at < ?", before).Delete(&entity.PromptRecord{})
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, fmt.Errorf("failed to delete prompt records: %w", res.Error)
	}
	span.SetAttributes(attribute.Int64("record.deleted", res.RowsAffected))
	return res.RowsAffected, nil
}
